// Package api exposes the rides HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rosy/taxirides/internal/cache"
	"github.com/rosy/taxirides/internal/domain"
	"github.com/rosy/taxirides/internal/metrics"
	"github.com/rosy/taxirides/internal/rides"
	"github.com/rosy/taxirides/internal/store"
)

// Handler handles ride HTTP requests.
type Handler struct {
	Service *rides.Service
	Store   store.RideStore
	Cache   cache.Cache
}

// RegisterRoutes registers all ride routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /rides", h.ListMerged)
	mux.HandleFunc("GET /rides/{vendor}", h.ListRides)
	mux.HandleFunc("GET /rides/{vendor}/{id}", h.GetRide)
	mux.HandleFunc("POST /rides/{vendor}", h.CreateRide)
	mux.HandleFunc("PUT /rides/{vendor}/{id}", h.UpdateRide)
	mux.HandleFunc("DELETE /rides/{vendor}/{id}", h.DeleteRide)

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", metrics.Handler())
}

// kindFromVendor maps the {vendor} path segment to an entity kind.
func kindFromVendor(vendor string) (domain.Kind, bool) {
	switch vendor {
	case "vendor1":
		return domain.KindVendor1, true
	case "vendor2":
		return domain.KindVendor2, true
	default:
		return "", false
	}
}

// queryParams holds the common list query parameters.
type queryParams struct {
	useCache       bool
	passengerCount *int
	limit          *int
}

func parseQueryParams(r *http.Request) (queryParams, error) {
	var p queryParams
	q := r.URL.Query()

	if v := q.Get("redis"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, errors.New("redis must be a boolean")
		}
		p.useCache = b
	}
	if v := q.Get("passenger_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("passenger_count must be an integer")
		}
		p.passengerCount = &n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("limit must be a non-negative integer")
		}
		p.limit = &n
	}
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP status codes: 404 for missing
// rides, 400 for store constraint violations, 500 for cache backend
// failures and anything else.
func writeError(w http.ResponseWriter, err error) {
	var constraintErr *store.ConstraintError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "ride not found", http.StatusNotFound)
	case errors.As(err, &constraintErr):
		http.Error(w, constraintErr.Error(), http.StatusBadRequest)
	case errors.Is(err, rides.ErrCacheUnavailable):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListRides handles GET /rides/{vendor}
func (h *Handler) ListRides(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromVendor(r.PathValue("vendor"))
	if !ok {
		http.Error(w, "unknown vendor", http.StatusNotFound)
		return
	}

	params, err := parseQueryParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.useCache {
		result, err := h.Service.ListCached(r.Context(), kind, params.passengerCount, params.limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	rows, err := h.Service.List(r.Context(), kind, params.passengerCount, params.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.Ride{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListMerged handles GET /rides
func (h *Handler) ListMerged(w http.ResponseWriter, r *http.Request) {
	params, err := parseQueryParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.useCache {
		result, err := h.Service.ListMergedCached(r.Context(), params.passengerCount, params.limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	rows, err := h.Service.ListMerged(r.Context(), params.passengerCount, params.limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.Ride{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetRide handles GET /rides/{vendor}/{id}
func (h *Handler) GetRide(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromVendor(r.PathValue("vendor"))
	if !ok {
		http.Error(w, "unknown vendor", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")

	params, err := parseQueryParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.useCache {
		result, err := h.Service.GetCached(r.Context(), kind, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	ride, err := h.Service.Get(r.Context(), kind, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// CreateRide handles POST /rides/{vendor}
func (h *Handler) CreateRide(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromVendor(r.PathValue("vendor"))
	if !ok {
		http.Error(w, "unknown vendor", http.StatusNotFound)
		return
	}

	var ride domain.Ride
	if err := json.NewDecoder(r.Body).Decode(&ride); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if ride.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if ride.VendorID == 0 {
		http.Error(w, "vendor_id is required", http.StatusBadRequest)
		return
	}
	if ride.PickupDatetime.IsZero() || ride.DropoffDatetime.IsZero() {
		http.Error(w, "pickup_datetime and dropoff_datetime are required", http.StatusBadRequest)
		return
	}
	if ride.StoreAndFwdFlag == "" {
		http.Error(w, "store_and_fwd_flag is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Create(r.Context(), kind, &ride); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

// UpdateRide handles PUT /rides/{vendor}/{id}
func (h *Handler) UpdateRide(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromVendor(r.PathValue("vendor"))
	if !ok {
		http.Error(w, "unknown vendor", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")

	var upd domain.RideUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.Service.Update(r.Context(), kind, id, &upd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ride updated"})
}

// DeleteRide handles DELETE /rides/{vendor}/{id}
func (h *Handler) DeleteRide(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromVendor(r.PathValue("vendor"))
	if !ok {
		http.Error(w, "unknown vendor", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")

	if err := h.Service.Delete(r.Context(), kind, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ride deleted"})
}

// Health handles GET /healthz. Reports degraded components without failing
// the whole endpoint when only the cache is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := map[string]string{"postgres": "ok", "redis": "ok"}

	if err := h.Store.Ping(r.Context()); err != nil {
		result["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.Cache.Ping(r.Context()); err != nil {
		result["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, result)
}
