// Package ingest implements the one-off bulk CSV load that seeds the ride
// tables. Rows are split by vendor_id: vendor 1 goes to rides_vendor1,
// vendor 2 to rides_vendor2; any other vendor id is rejected.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rosy/taxirides/internal/domain"
	"github.com/rosy/taxirides/internal/logging"
	"github.com/rosy/taxirides/internal/store"
)

// timestampLayout matches the pickup/dropoff format of the source CSV.
const timestampLayout = "2006-01-02 15:04:05"

var requiredColumns = []string{
	"id", "vendor_id", "pickup_datetime", "dropoff_datetime", "passenger_count",
	"pickup_longitude", "pickup_latitude", "dropoff_longitude", "dropoff_latitude",
	"store_and_fwd_flag", "trip_duration",
}

// Loader bulk-loads ride CSVs into the relational store.
type Loader struct {
	store *store.PostgresStore
}

// NewLoader creates a Loader over the given store.
func NewLoader(st *store.PostgresStore) *Loader {
	return &Loader{store: st}
}

// Run reads the CSV at source (an http(s) URL or a local file path),
// recreates both ride tables and loads the parsed rows. Returns the number
// of rows loaded per kind.
func (l *Loader) Run(ctx context.Context, source string) (map[domain.Kind]int64, error) {
	rc, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	byKind, err := Parse(rc)
	if err != nil {
		return nil, err
	}

	if err := l.store.RecreateTables(ctx); err != nil {
		return nil, err
	}

	counts := make(map[domain.Kind]int64, len(byKind))
	for _, kind := range domain.Kinds() {
		n, err := l.store.CopyRides(ctx, kind, byKind[kind])
		if err != nil {
			return counts, fmt.Errorf("load %s: %w", kind, err)
		}
		counts[kind] = n
		logging.Op().Info("loaded rides", "kind", kind.String(), "rows", n)
	}
	return counts, nil
}

func open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("download %s: unexpected status %s", source, resp.Status)
		}
		return resp.Body, nil
	}
	return os.Open(source)
}

// Parse reads ride rows from CSV data and splits them by entity kind. The
// header row drives column positions, so column order does not matter.
func Parse(r io.Reader) (map[domain.Kind][]domain.Ride, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("CSV missing column %q", col)
		}
	}

	byKind := map[domain.Kind][]domain.Ride{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line+1, err)
		}
		line++

		ride, err := parseRide(record, idx)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}

		var kind domain.Kind
		switch ride.VendorID {
		case 1:
			kind = domain.KindVendor1
		case 2:
			kind = domain.KindVendor2
		default:
			return nil, fmt.Errorf("CSV line %d: unknown vendor_id %d", line, ride.VendorID)
		}
		byKind[kind] = append(byKind[kind], ride)
	}

	return byKind, nil
}

func parseRide(record []string, idx map[string]int) (domain.Ride, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[idx[name]])
	}

	var (
		r   domain.Ride
		err error
	)
	r.ID = field("id")
	if r.ID == "" {
		return r, fmt.Errorf("empty id")
	}
	if r.VendorID, err = strconv.Atoi(field("vendor_id")); err != nil {
		return r, fmt.Errorf("vendor_id: %w", err)
	}
	if r.PickupDatetime, err = time.Parse(timestampLayout, field("pickup_datetime")); err != nil {
		return r, fmt.Errorf("pickup_datetime: %w", err)
	}
	if r.DropoffDatetime, err = time.Parse(timestampLayout, field("dropoff_datetime")); err != nil {
		return r, fmt.Errorf("dropoff_datetime: %w", err)
	}
	if r.PassengerCount, err = strconv.Atoi(field("passenger_count")); err != nil {
		return r, fmt.Errorf("passenger_count: %w", err)
	}
	if r.PickupLongitude, err = strconv.ParseFloat(field("pickup_longitude"), 64); err != nil {
		return r, fmt.Errorf("pickup_longitude: %w", err)
	}
	if r.PickupLatitude, err = strconv.ParseFloat(field("pickup_latitude"), 64); err != nil {
		return r, fmt.Errorf("pickup_latitude: %w", err)
	}
	if r.DropoffLongitude, err = strconv.ParseFloat(field("dropoff_longitude"), 64); err != nil {
		return r, fmt.Errorf("dropoff_longitude: %w", err)
	}
	if r.DropoffLatitude, err = strconv.ParseFloat(field("dropoff_latitude"), 64); err != nil {
		return r, fmt.Errorf("dropoff_latitude: %w", err)
	}
	r.StoreAndFwdFlag = field("store_and_fwd_flag")
	if r.TripDuration, err = strconv.Atoi(field("trip_duration")); err != nil {
		return r, fmt.Errorf("trip_duration: %w", err)
	}
	return r, nil
}
