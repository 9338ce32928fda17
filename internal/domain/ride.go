// Package domain holds the core ride types shared by the store, the cache
// layer and the HTTP surface.
package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no ride exists for a given id.
var ErrNotFound = errors.New("ride not found")

// Kind identifies one of the ride entity kinds. The string value doubles as
// the cache-key namespace for point lookups, so kind names must stay
// mutually distinct.
type Kind string

const (
	KindVendor1 Kind = "RideVendor1"
	KindVendor2 Kind = "RideVendor2"
)

// Kinds lists all entity kinds in merge order (vendor1 first).
func Kinds() []Kind {
	return []Kind{KindVendor1, KindVendor2}
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	return k == KindVendor1 || k == KindVendor2
}

// Ride is a single ride record. The relational store owns the authoritative
// value; cache entries hold serialized snapshots only.
type Ride struct {
	ID               string    `json:"id"`
	VendorID         int       `json:"vendor_id"`
	PickupDatetime   time.Time `json:"pickup_datetime"`
	DropoffDatetime  time.Time `json:"dropoff_datetime"`
	PassengerCount   int       `json:"passenger_count"`
	PickupLongitude  float64   `json:"pickup_longitude"`
	PickupLatitude   float64   `json:"pickup_latitude"`
	DropoffLongitude float64   `json:"dropoff_longitude"`
	DropoffLatitude  float64   `json:"dropoff_latitude"`
	StoreAndFwdFlag  string    `json:"store_and_fwd_flag"`
	TripDuration     int       `json:"trip_duration"`
}

// Snapshot converts the ride to a loosely-typed column-name → value map,
// the shape stored in the cache. Timestamps become RFC 3339 strings; decode
// does not restore them to time.Time.
func (r Ride) Snapshot() map[string]any {
	return map[string]any{
		"id":                 r.ID,
		"vendor_id":          r.VendorID,
		"pickup_datetime":    r.PickupDatetime.Format(time.RFC3339),
		"dropoff_datetime":   r.DropoffDatetime.Format(time.RFC3339),
		"passenger_count":    r.PassengerCount,
		"pickup_longitude":   r.PickupLongitude,
		"pickup_latitude":    r.PickupLatitude,
		"dropoff_longitude":  r.DropoffLongitude,
		"dropoff_latitude":   r.DropoffLatitude,
		"store_and_fwd_flag": r.StoreAndFwdFlag,
		"trip_duration":      r.TripDuration,
	}
}

// Snapshots converts a ride list preserving order.
func Snapshots(rides []Ride) []map[string]any {
	out := make([]map[string]any, len(rides))
	for i, r := range rides {
		out[i] = r.Snapshot()
	}
	return out
}

// RideUpdate carries optional fields for a partial update. Nil fields leave
// the existing column value untouched.
type RideUpdate struct {
	PassengerCount   *int     `json:"passenger_count,omitempty"`
	PickupLongitude  *float64 `json:"pickup_longitude,omitempty"`
	PickupLatitude   *float64 `json:"pickup_latitude,omitempty"`
	DropoffLongitude *float64 `json:"dropoff_longitude,omitempty"`
	DropoffLatitude  *float64 `json:"dropoff_latitude,omitempty"`
	StoreAndFwdFlag  *string  `json:"store_and_fwd_flag,omitempty"`
	TripDuration     *int     `json:"trip_duration,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u RideUpdate) Empty() bool {
	return u.PassengerCount == nil &&
		u.PickupLongitude == nil &&
		u.PickupLatitude == nil &&
		u.DropoffLongitude == nil &&
		u.DropoffLatitude == nil &&
		u.StoreAndFwdFlag == nil &&
		u.TripDuration == nil
}
