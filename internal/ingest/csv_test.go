package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/rosy/taxirides/internal/domain"
)

const sampleCSV = `id,vendor_id,pickup_datetime,dropoff_datetime,passenger_count,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,store_and_fwd_flag,trip_duration
id2875421,2,2016-03-14 17:24:55,2016-03-14 17:32:30,1,-73.982154846191406,40.767936706542969,-73.964630126953125,40.765602111816406,N,455
id2377394,1,2016-06-12 00:43:35,2016-06-12 00:54:38,1,-73.980415344238281,40.738563537597656,-73.999481201171875,40.731151580810547,N,663
id3858529,2,2016-01-19 11:35:24,2016-01-19 12:10:48,1,-73.979026794433594,40.763938903808594,-74.005332946777344,40.710086822509766,N,2124
`

func TestParse_SplitsByVendor(t *testing.T) {
	byKind, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := len(byKind[domain.KindVendor1]); got != 1 {
		t.Fatalf("vendor1 rows = %d, want 1", got)
	}
	if got := len(byKind[domain.KindVendor2]); got != 2 {
		t.Fatalf("vendor2 rows = %d, want 2", got)
	}

	r := byKind[domain.KindVendor1][0]
	if r.ID != "id2377394" {
		t.Fatalf("vendor1 ride id = %q", r.ID)
	}
	wantPickup := time.Date(2016, 6, 12, 0, 43, 35, 0, time.UTC)
	if !r.PickupDatetime.Equal(wantPickup) {
		t.Fatalf("pickup = %v, want %v", r.PickupDatetime, wantPickup)
	}
	if r.TripDuration != 663 {
		t.Fatalf("trip_duration = %d, want 663", r.TripDuration)
	}
}

func TestParse_HeaderDrivenColumnOrder(t *testing.T) {
	// Same data with shuffled columns must parse identically.
	shuffled := `vendor_id,id,trip_duration,pickup_datetime,dropoff_datetime,passenger_count,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,store_and_fwd_flag
1,idX,100,2016-06-12 00:43:35,2016-06-12 00:54:38,3,-73.98,40.73,-73.99,40.73,Y
`
	byKind, err := Parse(strings.NewReader(shuffled))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	r := byKind[domain.KindVendor1][0]
	if r.ID != "idX" || r.PassengerCount != 3 || r.StoreAndFwdFlag != "Y" {
		t.Fatalf("unexpected ride: %+v", r)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	bad := "id,vendor_id\nid1,1\n"
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestParse_UnknownVendor(t *testing.T) {
	bad := strings.Replace(sampleCSV, "id2875421,2", "id2875421,7", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for unknown vendor_id")
	}
}

func TestParse_BadTimestamp(t *testing.T) {
	bad := strings.Replace(sampleCSV, "2016-03-14 17:24:55", "not-a-time", 1)
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}
