package alerts

import (
	"testing"
	"time"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

var testWindows = Windows{Option: 7 * 24 * time.Hour, Reservation: 3 * 24 * time.Hour, Danger: 24 * time.Hour}

func day(d int) time.Time {
	return time.Date(2026, time.June, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildAppliesWindowsPerKind(t *testing.T) {
	now := time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{Kind: enums.AlertKindOptionDue, AllotmentID: 1, DueDate: day(9)},        // yesterday
		{Kind: enums.AlertKindOptionDue, AllotmentID: 2, DueDate: day(10)},       // today
		{Kind: enums.AlertKindOptionDue, AllotmentID: 3, DueDate: day(17)},       // inside 7 days
		{Kind: enums.AlertKindOptionDue, AllotmentID: 4, DueDate: day(18)},       // beyond
		{Kind: enums.AlertKindDepositDue, ReservationID: 5, DueDate: day(13)},    // inside 3 days
		{Kind: enums.AlertKindBalanceDue, ReservationID: 6, DueDate: day(14)},    // beyond 3 days
		{Kind: enums.AlertKindBalanceDue, ReservationID: 7, DueDate: day(11)},    // within a day
	}

	got := Build(now, candidates, Filter{}, testWindows)
	want := []struct {
		id       uint
		severity enums.AlertSeverity
	}{
		{2, enums.AlertSeverityDanger},
		{7, enums.AlertSeverityDanger},
		{5, enums.AlertSeverityWarning},
		{3, enums.AlertSeverityWarning},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d alerts, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].id() != w.id || got[i].Severity != w.severity {
			t.Fatalf("alert %d: expected id=%d %s, got id=%d %s", i, w.id, w.severity, got[i].id(), got[i].Severity)
		}
	}
}

func TestBuildOrdersByDueDateKindThenID(t *testing.T) {
	now := time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{Kind: enums.AlertKindBalanceDue, ReservationID: 2, DueDate: day(12)},
		{Kind: enums.AlertKindDepositDue, ReservationID: 9, DueDate: day(12)},
		{Kind: enums.AlertKindOptionDue, AllotmentID: 4, DueDate: day(12)},
		{Kind: enums.AlertKindDepositDue, ReservationID: 3, DueDate: day(12)},
	}
	got := Build(now, candidates, Filter{}, testWindows)
	order := []uint{4, 3, 9, 2}
	for i, id := range order {
		if got[i].id() != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, got[i].id())
		}
	}
}

func TestBuildFilters(t *testing.T) {
	now := time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{Kind: enums.AlertKindOptionDue, AllotmentID: 1, DueDate: day(12), HotelIDs: []uint{10}, HotelNames: []string{"Sea Breeze Resort"}, Countries: []string{"TR"}},
		{Kind: enums.AlertKindDepositDue, ReservationID: 2, DueDate: day(12), HotelIDs: []uint{10}, HotelNames: []string{"Sea Breeze Resort"}, Countries: []string{"TR", "DE"}, CustomerID: 7, CustomerName: "Alice Meyer"},
		{Kind: enums.AlertKindBalanceDue, ReservationID: 3, DueDate: day(12), HotelIDs: []uint{11}, HotelNames: []string{"Olive Grove"}, Countries: []string{"GR"}, CustomerID: 8, CustomerName: "Bob Stone"},
	}

	cases := []struct {
		name   string
		filter Filter
		ids    []uint
	}{
		{"none", Filter{}, []uint{1, 2, 3}},
		{"hotel", Filter{HotelID: 10}, []uint{1, 2}},
		{"country ignores case", Filter{Country: "de"}, []uint{2}},
		{"customer drops option alerts", Filter{CustomerID: 7}, []uint{2}},
		{"search hotel name", Filter{Search: "olive"}, []uint{3}},
		{"search customer name", Filter{Search: "MEYER"}, []uint{2}},
		{"search no match", Filter{Search: "hilton"}, nil},
		{"combined", Filter{HotelID: 10, Search: "sea"}, []uint{1, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Build(now, candidates, tc.filter, testWindows)
			if len(got) != len(tc.ids) {
				t.Fatalf("expected %v, got %+v", tc.ids, got)
			}
			for i, id := range tc.ids {
				if got[i].id() != id {
					t.Fatalf("position %d: expected %d, got %d", i, id, got[i].id())
				}
			}
		})
	}
}

func TestCountBySeverity(t *testing.T) {
	counts := CountBySeverity([]Alert{
		{Severity: enums.AlertSeverityDanger},
		{Severity: enums.AlertSeverityWarning},
		{Severity: enums.AlertSeverityWarning},
	})
	if counts["danger"] != 1 || counts["warning"] != 2 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
