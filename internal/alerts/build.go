package alerts

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/pkg/config"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Candidate is a due date that may turn into an alert. Candidates are loaded
// without filters so they can be cached and shared between callers.
type Candidate struct {
	Kind           enums.AlertKind `json:"kind"`
	DueDate        time.Time       `json:"dueDate"`
	AllotmentID    uint            `json:"allotmentId,omitempty"`
	ReservationID  uint            `json:"reservationId,omitempty"`
	Title          string          `json:"title"`
	HotelIDs       []uint          `json:"hotelIds,omitempty"`
	HotelNames     []string        `json:"hotelNames,omitempty"`
	Countries      []string        `json:"countries,omitempty"`
	CustomerID     uint            `json:"customerId,omitempty"`
	CustomerName   string          `json:"customerName,omitempty"`
	RemainingRooms int             `json:"remainingRooms"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

func (c Candidate) id() uint {
	if c.ReservationID != 0 {
		return c.ReservationID
	}
	return c.AllotmentID
}

// Alert is a candidate inside its look-ahead window, graded by urgency.
type Alert struct {
	Candidate
	Severity enums.AlertSeverity `json:"severity"`
}

// Filter narrows the alert list. Zero values match everything.
type Filter struct {
	HotelID    uint
	Country    string
	CustomerID uint
	Search     string
}

// Windows are the look-ahead horizons and the danger threshold.
type Windows struct {
	Option      time.Duration
	Reservation time.Duration
	Danger      time.Duration
}

func WindowsFromConfig(cfg config.AlertsConfig) Windows {
	return Windows{
		Option:      cfg.OptionWindow,
		Reservation: cfg.ReservationWindow,
		Danger:      cfg.DangerThreshold,
	}
}

// Horizon is the furthest look-ahead of any kind.
func (w Windows) Horizon() time.Duration {
	if w.Option > w.Reservation {
		return w.Option
	}
	return w.Reservation
}

func (w Windows) forKind(kind enums.AlertKind) time.Duration {
	if kind == enums.AlertKindOptionDue {
		return w.Option
	}
	return w.Reservation
}

// StartOfDay is midnight UTC of now's day; alerts due earlier are dropped.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Build keeps the candidates due inside [start of today, now + window] that
// match the filter, grades them and sorts them by due date, kind and id.
func Build(now time.Time, candidates []Candidate, filter Filter, windows Windows) []Alert {
	from := StartOfDay(now)
	out := make([]Alert, 0, len(candidates))
	for _, c := range candidates {
		if c.DueDate.Before(from) || c.DueDate.After(now.Add(windows.forKind(c.Kind))) {
			continue
		}
		if !filter.matches(c) {
			continue
		}
		severity := enums.AlertSeverityWarning
		if c.DueDate.Sub(now) <= windows.Danger {
			severity = enums.AlertSeverityDanger
		}
		out = append(out, Alert{Candidate: c, Severity: severity})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Kind.Rank() != b.Kind.Rank() {
			return a.Kind.Rank() < b.Kind.Rank()
		}
		return a.id() < b.id()
	})
	return out
}

// CountBySeverity tallies alerts for the due_alerts gauge.
func CountBySeverity(alerts []Alert) map[string]int {
	counts := map[string]int{}
	for _, a := range alerts {
		counts[string(a.Severity)]++
	}
	return counts
}

func (f Filter) matches(c Candidate) bool {
	if f.CustomerID != 0 && c.CustomerID != f.CustomerID {
		// option dues belong to no customer
		return false
	}
	if f.HotelID != 0 && !containsID(c.HotelIDs, f.HotelID) {
		return false
	}
	if country := strings.TrimSpace(f.Country); country != "" && !containsFold(c.Countries, country) {
		return false
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		needle := strings.ToLower(search)
		names := append([]string{c.CustomerName}, c.HotelNames...)
		found := false
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsID(ids []uint, want uint) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
