package enums

import "fmt"

// ReservationStatus tracks the lifecycle of a customer reservation.
type ReservationStatus string

const (
	ReservationStatusDraft          ReservationStatus = "draft"
	ReservationStatusPendingDeposit ReservationStatus = "pending_deposit"
	ReservationStatusConfirmed      ReservationStatus = "confirmed"
	ReservationStatusCompleted      ReservationStatus = "completed"
	ReservationStatusCancelled      ReservationStatus = "cancelled"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusDraft,
	ReservationStatusPendingDeposit,
	ReservationStatusConfirmed,
	ReservationStatusCompleted,
	ReservationStatusCancelled,
}

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusDraft:          {ReservationStatusPendingDeposit, ReservationStatusCancelled},
	ReservationStatusPendingDeposit: {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed:      {ReservationStatusCompleted, ReservationStatusCancelled},
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCompleted || s == ReservationStatusCancelled
}

// HoldsInventory reports whether lines of a reservation in this status count against availability.
func (s ReservationStatus) HoldsInventory() bool {
	return s != ReservationStatusCancelled
}

// CanTransition reports whether the state machine allows s -> next.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	for _, candidate := range reservationTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
