package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateReservation   OutboxAggregateType = "reservation"
	AggregateInventoryLine OutboxAggregateType = "inventory_line"
	AggregateAllotment     OutboxAggregateType = "allotment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateReservation,
	AggregateInventoryLine,
	AggregateAllotment,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventReservationLineReserved  OutboxEventType = "reservation_line_reserved"
	EventReservationLinesReplaced OutboxEventType = "reservation_lines_replaced"
	EventReservationStatusChanged OutboxEventType = "reservation_status_changed"
	EventReservationCancelled     OutboxEventType = "reservation_cancelled"
	EventInventoryLineCancelled   OutboxEventType = "inventory_line_cancelled"
	EventAllotmentStatusChanged   OutboxEventType = "allotment_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReservationLineReserved,
	EventReservationLinesReplaced,
	EventReservationStatusChanged,
	EventReservationCancelled,
	EventInventoryLineCancelled,
	EventAllotmentStatusChanged,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
