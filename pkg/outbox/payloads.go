package outbox

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// LineReservedEvent is the data of reservation_line_reserved.
type LineReservedEvent struct {
	ReservationID     uint            `json:"reservationId"`
	ReservationLineID uint            `json:"reservationLineId"`
	InventoryLineID   uint            `json:"inventoryLineId"`
	Qty               int             `json:"qty"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	Currency          enums.Currency  `json:"currency"`
	AvailableAfter    int             `json:"availableAfter"`
}

// LinesReplacedEvent is the data of reservation_lines_replaced.
type LinesReplacedEvent struct {
	ReservationID uint `json:"reservationId"`
	Requested     int  `json:"requested"`
	Reserved      int  `json:"reserved"`
}

// ReservationStatusChangedEvent is the data of reservation_status_changed and reservation_cancelled.
type ReservationStatusChangedEvent struct {
	ReservationID uint                    `json:"reservationId"`
	From          enums.ReservationStatus `json:"from"`
	To            enums.ReservationStatus `json:"to"`
	ChangedAt     time.Time               `json:"changedAt"`
}

// InventoryLineCancelledEvent is the data of inventory_line_cancelled.
type InventoryLineCancelledEvent struct {
	InventoryLineID   uint `json:"inventoryLineId"`
	QuantityCancelled int  `json:"quantityCancelled"`
	Released          int  `json:"released"`
}

// AllotmentStatusChangedEvent is the data of allotment_status_changed.
type AllotmentStatusChangedEvent struct {
	AllotmentID uint                  `json:"allotmentId"`
	From        enums.AllotmentStatus `json:"from"`
	To          enums.AllotmentStatus `json:"to"`
}
