package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Allotment is a block of rooms bought (or optioned) from a hotel for a date range.
type Allotment struct {
	ID            uint                  `gorm:"column:id;primaryKey;autoIncrement"`
	HotelID       uint                  `gorm:"column:hotel_id;not null;index"`
	Title         string                `gorm:"column:title;type:varchar(160);not null"`
	StartDate     time.Time             `gorm:"column:start_date;type:date;not null"`
	EndDate       time.Time             `gorm:"column:end_date;type:date;not null"`
	OptionDueDate *time.Time            `gorm:"column:option_due_date;type:date"`
	Status        enums.AllotmentStatus `gorm:"column:status;type:varchar(32);not null;default:'option'"`
	Lines         []InventoryLine       `gorm:"foreignKey:AllotmentID;constraint:OnDelete:CASCADE"`
	Payments      []AllotmentPayment    `gorm:"foreignKey:AllotmentID;constraint:OnDelete:CASCADE"`
	Auditable
}

func (a *Allotment) AuditEntity() enums.AuditEntity { return enums.AuditEntityAllotment }
func (a *Allotment) AuditID() uint                  { return a.ID }

// InventoryLine is one room type inside an allotment: the unit reservations are drawn against.
type InventoryLine struct {
	ID                uint            `gorm:"column:id;primaryKey;autoIncrement"`
	AllotmentID       uint            `gorm:"column:allotment_id;not null;uniqueIndex:ux_allotment_room_types_allotment_room_type"`
	RoomTypeID        uint            `gorm:"column:room_type_id;not null;uniqueIndex:ux_allotment_room_types_allotment_room_type"`
	QuantityTotal     int             `gorm:"column:quantity_total;not null;default:0"`
	QuantityCancelled int             `gorm:"column:quantity_cancelled;not null;default:0"`
	PricePerNight     decimal.Decimal `gorm:"column:price_per_night;type:numeric(12,2);not null"`
	Currency          enums.Currency  `gorm:"column:currency;type:varchar(3);not null"`
	Version           int64           `gorm:"column:version;not null;default:0" audit:"-"`
	Auditable
}

// TableName keeps the historical table name.
func (InventoryLine) TableName() string { return "allotment_room_types" }

func (l *InventoryLine) AuditEntity() enums.AuditEntity { return enums.AuditEntityInventoryLine }
func (l *InventoryLine) AuditID() uint                  { return l.ID }
func (l *InventoryLine) CurrentVersion() int64          { return l.Version }
func (l *InventoryLine) SetVersion(v int64)             { l.Version = v }

// Unreserved is the contracted quantity still sellable before reservations are counted.
func (l *InventoryLine) Unreserved() int {
	return l.QuantityTotal - l.QuantityCancelled
}

// AllotmentPayment records money paid to the hotel for a block.
type AllotmentPayment struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	AllotmentID uint            `gorm:"column:allotment_id;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency    enums.Currency  `gorm:"column:currency;type:varchar(3);not null"`
	PaidAt      time.Time       `gorm:"column:paid_at;not null"`
	Reference   *string         `gorm:"column:reference;type:varchar(128)"`
	Auditable
}

func (p *AllotmentPayment) AuditEntity() enums.AuditEntity { return enums.AuditEntityAllotmentPayment }
func (p *AllotmentPayment) AuditID() uint                  { return p.ID }
