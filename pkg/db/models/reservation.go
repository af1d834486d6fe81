package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Customer is the party a reservation is made for.
type Customer struct {
	ID      uint    `gorm:"column:id;primaryKey;autoIncrement"`
	Name    string  `gorm:"column:name;type:varchar(160);not null"`
	Email   *string `gorm:"column:email;type:varchar(160)"`
	Phone   *string `gorm:"column:phone;type:varchar(40)"`
	Country *string `gorm:"column:country;type:varchar(64)"`
	Auditable
}

func (c *Customer) AuditEntity() enums.AuditEntity { return enums.AuditEntityCustomer }
func (c *Customer) AuditID() uint                  { return c.ID }

// Reservation groups the rooms and services booked for one customer stay.
type Reservation struct {
	ID             uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID     uint                    `gorm:"column:customer_id;not null;index"`
	StartDate      *time.Time              `gorm:"column:start_date;type:date"`
	EndDate        *time.Time              `gorm:"column:end_date;type:date"`
	Status         enums.ReservationStatus `gorm:"column:status;type:varchar(32);not null;default:'draft'"`
	DepositAmount  decimal.Decimal         `gorm:"column:deposit_amount;type:numeric(12,2);not null;default:0"`
	DepositDueDate *time.Time              `gorm:"column:deposit_due_date;type:date"`
	BalanceDueDate *time.Time              `gorm:"column:balance_due_date;type:date"`
	Version        int64                   `gorm:"column:version;not null;default:0" audit:"-"`
	Lines          []ReservationLine       `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Payments       []ReservationPayment    `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	Auditable
}

func (r *Reservation) AuditEntity() enums.AuditEntity { return enums.AuditEntityReservation }
func (r *Reservation) AuditID() uint                  { return r.ID }
func (r *Reservation) CurrentVersion() int64          { return r.Version }
func (r *Reservation) SetVersion(v int64)             { r.Version = v }

// ReservationLine is a booked quantity. Lines with an inventory reference hold
// rooms; lines without one are ad-hoc service charges. Price, currency and
// dates are a snapshot frozen when the line is committed.
type ReservationLine struct {
	ID              uint            `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID   uint            `gorm:"column:reservation_id;not null;index"`
	InventoryLineID *uint           `gorm:"column:allotment_room_type_id;index"`
	Description     string          `gorm:"column:description;type:varchar(255);not null"`
	Qty             int             `gorm:"column:qty;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Currency        enums.Currency  `gorm:"column:currency;type:varchar(3);not null"`
	StartDate       *time.Time      `gorm:"column:start_date;type:date"`
	EndDate         *time.Time      `gorm:"column:end_date;type:date"`
	IsPaid          bool            `gorm:"column:is_paid;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null"`
}

// Nights is the stay length of the line, 1 when it carries no dates.
func (l ReservationLine) Nights() int {
	if l.StartDate == nil || l.EndDate == nil {
		return 1
	}
	n := int(l.EndDate.Sub(*l.StartDate).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// Total is qty × unit price × nights.
func (l ReservationLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty * l.Nights())))
}

// ReservationPayment records money received from the customer.
type ReservationPayment struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement"`
	ReservationID uint            `gorm:"column:reservation_id;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency  `gorm:"column:currency;type:varchar(3);not null"`
	PaidAt        time.Time       `gorm:"column:paid_at;not null"`
	Reference     *string         `gorm:"column:reference;type:varchar(128)"`
	Auditable
}

func (p *ReservationPayment) AuditEntity() enums.AuditEntity {
	return enums.AuditEntityReservationPayment
}
func (p *ReservationPayment) AuditID() uint { return p.ID }
