package models

import (
	"time"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// UpdateLog is one immutable field-level change of an audited entity.
// At most one of the parent columns is set.
type UpdateLog struct {
	ID                   uint      `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType           string    `gorm:"column:entity_type;type:varchar(64);not null;index:ix_update_logs_entity"`
	EntityID             uint      `gorm:"column:entity_id;not null;index:ix_update_logs_entity"`
	ChangedAt            time.Time `gorm:"column:changed_at;not null"`
	PropertyName         string    `gorm:"column:property_name;type:varchar(128);not null"`
	OldValue             *string   `gorm:"column:old_value"`
	NewValue             *string   `gorm:"column:new_value"`
	ChangedBy            *string   `gorm:"column:changed_by;type:varchar(128)"`
	HotelID              *uint     `gorm:"column:hotel_id"`
	AllotmentID          *uint     `gorm:"column:allotment_id"`
	InventoryLineID      *uint     `gorm:"column:allotment_room_type_id"`
	CustomerID           *uint     `gorm:"column:customer_id"`
	ReservationID        *uint     `gorm:"column:reservation_id"`
	AllotmentPaymentID   *uint     `gorm:"column:allotment_payment_id"`
	ReservationPaymentID *uint     `gorm:"column:reservation_payment_id"`
}

// AttachParent sets the foreign key column matching the entity type.
func (l *UpdateLog) AttachParent(entity enums.AuditEntity, id uint) {
	ref := &id
	switch entity {
	case enums.AuditEntityHotel:
		l.HotelID = ref
	case enums.AuditEntityAllotment:
		l.AllotmentID = ref
	case enums.AuditEntityInventoryLine:
		l.InventoryLineID = ref
	case enums.AuditEntityCustomer:
		l.CustomerID = ref
	case enums.AuditEntityReservation:
		l.ReservationID = ref
	case enums.AuditEntityAllotmentPayment:
		l.AllotmentPaymentID = ref
	case enums.AuditEntityReservationPayment:
		l.ReservationPaymentID = ref
	}
}
