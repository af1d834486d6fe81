package enums

// AuditEntity is the entity type name stored on update log rows.
type AuditEntity string

const (
	AuditEntityHotel              AuditEntity = "Hotel"
	AuditEntityAllotment          AuditEntity = "Allotment"
	AuditEntityInventoryLine      AuditEntity = "AllotmentRoomType"
	AuditEntityCustomer           AuditEntity = "Customer"
	AuditEntityReservation        AuditEntity = "Reservation"
	AuditEntityAllotmentPayment   AuditEntity = "AllotmentPayment"
	AuditEntityReservationPayment AuditEntity = "ReservationPayment"
)

func (e AuditEntity) String() string {
	return string(e)
}
