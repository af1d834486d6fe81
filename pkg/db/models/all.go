package models

// All lists every persisted model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&City{},
		&Hotel{},
		&RoomType{},
		&Allotment{},
		&InventoryLine{},
		&AllotmentPayment{},
		&Customer{},
		&Reservation{},
		&ReservationLine{},
		&ReservationPayment{},
		&UpdateLog{},
		&OutboxEvent{},
	}
}
