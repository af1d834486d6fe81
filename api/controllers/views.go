package controllers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/api/validators"
	"github.com/angelmondragon/allotments-backend/internal/reservations"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Views decouple the wire shape from the gorm models; dates travel as
// YYYY-MM-DD and money as decimal strings.

type cityView struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type roomTypeView struct {
	ID       uint   `json:"id"`
	HotelID  uint   `json:"hotelId"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type hotelView struct {
	ID        uint           `json:"id"`
	CityID    uint           `json:"cityId"`
	Name      string         `json:"name"`
	Stars     int            `json:"stars"`
	Email     *string        `json:"email,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	Address   *string        `json:"address,omitempty"`
	Notes     *string        `json:"notes,omitempty"`
	RoomTypes []roomTypeView `json:"roomTypes,omitempty"`
}

type inventoryLineView struct {
	ID                uint            `json:"id"`
	AllotmentID       uint            `json:"allotmentId"`
	RoomTypeID        uint            `json:"roomTypeId"`
	QuantityTotal     int             `json:"quantityTotal"`
	QuantityCancelled int             `json:"quantityCancelled"`
	PricePerNight     decimal.Decimal `json:"pricePerNight"`
	Currency          enums.Currency  `json:"currency"`
	Notes             *string         `json:"notes,omitempty"`
}

type paymentView struct {
	ID        uint            `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  enums.Currency  `json:"currency"`
	PaidAt    time.Time       `json:"paidAt"`
	Reference *string         `json:"reference,omitempty"`
}

type allotmentView struct {
	ID            uint                  `json:"id"`
	HotelID       uint                  `json:"hotelId"`
	Title         string                `json:"title"`
	StartDate     string                `json:"startDate"`
	EndDate       string                `json:"endDate"`
	OptionDueDate *string               `json:"optionDueDate,omitempty"`
	Status        enums.AllotmentStatus `json:"status"`
	Notes         *string               `json:"notes,omitempty"`
	Lines         []inventoryLineView   `json:"lines"`
	Payments      []paymentView         `json:"payments"`
}

type customerView struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Country *string `json:"country,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type reservationLineView struct {
	ID              uint            `json:"id"`
	InventoryLineID *uint           `json:"inventoryLineId,omitempty"`
	Description     string          `json:"description"`
	Qty             int             `json:"qty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Currency        enums.Currency  `json:"currency"`
	StartDate       *string         `json:"startDate,omitempty"`
	EndDate         *string         `json:"endDate,omitempty"`
	Nights          int             `json:"nights"`
	Total           decimal.Decimal `json:"total"`
}

type reservationView struct {
	ID             uint                    `json:"id"`
	CustomerID     uint                    `json:"customerId"`
	Status         enums.ReservationStatus `json:"status"`
	StartDate      *string                 `json:"startDate,omitempty"`
	EndDate        *string                 `json:"endDate,omitempty"`
	DepositAmount  decimal.Decimal         `json:"depositAmount"`
	DepositDueDate *string                 `json:"depositDueDate,omitempty"`
	BalanceDueDate *string                 `json:"balanceDueDate,omitempty"`
	Notes          *string                 `json:"notes,omitempty"`
	Lines          []reservationLineView   `json:"lines"`
	Payments       []paymentView           `json:"payments"`
	Summary        reservations.Summary    `json:"summary"`
}

func formatDate(t time.Time) string { return t.Format(validators.DateLayout) }

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func toCityView(c *models.City) cityView {
	return cityView{ID: c.ID, Name: c.Name, Country: c.Country}
}

func toRoomTypeView(rt models.RoomType) roomTypeView {
	return roomTypeView{ID: rt.ID, HotelID: rt.HotelID, Name: rt.Name, Capacity: rt.Capacity}
}

func toHotelView(h *models.Hotel) hotelView {
	view := hotelView{
		ID:      h.ID,
		CityID:  h.CityID,
		Name:    h.Name,
		Stars:   h.Stars,
		Email:   h.Email,
		Phone:   h.Phone,
		Address: h.Address,
		Notes:   h.Notes,
	}
	for _, rt := range h.RoomTypes {
		view.RoomTypes = append(view.RoomTypes, toRoomTypeView(rt))
	}
	return view
}

func toInventoryLineView(l models.InventoryLine) inventoryLineView {
	return inventoryLineView{
		ID:                l.ID,
		AllotmentID:       l.AllotmentID,
		RoomTypeID:        l.RoomTypeID,
		QuantityTotal:     l.QuantityTotal,
		QuantityCancelled: l.QuantityCancelled,
		PricePerNight:     l.PricePerNight,
		Currency:          l.Currency,
		Notes:             l.Notes,
	}
}

func toAllotmentPaymentView(p models.AllotmentPayment) paymentView {
	return paymentView{ID: p.ID, Amount: p.Amount, Currency: p.Currency, PaidAt: p.PaidAt, Reference: p.Reference}
}

func toReservationPaymentView(p models.ReservationPayment) paymentView {
	return paymentView{ID: p.ID, Amount: p.Amount, Currency: p.Currency, PaidAt: p.PaidAt, Reference: p.Reference}
}

func toAllotmentView(a *models.Allotment) allotmentView {
	view := allotmentView{
		ID:            a.ID,
		HotelID:       a.HotelID,
		Title:         a.Title,
		StartDate:     formatDate(a.StartDate),
		EndDate:       formatDate(a.EndDate),
		OptionDueDate: formatOptionalDate(a.OptionDueDate),
		Status:        a.Status,
		Notes:         a.Notes,
		Lines:         make([]inventoryLineView, 0, len(a.Lines)),
		Payments:      make([]paymentView, 0, len(a.Payments)),
	}
	for _, l := range a.Lines {
		view.Lines = append(view.Lines, toInventoryLineView(l))
	}
	for _, p := range a.Payments {
		view.Payments = append(view.Payments, toAllotmentPaymentView(p))
	}
	return view
}

func toCustomerView(c *models.Customer) customerView {
	return customerView{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Country: c.Country, Notes: c.Notes}
}

func toReservationLineView(l models.ReservationLine) reservationLineView {
	return reservationLineView{
		ID:              l.ID,
		InventoryLineID: l.InventoryLineID,
		Description:     l.Description,
		Qty:             l.Qty,
		UnitPrice:       l.UnitPrice,
		Currency:        l.Currency,
		StartDate:       formatOptionalDate(l.StartDate),
		EndDate:         formatOptionalDate(l.EndDate),
		Nights:          l.Nights(),
		Total:           l.Total(),
	}
}

func toReservationView(r *models.Reservation) reservationView {
	view := reservationView{
		ID:             r.ID,
		CustomerID:     r.CustomerID,
		Status:         r.Status,
		StartDate:      formatOptionalDate(r.StartDate),
		EndDate:        formatOptionalDate(r.EndDate),
		DepositAmount:  r.DepositAmount,
		DepositDueDate: formatOptionalDate(r.DepositDueDate),
		BalanceDueDate: formatOptionalDate(r.BalanceDueDate),
		Notes:          r.Notes,
		Lines:          make([]reservationLineView, 0, len(r.Lines)),
		Payments:       make([]paymentView, 0, len(r.Payments)),
		Summary:        reservations.Summarize(*r),
	}
	for _, l := range r.Lines {
		view.Lines = append(view.Lines, toReservationLineView(l))
	}
	for _, p := range r.Payments {
		view.Payments = append(view.Payments, toReservationPaymentView(p))
	}
	return view
}
