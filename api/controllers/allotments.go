package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/api/responses"
	"github.com/angelmondragon/allotments-backend/api/validators"
	"github.com/angelmondragon/allotments-backend/internal/allotments"
	"github.com/angelmondragon/allotments-backend/internal/inventory"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

type createAllotmentRequest struct {
	HotelID       uint                       `json:"hotelId" validate:"required"`
	Title         string                     `json:"title" validate:"required,max=160"`
	StartDate     string                     `json:"startDate" validate:"required,isodate"`
	EndDate       string                     `json:"endDate" validate:"required,isodate"`
	OptionDueDate *string                    `json:"optionDueDate,omitempty" validate:"omitempty,isodate"`
	Status        string                     `json:"status" validate:"omitempty,oneof=option confirmed"`
	Notes         *string                    `json:"notes,omitempty"`
	Lines         []createInventoryLineInput `json:"lines" validate:"required,min=1,dive"`
}

type createInventoryLineInput struct {
	RoomTypeID    uint   `json:"roomTypeId" validate:"required"`
	QuantityTotal int    `json:"quantityTotal" validate:"gte=0"`
	PricePerNight string `json:"pricePerNight" validate:"required,amount"`
	Currency      string `json:"currency" validate:"required,currency"`
}

type updateInventoryLineRequest struct {
	QuantityTotal *int    `json:"quantityTotal,omitempty" validate:"omitempty,gte=0"`
	PricePerNight *string `json:"pricePerNight,omitempty" validate:"omitempty,amount"`
	Currency      *string `json:"currency,omitempty" validate:"omitempty,currency"`
	Notes         *string `json:"notes,omitempty"`
}

type cancellationRequest struct {
	Qty int `json:"qty" validate:"required,gt=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentRequest struct {
	Amount    string  `json:"amount" validate:"required,amount"`
	Currency  string  `json:"currency" validate:"required,currency"`
	PaidAt    string  `json:"paidAt,omitempty"`
	Reference *string `json:"reference,omitempty" validate:"omitempty,max=128"`
}

func (p createAllotmentRequest) toInput() (allotments.CreateInput, error) {
	start, err := validators.ParseDate("startDate", p.StartDate)
	if err != nil {
		return allotments.CreateInput{}, err
	}
	end, err := validators.ParseDate("endDate", p.EndDate)
	if err != nil {
		return allotments.CreateInput{}, err
	}
	due, err := validators.ParseOptionalDate("optionDueDate", p.OptionDueDate)
	if err != nil {
		return allotments.CreateInput{}, err
	}
	status := enums.AllotmentStatusOption
	if p.Status != "" {
		if status, err = enums.ParseAllotmentStatus(p.Status); err != nil {
			return allotments.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
	}
	input := allotments.CreateInput{
		HotelID:       p.HotelID,
		Title:         p.Title,
		StartDate:     start,
		EndDate:       end,
		OptionDueDate: due,
		Status:        status,
		Notes:         p.Notes,
	}
	for _, l := range p.Lines {
		price, err := validators.ParseAmount("pricePerNight", l.PricePerNight)
		if err != nil {
			return allotments.CreateInput{}, err
		}
		currency, err := parseCurrency(l.Currency)
		if err != nil {
			return allotments.CreateInput{}, err
		}
		input.Lines = append(input.Lines, allotments.LineInput{
			RoomTypeID:    l.RoomTypeID,
			QuantityTotal: l.QuantityTotal,
			PricePerNight: price,
			Currency:      currency,
		})
	}
	return input, nil
}

func parseCurrency(raw string) (enums.Currency, error) {
	currency, err := enums.ParseCurrency(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	return currency, nil
}

func CreateAllotment(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		var payload createAllotmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allotment, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toAllotmentView(allotment))
	}
}

func GetAllotment(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "allotmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allotment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAllotmentView(allotment))
	}
}

func DeleteAllotment(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "allotmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func SetAllotmentStatus(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "allotmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseAllotmentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		allotment, err := svc.SetStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAllotmentView(allotment))
	}
}

func AddAllotmentPayment(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "allotmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, currency, paidAt, err := payload.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.AddPayment(r.Context(), id, allotments.PaymentInput{
			Amount:    amount,
			Currency:  currency,
			PaidAt:    paidAt,
			Reference: payload.Reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toAllotmentPaymentView(*payment))
	}
}

func UpdateInventoryLine(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		lineID, err := validators.ParseIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateInventoryLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := validators.ParseOptionalAmount("pricePerNight", payload.PricePerNight)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		update := allotments.LineUpdate{QuantityTotal: payload.QuantityTotal, PricePerNight: price, Notes: payload.Notes}
		if payload.Currency != nil {
			currency, err := parseCurrency(*payload.Currency)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			update.Currency = &currency
		}
		line, err := svc.UpdateLine(r.Context(), lineID, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryLineView(*line))
	}
}

func RecordLineCancellation(svc allotments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allotment service unavailable"))
			return
		}
		lineID, err := validators.ParseIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cancellationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.RecordCancellation(r.Context(), lineID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryLineView(*line))
	}
}

func LineAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		lineID, err := validators.ParseIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := svc.Availability(r.Context(), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}

func AllotmentAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "allotmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := svc.AllotmentAvailability(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lines)
	}
}

func (p paymentRequest) parse() (amount decimal.Decimal, currency enums.Currency, paidAt time.Time, err error) {
	if amount, err = validators.ParseAmount("amount", p.Amount); err != nil {
		return
	}
	if currency, err = parseCurrency(p.Currency); err != nil {
		return
	}
	paidAt, err = validators.ParseTimestamp("paidAt", p.PaidAt, time.Now().UTC())
	return
}
