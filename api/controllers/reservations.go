package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/allotments-backend/api/responses"
	"github.com/angelmondragon/allotments-backend/api/validators"
	"github.com/angelmondragon/allotments-backend/internal/inventory"
	"github.com/angelmondragon/allotments-backend/internal/reservations"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

const notEnoughRooms = "not enough rooms available"

type createReservationRequest struct {
	CustomerID     uint    `json:"customerId" validate:"required"`
	StartDate      *string `json:"startDate,omitempty" validate:"omitempty,isodate"`
	EndDate        *string `json:"endDate,omitempty" validate:"omitempty,isodate"`
	DepositAmount  string  `json:"depositAmount,omitempty" validate:"omitempty,amount"`
	DepositDueDate *string `json:"depositDueDate,omitempty" validate:"omitempty,isodate"`
	BalanceDueDate *string `json:"balanceDueDate,omitempty" validate:"omitempty,isodate"`
	Notes          *string `json:"notes,omitempty"`
}

type reserveLineRequest struct {
	InventoryLineID uint `json:"inventoryLineId" validate:"required"`
	Qty             int  `json:"qty" validate:"required,gt=0"`
}

type replaceLinesRequest struct {
	Lines []reserveLineRequest `json:"lines" validate:"dive"`
}

type serviceChargeRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Qty         int     `json:"qty" validate:"required,gt=0"`
	UnitPrice   string  `json:"unitPrice" validate:"required,amount"`
	Currency    string  `json:"currency" validate:"required,currency"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,isodate"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,isodate"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,reservation_status"`
}

type reserveResponse struct {
	Reserved bool   `json:"reserved"`
	Message  string `json:"message,omitempty"`
}

func (p createReservationRequest) toInput() (reservations.CreateInput, error) {
	input := reservations.CreateInput{CustomerID: p.CustomerID, Notes: p.Notes, DepositAmount: decimal.Zero}
	var err error
	if input.StartDate, err = validators.ParseOptionalDate("startDate", p.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = validators.ParseOptionalDate("endDate", p.EndDate); err != nil {
		return input, err
	}
	if input.DepositDueDate, err = validators.ParseOptionalDate("depositDueDate", p.DepositDueDate); err != nil {
		return input, err
	}
	if input.BalanceDueDate, err = validators.ParseOptionalDate("balanceDueDate", p.BalanceDueDate); err != nil {
		return input, err
	}
	if p.DepositAmount != "" {
		if input.DepositAmount, err = validators.ParseAmount("depositAmount", p.DepositAmount); err != nil {
			return input, err
		}
	}
	return input, nil
}

func CreateReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		var payload createReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservation, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toReservationView(reservation))
	}
}

func GetReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservation, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationView(reservation))
	}
}

// ReserveLine runs the reservation protocol for one inventory line. Running
// out of rooms is an expected outcome and answers 200 with reserved=false.
func ReserveLine(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reserveLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithReservationID(r.Context(), id)
		ctx = logg.WithEntity(ctx, "inventory_line", payload.InventoryLineID)
		ok, err := svc.Reserve(ctx, id, payload.InventoryLineID, payload.Qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp := reserveResponse{Reserved: ok}
		if !ok {
			resp.Message = notEnoughRooms
		}
		responses.WriteSuccess(w, resp)
	}
}

func ReplaceReservationLines(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload replaceLinesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requests := make([]reservations.LineRequest, 0, len(payload.Lines))
		for _, l := range payload.Lines {
			requests = append(requests, reservations.LineRequest{InventoryLineID: l.InventoryLineID, Qty: l.Qty})
		}
		results, err := svc.ReplaceLines(logg.WithReservationID(r.Context(), id), id, requests)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"lines": results})
	}
}

func AddServiceCharge(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload serviceChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := svc.AddServiceCharge(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toReservationLineView(*line))
	}
}

func (p serviceChargeRequest) toInput() (reservations.ServiceChargeInput, error) {
	price, err := validators.ParseAmount("unitPrice", p.UnitPrice)
	if err != nil {
		return reservations.ServiceChargeInput{}, err
	}
	currency, err := parseCurrency(p.Currency)
	if err != nil {
		return reservations.ServiceChargeInput{}, err
	}
	start, err := validators.ParseOptionalDate("startDate", p.StartDate)
	if err != nil {
		return reservations.ServiceChargeInput{}, err
	}
	end, err := validators.ParseOptionalDate("endDate", p.EndDate)
	if err != nil {
		return reservations.ServiceChargeInput{}, err
	}
	return reservations.ServiceChargeInput{
		Description: p.Description,
		Qty:         p.Qty,
		UnitPrice:   price,
		Currency:    currency,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func TransitionReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseReservationStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		reservation, err := svc.Transition(logg.WithReservationID(r.Context(), id), id, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationView(reservation))
	}
}

func CancelReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservation, err := svc.Cancel(logg.WithReservationID(r.Context(), id), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationView(reservation))
	}
}

func RecordReservationPayment(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		id, err := validators.ParseIDParam(r, "reservationId")
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
		payment, err := svc.RecordPayment(r.Context(), id, reservations.PaymentInput{
			Amount:    amount,
			Currency:  currency,
			PaidAt:    paidAt,
			Reference: payload.Reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toReservationPaymentView(*payment))
	}
}
