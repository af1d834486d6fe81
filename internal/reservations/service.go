package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/audit"
	"github.com/angelmondragon/allotments-backend/internal/repo"
	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
	"github.com/angelmondragon/allotments-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Reserver commits inventory to a reservation one line at a time.
type Reserver interface {
	Reserve(ctx context.Context, reservationID, lineID uint, qty int) (bool, error)
}

type CreateInput struct {
	CustomerID     uint
	StartDate      *time.Time
	EndDate        *time.Time
	DepositAmount  decimal.Decimal
	DepositDueDate *time.Time
	BalanceDueDate *time.Time
	Notes          *string
}

// LineRequest asks for qty rooms of one inventory line.
type LineRequest struct {
	InventoryLineID uint
	Qty             int
}

// LineResult reports how one LineRequest of a replace went.
type LineResult struct {
	InventoryLineID uint   `json:"inventoryLineId"`
	Qty             int    `json:"qty"`
	Reserved        bool   `json:"reserved"`
	Reason          string `json:"reason,omitempty"`
	// Retryable marks lines that failed on contention rather than capacity.
	Retryable bool `json:"retryable,omitempty"`
}

type ServiceChargeInput struct {
	Description string
	Qty         int
	UnitPrice   decimal.Decimal
	Currency    enums.Currency
	StartDate   *time.Time
	EndDate     *time.Time
}

type PaymentInput struct {
	Amount    decimal.Decimal
	Currency  enums.Currency
	PaidAt    time.Time
	Reference *string
}

// Service drives the reservation lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Reservation, error)
	Get(ctx context.Context, id uint) (*models.Reservation, error)
	Transition(ctx context.Context, id uint, to enums.ReservationStatus) (*models.Reservation, error)
	Cancel(ctx context.Context, id uint) (*models.Reservation, error)
	ReplaceLines(ctx context.Context, id uint, lines []LineRequest) ([]LineResult, error)
	AddServiceCharge(ctx context.Context, id uint, input ServiceChargeInput) (*models.ReservationLine, error)
	RecordPayment(ctx context.Context, id uint, input PaymentInput) (*models.ReservationPayment, error)
}

type ServiceParams struct {
	DB       *gorm.DB
	Tx       txRunner
	Saver    *audit.Saver
	Reserver Reserver
	Outbox   outbox.Emitter
	Logger   *logger.Logger
}

type service struct {
	base     repo.Base
	tx       txRunner
	saver    *audit.Saver
	reserver Reserver
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil || params.Tx == nil {
		return nil, fmt.Errorf("database required")
	}
	if params.Saver == nil {
		return nil, fmt.Errorf("audit saver required")
	}
	if params.Reserver == nil {
		return nil, fmt.Errorf("reserver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		base:     repo.NewBase(params.DB),
		tx:       params.Tx,
		saver:    params.Saver,
		reserver: params.Reserver,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      dbpkg.UTCNow,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Reservation, error) {
	if input.StartDate != nil && input.EndDate != nil && !input.EndDate.After(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.DepositAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit cannot be negative")
	}
	if err := s.base.DB(ctx).First(&models.Customer{}, input.CustomerID).Error; err != nil {
		return nil, repo.MapError(err, "customer")
	}
	reservation := &models.Reservation{
		CustomerID:     input.CustomerID,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         enums.ReservationStatusDraft,
		DepositAmount:  input.DepositAmount,
		DepositDueDate: input.DepositDueDate,
		BalanceDueDate: input.BalanceDueDate,
	}
	reservation.Notes = input.Notes
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.saver.Create(tx, reservation)
	})
	if err != nil {
		return nil, repo.MapError(err, "reservation")
	}
	s.logg.Info(s.logg.WithReservationID(ctx, reservation.ID), "reservation created")
	return reservation, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.base.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&reservation, id).Error
	if err != nil {
		return nil, repo.MapError(err, "reservation")
	}
	return &reservation, nil
}

// Transition moves a reservation along its lifecycle. Moving to the current
// status is a no-op.
func (s *service) Transition(ctx context.Context, id uint, to enums.ReservationStatus) (*models.Reservation, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown reservation status %q", to))
	}
	reservation, err := audit.Update(ctx, s.saver, id, func(tx *gorm.DB, r *models.Reservation) error {
		from := r.Status
		if from == to {
			return audit.ErrUnchanged
		}
		if !from.CanTransition(to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation cannot move from %s to %s", from, to))
		}
		r.Status = to
		eventType := enums.EventReservationStatusChanged
		if to == enums.ReservationStatusCancelled {
			eventType = enums.EventReservationCancelled
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateReservation,
			AggregateID:   r.ID,
			Data: outbox.ReservationStatusChangedEvent{
				ReservationID: r.ID,
				From:          from,
				To:            to,
				ChangedAt:     s.now(),
			},
		})
	})
	if err != nil {
		return nil, repo.MapError(err, "reservation")
	}
	logCtx := s.logg.WithReservationID(ctx, id)
	s.logg.Info(s.logg.WithField(logCtx, "status", reservation.Status), "reservation status set")
	return reservation, nil
}

// Cancel only changes the status. The lines stay in place and stop counting
// against availability.
func (s *service) Cancel(ctx context.Context, id uint) (*models.Reservation, error) {
	return s.Transition(ctx, id, enums.ReservationStatusCancelled)
}

// ReplaceLines drops every inventory line of the reservation and reserves the
// requested lines one by one. Lines are independent: a rejected line does not
// undo the ones before it.
func (s *service) ReplaceLines(ctx context.Context, id uint, lines []LineRequest) ([]LineResult, error) {
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
		}
	}
	reservation, err := s.activeReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("reservation_id = ? AND allotment_room_type_id IS NOT NULL", reservation.ID).
			Delete(&models.ReservationLine{}).Error
	})
	if err != nil {
		return nil, repo.MapError(err, "reservation lines")
	}

	results := make([]LineResult, 0, len(lines))
	reserved := 0
	for _, line := range lines {
		result := LineResult{InventoryLineID: line.InventoryLineID, Qty: line.Qty}
		ok, err := s.reserver.Reserve(ctx, reservation.ID, line.InventoryLineID, line.Qty)
		switch {
		case err != nil:
			result.Reason = pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).PublicMessage
			if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
				result.Reason = typed.Message()
			}
			result.Retryable = pkgerrors.IsRetryable(err)
			s.logg.Warn(s.logg.WithField(s.logg.WithInventoryLineID(ctx, line.InventoryLineID), "error", err.Error()), "replace lines: line not reserved")
		case !ok:
			result.Reason = "not enough rooms available"
		default:
			result.Reserved = true
			reserved++
		}
		results = append(results, result)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationLinesReplaced,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservation.ID,
			Data: outbox.LinesReplacedEvent{
				ReservationID: reservation.ID,
				Requested:     len(lines),
				Reserved:      reserved,
			},
		})
	})
	if err != nil {
		s.logg.Error(s.logg.WithReservationID(ctx, reservation.ID), "queue lines replaced event", err)
	}
	return results, nil
}

func (s *service) AddServiceCharge(ctx context.Context, id uint, input ServiceChargeInput) (*models.ReservationLine, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}
	reservation, err := s.activeReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	line := &models.ReservationLine{
		ReservationID: reservation.ID,
		Description:   description,
		Qty:           input.Qty,
		UnitPrice:     input.UnitPrice,
		Currency:      input.Currency,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		CreatedAt:     s.now(),
	}
	if err := s.base.DB(ctx).Create(line).Error; err != nil {
		return nil, repo.MapError(err, "reservation line")
	}
	return line, nil
}

func (s *service) RecordPayment(ctx context.Context, id uint, input PaymentInput) (*models.ReservationPayment, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}
	if err := s.base.DB(ctx).First(&models.Reservation{}, id).Error; err != nil {
		return nil, repo.MapError(err, "reservation")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	payment := &models.ReservationPayment{
		ReservationID: id,
		Amount:        input.Amount,
		Currency:      input.Currency,
		PaidAt:        paidAt.UTC(),
		Reference:     input.Reference,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.saver.Create(tx, payment)
	})
	if err != nil {
		return nil, repo.MapError(err, "reservation payment")
	}
	return payment, nil
}

func (s *service) activeReservation(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := s.base.DB(ctx).First(&reservation, id).Error; err != nil {
		return nil, repo.MapError(err, "reservation")
	}
	if reservation.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation is %s", reservation.Status))
	}
	return &reservation, nil
}
