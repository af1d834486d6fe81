package allotments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/audit"
	"github.com/angelmondragon/allotments-backend/internal/inventory"
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

// LineInput describes one room type bought inside a new allotment.
type LineInput struct {
	RoomTypeID    uint
	QuantityTotal int
	PricePerNight decimal.Decimal
	Currency      enums.Currency
}

type CreateInput struct {
	HotelID       uint
	Title         string
	StartDate     time.Time
	EndDate       time.Time
	OptionDueDate *time.Time
	Status        enums.AllotmentStatus
	Notes         *string
	Lines         []LineInput
}

// LineUpdate changes only the fields that are set.
type LineUpdate struct {
	QuantityTotal *int
	PricePerNight *decimal.Decimal
	Currency      *enums.Currency
	Notes         *string
}

type PaymentInput struct {
	Amount    decimal.Decimal
	Currency  enums.Currency
	PaidAt    time.Time
	Reference *string
}

// Service manages allotment blocks and their inventory lines.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Allotment, error)
	Get(ctx context.Context, id uint) (*models.Allotment, error)
	UpdateLine(ctx context.Context, lineID uint, input LineUpdate) (*models.InventoryLine, error)
	RecordCancellation(ctx context.Context, lineID uint, qty int) (*models.InventoryLine, error)
	SetStatus(ctx context.Context, id uint, to enums.AllotmentStatus) (*models.Allotment, error)
	AddPayment(ctx context.Context, allotmentID uint, input PaymentInput) (*models.AllotmentPayment, error)
	Delete(ctx context.Context, id uint) error
}

type ServiceParams struct {
	DB        *gorm.DB
	Tx        txRunner
	Saver     *audit.Saver
	Inventory inventory.Repository
	Outbox    outbox.Emitter
	Logger    *logger.Logger
}

type service struct {
	base      repo.Base
	tx        txRunner
	saver     *audit.Saver
	inventory inventory.Repository
	outbox    outbox.Emitter
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil || params.Tx == nil {
		return nil, fmt.Errorf("database required")
	}
	if params.Saver == nil {
		return nil, fmt.Errorf("audit saver required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		base:      repo.NewBase(params.DB),
		tx:        params.Tx,
		saver:     params.Saver,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		logg:      params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Allotment, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if err := s.base.DB(ctx).First(&models.Hotel{}, input.HotelID).Error; err != nil {
		return nil, repo.MapError(err, "hotel")
	}
	seen := make(map[uint]bool, len(input.Lines))
	roomTypeIDs := make([]uint, 0, len(input.Lines))
	for _, line := range input.Lines {
		if !seen[line.RoomTypeID] {
			seen[line.RoomTypeID] = true
			roomTypeIDs = append(roomTypeIDs, line.RoomTypeID)
		}
	}
	var owned int64
	err := s.base.DB(ctx).Model(&models.RoomType{}).
		Where("hotel_id = ? AND id IN ?", input.HotelID, roomTypeIDs).
		Count(&owned).Error
	if err != nil {
		return nil, repo.MapError(err, "room type")
	}
	if int(owned) != len(roomTypeIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "every room type must belong to the allotment's hotel")
	}

	status := input.Status
	if status == "" {
		status = enums.AllotmentStatusOption
	}
	allotment := &models.Allotment{
		HotelID:       input.HotelID,
		Title:         strings.TrimSpace(input.Title),
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		OptionDueDate: input.OptionDueDate,
		Status:        status,
	}
	allotment.Notes = input.Notes

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.saver.Create(tx, allotment); err != nil {
			return err
		}
		for _, in := range input.Lines {
			line := models.InventoryLine{
				AllotmentID:   allotment.ID,
				RoomTypeID:    in.RoomTypeID,
				QuantityTotal: in.QuantityTotal,
				PricePerNight: in.PricePerNight,
				Currency:      in.Currency,
			}
			if err := s.saver.Create(tx, &line); err != nil {
				return err
			}
			allotment.Lines = append(allotment.Lines, line)
		}
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "room type listed twice in the allotment")
		}
		return nil, repo.MapError(err, "allotment")
	}
	s.logg.Info(s.logg.WithEntity(ctx, enums.AuditEntityAllotment.String(), allotment.ID), "allotment created")
	return allotment, nil
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.EndDate.After(input.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.Status != "" && input.Status != enums.AllotmentStatusOption && input.Status != enums.AllotmentStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeValidation, "new allotments are either an option or confirmed")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one room type is required")
	}
	for _, line := range input.Lines {
		if line.QuantityTotal < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		if line.PricePerNight.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price per night cannot be negative")
		}
		if !line.Currency.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", line.Currency))
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Allotment, error) {
	var allotment models.Allotment
	err := s.base.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&allotment, id).Error
	if err != nil {
		return nil, repo.MapError(err, "allotment")
	}
	return &allotment, nil
}

// UpdateLine edits a line under its row lock. The sellable quantity may not
// drop below what active reservations already hold.
func (s *service) UpdateLine(ctx context.Context, lineID uint, input LineUpdate) (*models.InventoryLine, error) {
	if input.QuantityTotal != nil && *input.QuantityTotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.PricePerNight != nil && input.PricePerNight.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per night cannot be negative")
	}
	if input.Currency != nil && !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", *input.Currency))
	}
	line, err := audit.Update(ctx, s.saver, lineID, func(tx *gorm.DB, l *models.InventoryLine) error {
		if input.QuantityTotal != nil {
			held, err := s.inventory.WithTx(tx).ReservedQty(ctx, l.ID)
			if err != nil {
				return err
			}
			if *input.QuantityTotal < l.QuantityCancelled+held {
				return pkgerrors.New(pkgerrors.CodeConflict, "quantity is below the rooms already cancelled or reserved").
					WithDetails(map[string]any{"reserved": held, "cancelled": l.QuantityCancelled})
			}
			l.QuantityTotal = *input.QuantityTotal
		}
		if input.PricePerNight != nil {
			l.PricePerNight = *input.PricePerNight
		}
		if input.Currency != nil {
			l.Currency = *input.Currency
		}
		if input.Notes != nil {
			l.Notes = input.Notes
		}
		return nil
	})
	if err != nil {
		return nil, repo.MapError(err, "inventory line")
	}
	return line, nil
}

// RecordCancellation returns qty unsold rooms of a line to the hotel.
func (s *service) RecordCancellation(ctx context.Context, lineID uint, qty int) (*models.InventoryLine, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	line, err := audit.Update(ctx, s.saver, lineID, func(tx *gorm.DB, l *models.InventoryLine) error {
		held, err := s.inventory.WithTx(tx).ReservedQty(ctx, l.ID)
		if err != nil {
			return err
		}
		if available := l.Unreserved() - held; qty > available {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot cancel more rooms than are available").
				WithDetails(map[string]any{"available": available})
		}
		l.QuantityCancelled += qty
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryLineCancelled,
			AggregateType: enums.AggregateInventoryLine,
			AggregateID:   l.ID,
			Data: outbox.InventoryLineCancelledEvent{
				InventoryLineID:   l.ID,
				QuantityCancelled: l.QuantityCancelled,
				Released:          qty,
			},
		})
	})
	if err != nil {
		return nil, repo.MapError(err, "inventory line")
	}
	return line, nil
}

func (s *service) SetStatus(ctx context.Context, id uint, to enums.AllotmentStatus) (*models.Allotment, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown allotment status %q", to))
	}
	allotment, err := audit.Update(ctx, s.saver, id, func(tx *gorm.DB, a *models.Allotment) error {
		from := a.Status
		if from == to {
			return audit.ErrUnchanged
		}
		if !from.CanTransition(to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("allotment cannot move from %s to %s", from, to))
		}
		a.Status = to
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAllotmentStatusChanged,
			AggregateType: enums.AggregateAllotment,
			AggregateID:   a.ID,
			Data:          outbox.AllotmentStatusChangedEvent{AllotmentID: a.ID, From: from, To: to},
		})
	})
	if err != nil {
		return nil, repo.MapError(err, "allotment")
	}
	return allotment, nil
}

func (s *service) AddPayment(ctx context.Context, allotmentID uint, input PaymentInput) (*models.AllotmentPayment, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}
	if err := s.base.DB(ctx).First(&models.Allotment{}, allotmentID).Error; err != nil {
		return nil, repo.MapError(err, "allotment")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = dbpkg.UTCNow()
	}
	payment := &models.AllotmentPayment{
		AllotmentID: allotmentID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		PaidAt:      paidAt.UTC(),
		Reference:   input.Reference,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.saver.Create(tx, payment)
	})
	if err != nil {
		return nil, repo.MapError(err, "allotment payment")
	}
	return payment, nil
}

// Delete removes a block with its lines and payments. Blocks that
// reservations have drawn from cannot be deleted.
func (s *service) Delete(ctx context.Context, id uint) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var allotment models.Allotment
		if err := dbpkg.ForUpdate(tx).First(&allotment, id).Error; err != nil {
			return err
		}
		var referenced int64
		err := tx.Model(&models.ReservationLine{}).
			Where("allotment_room_type_id IN (?)", tx.Model(&models.InventoryLine{}).Select("id").Where("allotment_id = ?", id)).
			Count(&referenced).Error
		if err != nil {
			return err
		}
		if referenced > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "allotment has reservation lines and cannot be deleted").
				WithDetails(map[string]any{"reservationLines": referenced})
		}
		return tx.Delete(&allotment).Error
	})
	if err != nil {
		if dbpkg.IsForeignKeyViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "allotment is still referenced")
		}
		return repo.MapError(err, "allotment")
	}
	s.logg.Info(s.logg.WithEntity(ctx, enums.AuditEntityAllotment.String(), id), "allotment deleted")
	return nil
}
