package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/repo"
	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
	"github.com/angelmondragon/allotments-backend/pkg/metrics"
	"github.com/angelmondragon/allotments-backend/pkg/outbox"
)

type txRunner interface {
	WithRetryTx(ctx context.Context, policy dbpkg.RetryPolicy, fn func(tx *gorm.DB) error) error
}

// Service is the inventory reservation protocol.
type Service interface {
	// Reserve commits qty rooms of an inventory line to a reservation. It
	// returns false, without error, when the line cannot cover qty.
	Reserve(ctx context.Context, reservationID, lineID uint, qty int) (bool, error)
	Availability(ctx context.Context, lineID uint) (*Availability, error)
	AllotmentAvailability(ctx context.Context, allotmentID uint) ([]Availability, error)
}

// Availability is a non-locking snapshot of one inventory line.
type Availability struct {
	InventoryLineID uint `json:"inventoryLineId"`
	AllotmentID     uint `json:"allotmentId"`
	RoomTypeID      uint `json:"roomTypeId"`
	Total           int  `json:"total"`
	Cancelled       int  `json:"cancelled"`
	Reserved        int  `json:"reserved"`
	Available       int  `json:"available"`
}

type ServiceParams struct {
	DB      txRunner
	Repo    Repository
	Outbox  outbox.Emitter
	Logger  *logger.Logger
	Metrics *metrics.ReservationMetrics
	Retry   dbpkg.RetryPolicy
}

type service struct {
	db      txRunner
	repo    Repository
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics *metrics.ReservationMetrics
	retry   dbpkg.RetryPolicy
	locker  func(tx *gorm.DB) LineLocker
	now     func() time.Time
}

var (
	errInsufficient      = errors.New("not enough rooms available")
	errReservationClosed = errors.New("reservation closed")
)

// NewService validates the collaborators of the reservation protocol.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		db:      params.DB,
		repo:    params.Repo,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		retry:   params.Retry,
		now:     dbpkg.UTCNow,
	}
	s.locker = func(tx *gorm.DB) LineLocker { return s.repo.WithTx(tx) }
	return s, nil
}

func (s *service) Reserve(ctx context.Context, reservationID, lineID uint, qty int) (bool, error) {
	start := time.Now()
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	reservation, err := s.repo.FindReservation(ctx, reservationID)
	if err != nil {
		return false, repo.MapError(err, "reservation")
	}
	if reservation.Status.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("reservation is %s", reservation.Status))
	}
	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return false, repo.MapError(err, "inventory line")
	}
	allotment, err := s.repo.FindAllotment(ctx, line.AllotmentID)
	if err != nil {
		return false, repo.MapError(err, "allotment")
	}
	if allotment.Status == enums.AllotmentStatusReleased {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "allotment has been released")
	}
	startDate, endDate, ok := stayDates(allotment, reservation)
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "reservation dates do not overlap the allotment")
	}
	roomType, err := s.repo.FindRoomType(ctx, line.RoomTypeID)
	if err != nil {
		return false, repo.MapError(err, "room type")
	}

	ctx = s.logg.WithReservationID(ctx, reservationID)
	ctx = s.logg.WithInventoryLineID(ctx, lineID)

	policy := s.retry
	policy.OnRetry = func(attempt int, delay time.Duration, cause error) {
		s.metrics.IncConflict()
		s.logg.Warn(s.logg.WithRetry(ctx, attempt, delay, cause), "reserve conflict, retrying")
	}

	err = s.db.WithRetryTx(ctx, policy, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		locked, err := s.locker(tx).LockLine(ctx, lineID)
		if err != nil {
			return err
		}
		current, err := txRepo.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return fmt.Errorf("%w: reservation is %s", errReservationClosed, current.Status)
		}
		held, err := txRepo.ReservedQty(ctx, lineID)
		if err != nil {
			return err
		}
		available := locked.Unreserved() - held
		if qty > available {
			return errInsufficient
		}

		item := &models.ReservationLine{
			ReservationID:   reservationID,
			InventoryLineID: &locked.ID,
			Description:     fmt.Sprintf("%s (%s)", roomType.Name, allotment.Title),
			Qty:             qty,
			UnitPrice:       locked.PricePerNight,
			Currency:        locked.Currency,
			StartDate:       &startDate,
			EndDate:         &endDate,
			CreatedAt:       s.now(),
		}
		if err := txRepo.InsertReservationLine(ctx, item); err != nil {
			return err
		}
		if err := txRepo.BumpVersion(ctx, locked.ID, locked.Version); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationLineReserved,
			AggregateType: enums.AggregateReservation,
			AggregateID:   reservationID,
			OccurredAt:    item.CreatedAt,
			Data: outbox.LineReservedEvent{
				ReservationID:     reservationID,
				ReservationLineID: item.ID,
				InventoryLineID:   locked.ID,
				Qty:               qty,
				UnitPrice:         locked.PricePerNight,
				Currency:          locked.Currency,
				AvailableAfter:    available - qty,
			},
		})
	})

	switch {
	case err == nil:
		s.metrics.Observe(metrics.OutcomeReserved, time.Since(start))
		s.logg.Info(s.logg.WithField(ctx, "qty", qty), "rooms reserved")
		return true, nil
	case errors.Is(err, errInsufficient):
		s.metrics.Observe(metrics.OutcomeRejected, time.Since(start))
		s.logg.Info(s.logg.WithField(ctx, "qty", qty), "reserve rejected: not enough rooms available")
		return false, nil
	}

	s.metrics.Observe(metrics.OutcomeFailed, time.Since(start))
	if errors.Is(err, errReservationClosed) {
		s.logg.Warn(ctx, "reserve refused: reservation closed while waiting for the line lock")
		return false, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "reservation is no longer open")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "inventory line not found")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, err
	}
	if errors.Is(err, dbpkg.ErrRetriesExhausted) {
		s.logg.Error(ctx, "reserve retries exhausted", err)
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory line is busy, retries exhausted")
	}
	s.logg.Error(ctx, "reserve failed", err)
	return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
}

// stayDates returns the allotment's date range clamped to the reservation's
// dates when the reservation carries both. ok is false when they do not overlap.
func stayDates(allotment *models.Allotment, reservation *models.Reservation) (start, end time.Time, ok bool) {
	start, end = allotment.StartDate, allotment.EndDate
	if reservation.StartDate == nil || reservation.EndDate == nil {
		return start, end, true
	}
	if reservation.StartDate.After(start) {
		start = *reservation.StartDate
	}
	if reservation.EndDate.Before(end) {
		end = *reservation.EndDate
	}
	return start, end, start.Before(end)
}

func (s *service) Availability(ctx context.Context, lineID uint) (*Availability, error) {
	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return nil, repo.MapError(err, "inventory line")
	}
	held, err := s.repo.ReservedQty(ctx, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved quantity")
	}
	out := availabilityOf(*line, held)
	return &out, nil
}

func (s *service) AllotmentAvailability(ctx context.Context, allotmentID uint) ([]Availability, error) {
	if _, err := s.repo.FindAllotment(ctx, allotmentID); err != nil {
		return nil, repo.MapError(err, "allotment")
	}
	lines, err := s.repo.FindLinesByAllotment(ctx, allotmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory lines")
	}
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}
	held, err := s.repo.ReservedQtyByLine(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved quantity")
	}
	out := make([]Availability, 0, len(lines))
	for _, line := range lines {
		out = append(out, availabilityOf(line, held[line.ID]))
	}
	return out, nil
}

func availabilityOf(line models.InventoryLine, reserved int) Availability {
	return Availability{
		InventoryLineID: line.ID,
		AllotmentID:     line.AllotmentID,
		RoomTypeID:      line.RoomTypeID,
		Total:           line.QuantityTotal,
		Cancelled:       line.QuantityCancelled,
		Reserved:        reserved,
		Available:       line.Unreserved() - reserved,
	}
}
