package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

// ErrUnchanged lets a mutate callback end an Update without saving.
var ErrUnchanged = errors.New("entity unchanged")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithRetryTx(ctx context.Context, policy dbpkg.RetryPolicy, fn func(tx *gorm.DB) error) error
}

// Saver is the persistence boundary of audited entities.
type Saver struct {
	db        txRunner
	logg      *logger.Logger
	policy    dbpkg.RetryPolicy
	now       func() time.Time
	writeLogs func(ctx context.Context, rows []models.UpdateLog) error
}

// NewSaver builds a saver; policy bounds retries of the primary transaction.
func NewSaver(db txRunner, logg *logger.Logger, policy dbpkg.RetryPolicy) (*Saver, error) {
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &Saver{
		db:     db,
		logg:   logg,
		policy: policy,
		now:    dbpkg.UTCNow,
	}
	s.writeLogs = s.insertLogs
	return s, nil
}

// Create stamps createdAt = updatedAt = now and inserts the entity in tx.
// New rows produce no update logs.
func (s *Saver) Create(tx *gorm.DB, entity models.Tracked) error {
	entity.MarkCreated(s.now())
	return tx.Omit(clause.Associations).Create(entity).Error
}

// Update loads the entity with a row lock, applies mutate and saves it in one
// transaction. After that transaction commits, one update log per changed
// scalar field is written in a second transaction. A failure of the second
// transaction is logged and swallowed.
//
// mutate must assign new values to pointer fields rather than write through
// them, since the snapshot is a shallow copy.
func Update[T any, PT interface {
	*T
	models.Tracked
}](ctx context.Context, s *Saver, id uint, mutate func(tx *gorm.DB, entity PT) error) (PT, error) {
	var (
		entity  PT
		changes []Change
	)
	err := s.db.WithRetryTx(ctx, s.policy, func(tx *gorm.DB) error {
		entity = PT(new(T))
		if err := dbpkg.ForUpdate(tx).First(entity, id).Error; err != nil {
			return err
		}
		before := *entity
		if err := mutate(tx, entity); err != nil {
			return err
		}
		entity.MarkUpdated(s.now())
		if err := save(tx, entity); err != nil {
			return err
		}
		changes = Diff(&before, entity)
		return nil
	})
	if errors.Is(err, ErrUnchanged) {
		return entity, nil
	}
	if err != nil {
		return nil, err
	}
	s.record(ctx, entity.AuditEntity(), entity.AuditID(), changes)
	return entity, nil
}

// save writes every column of the entity. Versioned entities are guarded by
// their version so a lost update surfaces as ErrStaleVersion.
func save(tx *gorm.DB, entity models.Tracked) error {
	q := tx.Model(entity).Select("*").Omit(clause.Associations)
	versioned, ok := entity.(models.Versioned)
	if !ok {
		return q.Updates(entity).Error
	}
	current := versioned.CurrentVersion()
	versioned.SetVersion(current + 1)
	res := q.Where("version = ?", current).Updates(entity)
	if res.Error != nil {
		versioned.SetVersion(current)
		return res.Error
	}
	if res.RowsAffected == 0 {
		versioned.SetVersion(current)
		return dbpkg.ErrStaleVersion
	}
	return nil
}

func (s *Saver) record(ctx context.Context, entity enums.AuditEntity, id uint, changes []Change) {
	if len(changes) == 0 {
		return
	}
	changedAt := s.now()
	rows := make([]models.UpdateLog, 0, len(changes))
	for _, change := range changes {
		row := models.UpdateLog{
			EntityType:   entity.String(),
			EntityID:     id,
			ChangedAt:    changedAt,
			PropertyName: change.Property,
			OldValue:     change.Old,
			NewValue:     change.New,
		}
		row.AttachParent(entity, id)
		rows = append(rows, row)
	}
	if err := s.writeLogs(ctx, rows); err != nil {
		logCtx := s.logg.WithEntity(ctx, entity.String(), id)
		logCtx = s.logg.WithFields(logCtx, map[string]any{"changes": len(rows), "error": err.Error()})
		s.logg.Warn(logCtx, "update log write failed after commit")
	}
}

func (s *Saver) insertLogs(ctx context.Context, rows []models.UpdateLog) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}
