package models

import (
	"time"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Auditable carries the bookkeeping columns shared by every audited entity.
type Auditable struct {
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
	Notes     *string   `gorm:"column:notes"`
}

// MarkCreated stamps both timestamps for a new row.
func (a *Auditable) MarkCreated(now time.Time) {
	a.CreatedAt = now
	a.UpdatedAt = now
}

// MarkUpdated stamps the modification time.
func (a *Auditable) MarkUpdated(now time.Time) {
	a.UpdatedAt = now
}

// Tracked is implemented by entities whose saves derive update log rows.
type Tracked interface {
	AuditEntity() enums.AuditEntity
	AuditID() uint
	MarkCreated(now time.Time)
	MarkUpdated(now time.Time)
}

// Versioned entities carry an optimistic concurrency counter next to their row lock.
type Versioned interface {
	CurrentVersion() int64
	SetVersion(v int64)
}
