package repo

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseWithTxKeepsOriginalWhenNil(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if got := base.WithTx(nil); got.db != db {
		t.Fatalf("expected nil tx to keep the base connection")
	}
	tx := db.Session(&gorm.Session{})
	if got := base.WithTx(tx); got.db != tx {
		t.Fatalf("expected base bound to tx")
	}
}

func TestMapErrorClassifies(t *testing.T) {
	if err := MapError(nil, "hotel"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if code := pkgerrors.CodeOf(MapError(gorm.ErrRecordNotFound, "hotel")); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %s", code)
	}
	if code := pkgerrors.CodeOf(MapError(errors.New("conn reset"), "hotel")); code != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency, got %s", code)
	}
	typed := pkgerrors.New(pkgerrors.CodeConflict, "taken")
	if got := MapError(typed, "hotel"); got != error(typed) {
		t.Fatalf("expected typed error to pass through, got %v", got)
	}
}
