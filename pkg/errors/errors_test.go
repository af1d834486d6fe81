package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("reserve: %w", New(CodeNotFound, "no line"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(Wrap(CodeDependency, stdErrors.New("timeout"), "reserve")); got != CodeDependency {
		t.Fatalf("expected dependency code, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("untyped errors should map to internal, got %s", got)
	}
}

func TestDumpExtractsDriverFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40P01", Message: "deadlock detected", TableName: "allotment_room_types"}
	d := Dump(Wrap(CodeDependency, pgErr, "reserve"))
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if d.PGCode != "40P01" || d.PGTable != "allotment_room_types" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}

	myErr := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	d = Dump(fmt.Errorf("lock line: %w", myErr))
	if d.MySQLNumber != 1213 || d.MySQLMessage != "Deadlock found" {
		t.Fatalf("unexpected mysql fields %+v", d)
	}

	if Dump(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil")
	}
}

func TestDumpSQLiteBusyAndFields(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy, ExtendedCode: sqlite3.ErrBusySnapshot}
	d := Dump(fmt.Errorf("lock line: %w", busy))
	if d.Driver != "sqlite" || d.SQLiteCode != int(sqlite3.ErrBusy) {
		t.Fatalf("unexpected sqlite fields %+v", d)
	}

	fields := d.Fields()
	if _, ok := fields["sqlite_code"]; !ok {
		t.Fatalf("expected sqlite_code in fields %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("unset pg fields must be omitted: %v", fields)
	}
	if fields["db_driver"] != "sqlite" {
		t.Fatalf("unexpected driver field %v", fields["db_driver"])
	}
}

func TestErrorStringKeepsCauseButMessageDoesNot(t *testing.T) {
	cause := stdErrors.New("could not serialize access due to concurrent update")
	err := Wrap(CodeDependency, cause, "reservation conflict persisted")

	if got := err.Error(); got != "DEPENDENCY_ERROR: reservation conflict persisted: could not serialize access due to concurrent update" {
		t.Fatalf("unexpected error string %q", got)
	}
	if err.Message() != "reservation conflict persisted" {
		t.Fatalf("message must not carry the cause, got %q", err.Message())
	}
	if got := Newf(CodeValidation, "qty must be positive, got %d", 0).Error(); got != "VALIDATION_ERROR: qty must be positive, got 0" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestIsAndIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("reserve: %w", New(CodeStateConflict, "reservation is cancelled"))
	if !Is(wrapped, CodeStateConflict) || Is(wrapped, CodeConflict) {
		t.Fatalf("Is did not follow the wrap chain")
	}
	if Is(nil, CodeInternal) || IsRetryable(nil) {
		t.Fatalf("nil error must not match")
	}
	if IsRetryable(wrapped) {
		t.Fatalf("state conflicts are final")
	}
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("lock wait timeout"), "reservation conflict persisted")) {
		t.Fatalf("dependency errors are retryable")
	}
}
