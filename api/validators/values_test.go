package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
)

func withParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestParseIDParam(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "lineId", "42")
	id, err := ParseIDParam(req, "lineId")
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d err=%v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "lineId", bad)
		if _, err := ParseIDParam(req, "lineId"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%q: expected validation error, got %v", bad, err)
		}
	}
}

func TestParseDates(t *testing.T) {
	d, err := ParseDate("startDate", "2026-07-01")
	if err != nil || !d.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v %v", d, err)
	}
	if _, err := ParseDate("startDate", "07/01/2026"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	blank := "  "
	if got, err := ParseOptionalDate("due", &blank); got != nil || err != nil {
		t.Fatalf("blank date should be nil, got %v %v", got, err)
	}

	now := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)
	if got, _ := ParseTimestamp("paidAt", "", now); !got.Equal(now) {
		t.Fatalf("blank timestamp should default to now, got %v", got)
	}
	if got, _ := ParseTimestamp("paidAt", "2026-07-02T10:00:00+02:00", now); !got.Equal(time.Date(2026, 7, 2, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", got)
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("price", "120.50")
	if err != nil || d.String() != "120.5" {
		t.Fatalf("unexpected %v %v", d, err)
	}
	if _, err := ParseAmount("price", "12,50"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownAndInvalid(t *testing.T) {
	type payload struct {
		Qty int `json:"qty" validate:"required,gt=0"`
	}
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":1,"extra":true}`))
	if err := DecodeJSONBody(req, &p); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected unknown field rejection, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":0}`))
	err := DecodeJSONBody(req, &p)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["qty"] != "is required" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestDecodeJSONBodyDomainTags(t *testing.T) {
	type line struct {
		Currency string `json:"currency" validate:"required,currency"`
		Price    string `json:"pricePerNight" validate:"required,amount"`
	}
	type payload struct {
		StartDate string  `json:"startDate" validate:"required,isodate"`
		DueDate   *string `json:"dueDate,omitempty" validate:"omitempty,isodate"`
		Status    string  `json:"status" validate:"omitempty,reservation_status"`
		Lines     []line  `json:"lines" validate:"required,min=1,dive"`
	}

	var ok payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"startDate":"2026-07-01","status":"pending_deposit","lines":[{"currency":"eur","pricePerNight":"89.90"}]}`))
	if err := DecodeJSONBody(req, &ok); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	var bad payload
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"startDate":"01/07/2026","dueDate":"tomorrow","status":"booked","lines":[{"currency":"XYZ","pricePerNight":"-5"}]}`))
	typed := pkgerrors.As(DecodeJSONBody(req, &bad))
	if typed == nil {
		t.Fatalf("expected typed validation error")
	}
	details, _ := typed.Details().(map[string]string)
	want := map[string]string{
		"startDate":              "must be a date formatted YYYY-MM-DD",
		"dueDate":                "must be a date formatted YYYY-MM-DD",
		"status":                 "must be a reservation status",
		"lines[0].currency":      "must be a supported ISO 4217 currency",
		"lines[0].pricePerNight": "must be a non-negative decimal amount",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Fatalf("field %s: expected %q, got %q (all: %#v)", field, msg, details[field], details)
		}
	}
}

func TestParseQueryTextCapsLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/alerts?q=+Lisbon+", nil)
	if got, err := ParseQueryText(req, "q"); err != nil || got != "Lisbon" {
		t.Fatalf("unexpected %q %v", got, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/alerts?q="+strings.Repeat("a", maxQueryText+1), nil)
	if _, err := ParseQueryText(req, "q"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
