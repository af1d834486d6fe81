package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
)

const maxQueryText = 100

// ParseQueryID reads an optional positive id filter; 0 means unset.
func ParseQueryID(r *http.Request, key string) (uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive id").WithDetails(map[string]any{"field": key})
	}
	return uint(value), nil
}

// ParseQueryText reads an optional free-text filter such as a country or a
// name search, trimmed and capped in length.
func ParseQueryText(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if utf8.RuneCountInString(raw) > maxQueryText {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter too long").WithDetails(map[string]any{"field": key, "max": maxQueryText})
	}
	return raw, nil
}
