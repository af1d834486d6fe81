package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/allotments-backend/api/responses"
	"github.com/angelmondragon/allotments-backend/api/validators"
	"github.com/angelmondragon/allotments-backend/internal/alerts"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

// AlertLister is satisfied by *alerts.Service.
type AlertLister interface {
	List(ctx context.Context, filter alerts.Filter) ([]alerts.Alert, error)
}

// ListAlerts serves GET /alerts?hotelId=&country=&customerId=&q=.
func ListAlerts(svc AlertLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}
		hotelID, err := validators.ParseQueryID(r, "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := validators.ParseQueryID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		country, err := validators.ParseQueryText(r, "country")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search, err := validators.ParseQueryText(r, "q")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), alerts.Filter{
			HotelID:    hotelID,
			CustomerID: customerID,
			Country:    country,
			Search:     search,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"alerts": list,
			"counts": alerts.CountBySeverity(list),
		})
	}
}
