package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/allotments-backend/api/controllers"
	"github.com/angelmondragon/allotments-backend/api/middleware"
	"github.com/angelmondragon/allotments-backend/internal/alerts"
	"github.com/angelmondragon/allotments-backend/internal/allotments"
	"github.com/angelmondragon/allotments-backend/internal/catalog"
	"github.com/angelmondragon/allotments-backend/internal/customers"
	"github.com/angelmondragon/allotments-backend/internal/inventory"
	"github.com/angelmondragon/allotments-backend/internal/reservations"
	"github.com/angelmondragon/allotments-backend/pkg/config"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
	"github.com/angelmondragon/allotments-backend/pkg/redis"
)

// Services bundles the domain services the HTTP surface exposes.
type Services struct {
	Catalog      catalog.Service
	Allotments   allotments.Service
	Inventory    inventory.Service
	Customers    customers.Service
	Reservations reservations.Service
	Alerts       *alerts.Service
}

// Deps are the infrastructure pieces the router needs beyond the services.
type Deps struct {
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Readiness   map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, deps.Readiness))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/cities", controllers.CreateCity(svc.Catalog, logg))
		r.Route("/hotels", func(r chi.Router) {
			r.Post("/", controllers.CreateHotel(svc.Catalog, logg))
			r.Get("/{hotelId}", controllers.GetHotel(svc.Catalog, logg))
			r.Patch("/{hotelId}", controllers.UpdateHotel(svc.Catalog, logg))
			r.Post("/{hotelId}/room-types", controllers.AddRoomType(svc.Catalog, logg))
		})

		r.Route("/allotments", func(r chi.Router) {
			r.Post("/", controllers.CreateAllotment(svc.Allotments, logg))
			r.Get("/{allotmentId}", controllers.GetAllotment(svc.Allotments, logg))
			r.Delete("/{allotmentId}", controllers.DeleteAllotment(svc.Allotments, logg))
			r.Get("/{allotmentId}/availability", controllers.AllotmentAvailability(svc.Inventory, logg))
			r.Post("/{allotmentId}/payments", controllers.AddAllotmentPayment(svc.Allotments, logg))
			r.Post("/{allotmentId}/status", controllers.SetAllotmentStatus(svc.Allotments, logg))
		})

		r.Route("/inventory-lines/{lineId}", func(r chi.Router) {
			r.Patch("/", controllers.UpdateInventoryLine(svc.Allotments, logg))
			r.Post("/cancellations", controllers.RecordLineCancellation(svc.Allotments, logg))
			r.Get("/availability", controllers.LineAvailability(svc.Inventory, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(svc.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(svc.Customers, logg))
			r.Patch("/{customerId}", controllers.UpdateCustomer(svc.Customers, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.CreateReservation(svc.Reservations, logg))
			r.Route("/{reservationId}", func(r chi.Router) {
				r.Get("/", controllers.GetReservation(svc.Reservations, logg))
				r.Post("/lines", controllers.ReserveLine(svc.Inventory, logg))
				r.Put("/lines", controllers.ReplaceReservationLines(svc.Reservations, logg))
				r.Post("/services", controllers.AddServiceCharge(svc.Reservations, logg))
				r.Post("/transitions", controllers.TransitionReservation(svc.Reservations, logg))
				r.Post("/cancel", controllers.CancelReservation(svc.Reservations, logg))
				r.Post("/payments", controllers.RecordReservationPayment(svc.Reservations, logg))
			})
		})

		var lister controllers.AlertLister
		if svc.Alerts != nil {
			lister = svc.Alerts
		}
		r.Get("/alerts", controllers.ListAlerts(lister, logg))
	})

	return r
}
