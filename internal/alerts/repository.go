package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/inventory"
	"github.com/angelmondragon/allotments-backend/internal/repo"
	"github.com/angelmondragon/allotments-backend/internal/reservations"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Repository loads alert candidates with plain, non-locking reads.
type Repository struct {
	repo.Base
	inventory inventory.Repository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db), inventory: inventory.NewRepository(db)}
}

type hotelRef struct {
	ID      uint
	Name    string
	Country string
}

// Candidates returns every option, deposit and balance due date between
// from and until.
func (r *Repository) Candidates(ctx context.Context, from, until time.Time) ([]Candidate, error) {
	options, err := r.optionCandidates(ctx, from, until)
	if err != nil {
		return nil, err
	}
	dues, err := r.reservationCandidates(ctx, from, until)
	if err != nil {
		return nil, err
	}
	return append(options, dues...), nil
}

func (r *Repository) optionCandidates(ctx context.Context, from, until time.Time) ([]Candidate, error) {
	var allotments []models.Allotment
	err := r.DB(ctx).
		Preload("Lines").
		Preload("Payments").
		Where("status = ? AND option_due_date IS NOT NULL AND option_due_date >= ? AND option_due_date <= ?",
			enums.AllotmentStatusOption, from, until).
		Find(&allotments).Error
	if err != nil {
		return nil, err
	}
	if len(allotments) == 0 {
		return nil, nil
	}

	hotelIDs := make([]uint, 0, len(allotments))
	var lineIDs []uint
	for _, a := range allotments {
		hotelIDs = append(hotelIDs, a.HotelID)
		for _, line := range a.Lines {
			lineIDs = append(lineIDs, line.ID)
		}
	}
	hotels, err := r.hotels(ctx, hotelIDs)
	if err != nil {
		return nil, err
	}
	held, err := r.inventory.ReservedQtyByLine(ctx, lineIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(allotments))
	for _, a := range allotments {
		nights := decimal.NewFromInt(int64(a.EndDate.Sub(a.StartDate).Hours() / 24))
		remaining := 0
		cost := decimal.Zero
		for _, line := range a.Lines {
			remaining += line.Unreserved() - held[line.ID]
			cost = cost.Add(line.PricePerNight.Mul(decimal.NewFromInt(int64(line.Unreserved()))).Mul(nights))
		}
		for _, p := range a.Payments {
			cost = cost.Sub(p.Amount)
		}
		if cost.IsNegative() {
			cost = decimal.Zero
		}
		hotel := hotels[a.HotelID]
		out = append(out, Candidate{
			Kind:           enums.AlertKindOptionDue,
			DueDate:        *a.OptionDueDate,
			AllotmentID:    a.ID,
			Title:          a.Title,
			HotelIDs:       []uint{hotel.ID},
			HotelNames:     []string{hotel.Name},
			Countries:      []string{hotel.Country},
			RemainingRooms: remaining,
			Outstanding:    cost,
		})
	}
	return out, nil
}

func (r *Repository) reservationCandidates(ctx context.Context, from, until time.Time) ([]Candidate, error) {
	var list []models.Reservation
	err := r.DB(ctx).
		Preload("Lines").
		Preload("Payments").
		Where("status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusDraft,
			enums.ReservationStatusPendingDeposit,
			enums.ReservationStatusConfirmed,
		}).
		Where("(deposit_due_date >= ? AND deposit_due_date <= ?) OR (balance_due_date >= ? AND balance_due_date <= ?)",
			from, until, from, until).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	customerIDs := make([]uint, 0, len(list))
	for _, res := range list {
		customerIDs = append(customerIDs, res.CustomerID)
	}
	var customers []models.Customer
	if err := r.DB(ctx).Where("id IN ?", customerIDs).Find(&customers).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}
	hotelsByRes, err := r.reservationHotels(ctx, list)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, res := range list {
		customer := byID[res.CustomerID]
		summary := reservations.Summarize(res)
		base := Candidate{
			ReservationID: res.ID,
			Title:         customer.Name,
			CustomerID:    customer.ID,
			CustomerName:  customer.Name,
		}
		for _, h := range hotelsByRes[res.ID] {
			base.HotelIDs = append(base.HotelIDs, h.ID)
			base.HotelNames = append(base.HotelNames, h.Name)
			base.Countries = append(base.Countries, h.Country)
		}
		if customer.Country != nil {
			base.Countries = append(base.Countries, *customer.Country)
		}

		if due := res.DepositDueDate; due != nil && within(*due, from, until) &&
			(res.Status == enums.ReservationStatusDraft || res.Status == enums.ReservationStatusPendingDeposit) &&
			summary.DepositOutstanding.IsPositive() {
			c := base
			c.Kind = enums.AlertKindDepositDue
			c.DueDate = *due
			c.Outstanding = summary.DepositOutstanding
			out = append(out, c)
		}
		if due := res.BalanceDueDate; due != nil && within(*due, from, until) &&
			(res.Status == enums.ReservationStatusPendingDeposit || res.Status == enums.ReservationStatusConfirmed) &&
			summary.Outstanding.IsPositive() {
			c := base
			c.Kind = enums.AlertKindBalanceDue
			c.DueDate = *due
			c.Outstanding = summary.Outstanding
			out = append(out, c)
		}
	}
	return out, nil
}

func within(t, from, until time.Time) bool {
	return !t.Before(from) && !t.After(until)
}

func (r *Repository) hotels(ctx context.Context, ids []uint) (map[uint]hotelRef, error) {
	var rows []hotelRef
	err := r.DB(ctx).
		Table("hotels AS h").
		Joins("JOIN cities c ON c.id = h.city_id").
		Where("h.id IN ?", ids).
		Select("h.id AS id, h.name AS name, c.country AS country").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]hotelRef, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// reservationHotels resolves the distinct hotels each reservation draws rooms from.
func (r *Repository) reservationHotels(ctx context.Context, list []models.Reservation) (map[uint][]hotelRef, error) {
	ids := make([]uint, 0, len(list))
	for _, res := range list {
		ids = append(ids, res.ID)
	}
	var rows []struct {
		ReservationID uint
		ID            uint
		Name          string
		Country       string
	}
	err := r.DB(ctx).Raw(`
		SELECT DISTINCT rl.reservation_id AS reservation_id, h.id AS id, h.name AS name, c.country AS country
		FROM reservation_lines rl
		JOIN allotment_room_types art ON art.id = rl.allotment_room_type_id
		JOIN allotments a ON a.id = art.allotment_id
		JOIN hotels h ON h.id = a.hotel_id
		JOIN cities c ON c.id = h.city_id
		WHERE rl.reservation_id IN ?
		ORDER BY rl.reservation_id, h.id`, ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint][]hotelRef, len(list))
	for _, row := range rows {
		out[row.ReservationID] = append(out[row.ReservationID], hotelRef{ID: row.ID, Name: row.Name, Country: row.Country})
	}
	return out, nil
}
