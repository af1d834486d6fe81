package catalog

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/audit"
	"github.com/angelmondragon/allotments-backend/internal/repo"
	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
)

const cityUniqueIndex = "ux_cities_name_country"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type CityInput struct {
	Name    string
	Country string
}

type HotelInput struct {
	CityID  uint
	Name    string
	Stars   int
	Email   *string
	Phone   *string
	Address *string
}

// HotelUpdate changes only the fields that are set.
type HotelUpdate struct {
	Name    *string
	Stars   *int
	Email   *string
	Phone   *string
	Address *string
	Notes   *string
}

type RoomTypeInput struct {
	Name     string
	Capacity int
}

// Service manages the destinations, hotels and room types allotments are bought from.
type Service interface {
	CreateCity(ctx context.Context, input CityInput) (*models.City, error)
	CreateHotel(ctx context.Context, input HotelInput) (*models.Hotel, error)
	UpdateHotel(ctx context.Context, id uint, input HotelUpdate) (*models.Hotel, error)
	AddRoomType(ctx context.Context, hotelID uint, input RoomTypeInput) (*models.RoomType, error)
	GetHotel(ctx context.Context, id uint) (*models.Hotel, error)
}

type service struct {
	base  repo.Base
	tx    txRunner
	saver *audit.Saver
}

func NewService(db *gorm.DB, tx txRunner, saver *audit.Saver) (Service, error) {
	if db == nil || tx == nil {
		return nil, fmt.Errorf("database required")
	}
	if saver == nil {
		return nil, fmt.Errorf("audit saver required")
	}
	return &service{base: repo.NewBase(db), tx: tx, saver: saver}, nil
}

func (s *service) CreateCity(ctx context.Context, input CityInput) (*models.City, error) {
	city := &models.City{
		Name:    strings.TrimSpace(input.Name),
		Country: strings.TrimSpace(input.Country),
	}
	if city.Name == "" || city.Country == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city name and country are required")
	}
	if err := s.base.DB(ctx).Create(city).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "city already exists in this country").
				WithDetails(map[string]any{"constraint": cityUniqueIndex})
		}
		return nil, repo.MapError(err, "city")
	}
	return city, nil
}

func (s *service) CreateHotel(ctx context.Context, input HotelInput) (*models.Hotel, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hotel name is required")
	}
	if input.Stars < 0 || input.Stars > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 0 and 5")
	}
	if err := s.base.DB(ctx).First(&models.City{}, input.CityID).Error; err != nil {
		return nil, repo.MapError(err, "city")
	}
	hotel := &models.Hotel{
		CityID:  input.CityID,
		Name:    name,
		Stars:   input.Stars,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.saver.Create(tx, hotel)
	})
	if err != nil {
		return nil, repo.MapError(err, "hotel")
	}
	return hotel, nil
}

func (s *service) UpdateHotel(ctx context.Context, id uint, input HotelUpdate) (*models.Hotel, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hotel name cannot be blank")
	}
	if input.Stars != nil && (*input.Stars < 0 || *input.Stars > 5) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 0 and 5")
	}
	hotel, err := audit.Update(ctx, s.saver, id, func(tx *gorm.DB, h *models.Hotel) error {
		if input.Name != nil {
			h.Name = strings.TrimSpace(*input.Name)
		}
		if input.Stars != nil {
			h.Stars = *input.Stars
		}
		if input.Email != nil {
			h.Email = input.Email
		}
		if input.Phone != nil {
			h.Phone = input.Phone
		}
		if input.Address != nil {
			h.Address = input.Address
		}
		if input.Notes != nil {
			h.Notes = input.Notes
		}
		return nil
	})
	if err != nil {
		return nil, repo.MapError(err, "hotel")
	}
	return hotel, nil
}

func (s *service) AddRoomType(ctx context.Context, hotelID uint, input RoomTypeInput) (*models.RoomType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room type name is required")
	}
	if input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	if err := s.base.DB(ctx).First(&models.Hotel{}, hotelID).Error; err != nil {
		return nil, repo.MapError(err, "hotel")
	}
	roomType := &models.RoomType{HotelID: hotelID, Name: name, Capacity: input.Capacity}
	if err := s.base.DB(ctx).Create(roomType).Error; err != nil {
		return nil, repo.MapError(err, "room type")
	}
	return roomType, nil
}

func (s *service) GetHotel(ctx context.Context, id uint) (*models.Hotel, error) {
	var hotel models.Hotel
	err := s.base.DB(ctx).
		Preload("RoomTypes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&hotel, id).Error
	if err != nil {
		return nil, repo.MapError(err, "hotel")
	}
	return &hotel, nil
}
