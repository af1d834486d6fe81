package controllers

import (
	"net/http"

	"github.com/angelmondragon/allotments-backend/api/responses"
	"github.com/angelmondragon/allotments-backend/api/validators"
	"github.com/angelmondragon/allotments-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

type createCityRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Country string `json:"country" validate:"required,max=64"`
}

type createHotelRequest struct {
	CityID  uint    `json:"cityId" validate:"required"`
	Name    string  `json:"name" validate:"required,max=160"`
	Stars   int     `json:"stars" validate:"gte=0,lte=5"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address *string `json:"address,omitempty"`
}

type updateHotelRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=160"`
	Stars   *int    `json:"stars,omitempty" validate:"omitempty,gte=0,lte=5"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type addRoomTypeRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

func CreateCity(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var payload createCityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		city, err := svc.CreateCity(r.Context(), catalog.CityInput{Name: payload.Name, Country: payload.Country})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toCityView(city))
	}
}

func CreateHotel(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var payload createHotelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hotel, err := svc.CreateHotel(r.Context(), catalog.HotelInput{
			CityID:  payload.CityID,
			Name:    payload.Name,
			Stars:   payload.Stars,
			Email:   payload.Email,
			Phone:   payload.Phone,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toHotelView(hotel))
	}
}

func UpdateHotel(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		hotelID, err := validators.ParseIDParam(r, "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateHotelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hotel, err := svc.UpdateHotel(r.Context(), hotelID, catalog.HotelUpdate{
			Name:    payload.Name,
			Stars:   payload.Stars,
			Email:   payload.Email,
			Phone:   payload.Phone,
			Address: payload.Address,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toHotelView(hotel))
	}
}

func GetHotel(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		hotelID, err := validators.ParseIDParam(r, "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hotel, err := svc.GetHotel(r.Context(), hotelID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toHotelView(hotel))
	}
}

func AddRoomType(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		hotelID, err := validators.ParseIDParam(r, "hotelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addRoomTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rt, err := svc.AddRoomType(r.Context(), hotelID, catalog.RoomTypeInput{Name: payload.Name, Capacity: payload.Capacity})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toRoomTypeView(*rt))
	}
}
