package models

import "github.com/angelmondragon/allotments-backend/pkg/enums"

// City is a destination; names are unique per country.
type City struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name    string `gorm:"column:name;type:varchar(128);not null;uniqueIndex:ux_cities_name_country"`
	Country string `gorm:"column:country;type:varchar(64);not null;uniqueIndex:ux_cities_name_country"`
}

// Hotel belongs to a city and owns its room types.
type Hotel struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	CityID    uint       `gorm:"column:city_id;not null;index"`
	Name      string     `gorm:"column:name;type:varchar(160);not null"`
	Stars     int        `gorm:"column:stars;not null;default:0"`
	Email     *string    `gorm:"column:email;type:varchar(160)"`
	Phone     *string    `gorm:"column:phone;type:varchar(40)"`
	Address   *string    `gorm:"column:address"`
	RoomTypes []RoomType `gorm:"foreignKey:HotelID;constraint:OnDelete:CASCADE"`
	Auditable
}

func (h *Hotel) AuditEntity() enums.AuditEntity { return enums.AuditEntityHotel }
func (h *Hotel) AuditID() uint                  { return h.ID }

// RoomType is a kind of room a hotel sells (double, suite, ...).
type RoomType struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	HotelID  uint   `gorm:"column:hotel_id;not null;index"`
	Name     string `gorm:"column:name;type:varchar(128);not null"`
	Capacity int    `gorm:"column:capacity;not null;default:2"`
}
