// Package dbtest opens throwaway sqlite databases with the full schema for package tests.
package dbtest

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// Open returns a client over a fresh WAL sqlite file. Write transactions begin
// IMMEDIATE and wait on a busy timeout, so concurrent writers serialize the
// way row-locked writers do on a server database.
func Open(t testing.TB) *db.Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "allotments.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL&_foreign_keys=1", path)

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                db.UTCNow,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.FromConn(conn, sql.LevelDefault)
}

// Fixture is a hotel with one allotment holding one inventory line, plus a customer.
type Fixture struct {
	City      models.City
	Hotel     models.Hotel
	RoomType  models.RoomType
	Allotment models.Allotment
	Line      models.InventoryLine
	Customer  models.Customer
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedInventory creates a Fixture whose line has the given total quantity.
func SeedInventory(t testing.TB, client *db.Client, quantity int) Fixture {
	t.Helper()
	conn := client.DB()
	now := time.Now().UTC()

	f := Fixture{
		City: models.City{Name: "Antalya", Country: "TR"},
	}
	mustCreate(t, conn, &f.City)

	f.Hotel = models.Hotel{CityID: f.City.ID, Name: "Sea Breeze Resort", Stars: 5}
	f.Hotel.MarkCreated(now)
	mustCreate(t, conn, &f.Hotel)

	f.RoomType = models.RoomType{HotelID: f.Hotel.ID, Name: "Double Sea View", Capacity: 2}
	mustCreate(t, conn, &f.RoomType)

	f.Allotment = models.Allotment{
		HotelID:   f.Hotel.ID,
		Title:     "Summer block",
		StartDate: Date(2026, time.July, 1),
		EndDate:   Date(2026, time.July, 15),
		Status:    enums.AllotmentStatusConfirmed,
	}
	f.Allotment.MarkCreated(now)
	mustCreate(t, conn, &f.Allotment)

	f.Line = models.InventoryLine{
		AllotmentID:   f.Allotment.ID,
		RoomTypeID:    f.RoomType.ID,
		QuantityTotal: quantity,
		PricePerNight: decimal.RequireFromString("120.00"),
		Currency:      enums.CurrencyEUR,
	}
	f.Line.MarkCreated(now)
	mustCreate(t, conn, &f.Line)

	f.Customer = models.Customer{Name: "Alice"}
	f.Customer.MarkCreated(now)
	mustCreate(t, conn, &f.Customer)

	return f
}

// SeedReservation creates a reservation for the customer in the given status.
func SeedReservation(t testing.TB, client *db.Client, customerID uint, status enums.ReservationStatus) models.Reservation {
	t.Helper()
	res := models.Reservation{CustomerID: customerID, Status: status}
	res.MarkCreated(time.Now().UTC())
	mustCreate(t, client.DB(), &res)
	return res
}

// CountRows returns the number of rows of model matching the optional condition.
func CountRows(t testing.TB, client *db.Client, model any, query string, args ...any) int64 {
	t.Helper()
	q := client.DB().Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
