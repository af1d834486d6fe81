package inventory

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/repo"
	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

// LineLocker takes the exclusive row lock on an inventory line for the rest
// of the surrounding transaction.
type LineLocker interface {
	LockLine(ctx context.Context, lineID uint) (*models.InventoryLine, error)
}

// Repository defines persistence operations for inventory lines and the
// reservation lines drawn against them.
type Repository interface {
	LineLocker
	WithTx(tx *gorm.DB) Repository
	FindLine(ctx context.Context, lineID uint) (*models.InventoryLine, error)
	FindLinesByAllotment(ctx context.Context, allotmentID uint) ([]models.InventoryLine, error)
	FindAllotment(ctx context.Context, allotmentID uint) (*models.Allotment, error)
	FindRoomType(ctx context.Context, roomTypeID uint) (*models.RoomType, error)
	FindReservation(ctx context.Context, reservationID uint) (*models.Reservation, error)
	LockReservation(ctx context.Context, reservationID uint) (*models.Reservation, error)
	ReservedQty(ctx context.Context, lineID uint) (int, error)
	ReservedQtyByLine(ctx context.Context, lineIDs []uint) (map[uint]int, error)
	InsertReservationLine(ctx context.Context, line *models.ReservationLine) error
	BumpVersion(ctx context.Context, lineID uint, version int64) error
}

type repository struct {
	repo.Base
}

// NewRepository binds the inventory repository to a GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) LockLine(ctx context.Context, lineID uint) (*models.InventoryLine, error) {
	var line models.InventoryLine
	if err := dbpkg.ForUpdate(r.DB(ctx)).First(&line, lineID).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindLine(ctx context.Context, lineID uint) (*models.InventoryLine, error) {
	var line models.InventoryLine
	if err := r.DB(ctx).First(&line, lineID).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindLinesByAllotment(ctx context.Context, allotmentID uint) ([]models.InventoryLine, error) {
	var lines []models.InventoryLine
	err := r.DB(ctx).
		Where("allotment_id = ?", allotmentID).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) FindAllotment(ctx context.Context, allotmentID uint) (*models.Allotment, error) {
	var allotment models.Allotment
	if err := r.DB(ctx).First(&allotment, allotmentID).Error; err != nil {
		return nil, err
	}
	return &allotment, nil
}

func (r *repository) FindRoomType(ctx context.Context, roomTypeID uint) (*models.RoomType, error) {
	var roomType models.RoomType
	if err := r.DB(ctx).First(&roomType, roomTypeID).Error; err != nil {
		return nil, err
	}
	return &roomType, nil
}

func (r *repository) FindReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.DB(ctx).First(&reservation, reservationID).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// LockReservation re-reads the reservation under a row lock so a concurrent
// status change either commits first or waits for the surrounding transaction.
func (r *repository) LockReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := dbpkg.ForUpdate(r.DB(ctx)).First(&reservation, reservationID).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ReservedQty sums the quantity held on a line by reservations that are not cancelled.
func (r *repository) ReservedQty(ctx context.Context, lineID uint) (int, error) {
	var total int64
	err := r.activeLines(ctx).
		Where("rl.allotment_room_type_id = ?", lineID).
		Select("COALESCE(SUM(rl.qty), 0)").
		Scan(&total).Error
	return int(total), err
}

func (r *repository) ReservedQtyByLine(ctx context.Context, lineIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(lineIDs))
	if len(lineIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		LineID uint
		Total  int64
	}
	err := r.activeLines(ctx).
		Where("rl.allotment_room_type_id IN ?", lineIDs).
		Select("rl.allotment_room_type_id AS line_id, COALESCE(SUM(rl.qty), 0) AS total").
		Group("rl.allotment_room_type_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.LineID] = int(row.Total)
	}
	return out, nil
}

func (r *repository) activeLines(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("reservation_lines AS rl").
		Joins("JOIN reservations r ON r.id = rl.reservation_id").
		Where("r.status <> ?", enums.ReservationStatusCancelled)
}

func (r *repository) InsertReservationLine(ctx context.Context, line *models.ReservationLine) error {
	return r.DB(ctx).Create(line).Error
}

// BumpVersion advances the optimistic version of a line. Zero affected rows
// means another writer got there first.
func (r *repository) BumpVersion(ctx context.Context, lineID uint, version int64) error {
	res := r.DB(ctx).
		Model(&models.InventoryLine{}).
		Where("id = ? AND version = ?", lineID, version).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return dbpkg.ErrStaleVersion
	}
	return nil
}
