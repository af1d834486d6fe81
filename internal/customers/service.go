package customers

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/internal/audit"
	"github.com/angelmondragon/allotments-backend/internal/repo"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries the fields of a new customer.
type CreateInput struct {
	Name    string
	Email   *string
	Phone   *string
	Country *string
	Notes   *string
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Country *string
	Notes   *string
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Customer, error)
	Update(ctx context.Context, id uint, input UpdateInput) (*models.Customer, error)
	Get(ctx context.Context, id uint) (*models.Customer, error)
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

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	customer := &models.Customer{
		Name:    name,
		Email:   input.Email,
		Phone:   input.Phone,
		Country: input.Country,
	}
	customer.Notes = input.Notes
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.saver.Create(tx, customer)
	})
	if err != nil {
		return nil, repo.MapError(err, "customer")
	}
	return customer, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput) (*models.Customer, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be blank")
	}
	customer, err := audit.Update(ctx, s.saver, id, func(tx *gorm.DB, c *models.Customer) error {
		if input.Name != nil {
			c.Name = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			c.Email = input.Email
		}
		if input.Phone != nil {
			c.Phone = input.Phone
		}
		if input.Country != nil {
			c.Country = input.Country
		}
		if input.Notes != nil {
			c.Notes = input.Notes
		}
		return nil
	})
	if err != nil {
		return nil, repo.MapError(err, "customer")
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.base.DB(ctx).First(&customer, id).Error; err != nil {
		return nil, repo.MapError(err, "customer")
	}
	return &customer, nil
}
