package customers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/allotments-backend/internal/audit"
	dbpkg "github.com/angelmondragon/allotments-backend/pkg/db"
	"github.com/angelmondragon/allotments-backend/pkg/db/dbtest"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

func newService(t *testing.T) (Service, *dbpkg.Client) {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "customers-test", Output: io.Discard})
	saver, err := audit.NewSaver(client, logg, dbpkg.RetryPolicy{BaseDelay: time.Millisecond})
	require.NoError(t, err)
	svc, err := NewService(client.DB(), client, saver)
	require.NoError(t, err)
	return svc, client
}

func strPtr(v string) *string { return &v }

func TestCreateCustomer(t *testing.T) {
	svc, client := newService(t)

	customer, err := svc.Create(context.Background(), CreateInput{Name: "  Alice ", Country: strPtr("DE")})
	require.NoError(t, err)
	require.NotZero(t, customer.ID)
	require.Equal(t, "Alice", customer.Name)
	require.False(t, customer.CreatedAt.IsZero())
	require.Zero(t, dbtest.CountRows(t, client, &models.UpdateLog{}, ""))

	_, err = svc.Create(context.Background(), CreateInput{Name: " "})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateCustomerLogsChangedFields(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	customer, err := svc.Create(ctx, CreateInput{Name: "Alice"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, customer.ID, UpdateInput{Name: strPtr("Alicia"), Phone: strPtr("+49 30 1234")})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.Name)
	require.Equal(t, "+49 30 1234", *updated.Phone)

	require.EqualValues(t, 2, dbtest.CountRows(t, client, &models.UpdateLog{},
		"entity_type = ? AND customer_id = ?", enums.AuditEntityCustomer.String(), customer.ID))

	got, err := svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, "Alicia", got.Name)
}

func TestUpdateCustomerErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 42, UpdateInput{Name: strPtr("Ghost")})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Update(ctx, 42, UpdateInput{Name: strPtr("")})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Get(ctx, 42)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
