package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/allotments-backend/pkg/db/dbtest"
	"github.com/angelmondragon/allotments-backend/pkg/db/models"
	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

func TestEmitStoresEnvelopeInsideTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	event := DomainEvent{
		EventType:     enums.EventReservationStatusChanged,
		AggregateType: enums.AggregateReservation,
		AggregateID:   42,
		Data: ReservationStatusChangedEvent{
			ReservationID: 42,
			From:          enums.ReservationStatusDraft,
			To:            enums.ReservationStatusPendingDeposit,
		},
	}

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, event)
	}))

	rolledBack := errors.New("rollback")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(ctx, tx, event))
		return rolledBack
	})
	require.ErrorIs(t, err, rolledBack)

	rows, err := repo.ListByAggregate(ctx, string(enums.AggregateReservation), 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, envelopeVersion, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, enums.EventReservationStatusChanged, env.EventType)
	require.JSONEq(t, `{"reservationId":42,"from":"draft","to":"pending_deposit","changedAt":"0001-01-01T00:00:00Z"}`, string(env.Data))
}

func TestDecodeEnvelopeRejectsUninterpretablePayloads(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       `not json`,
		"future version": `{"version":2,"eventId":"e1","data":{}}`,
		"missing id":     `{"version":1,"data":{}}`,
		"missing data":   `{"version":1,"eventId":"e1"}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		require.Error(t, err, name)
	}

	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e1","eventType":"reservation_line_reserved","data":{"qty":2}}`))
	require.NoError(t, err)
	require.Equal(t, enums.EventReservationLineReserved, env.EventType)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	err := svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "order_paid", AggregateType: enums.AggregateReservation})
	require.Error(t, err)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestClaimMarkAndRetention(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, client.DB(), DomainEvent{
			EventType:     enums.EventReservationLineReserved,
			AggregateType: enums.AggregateReservation,
			AggregateID:   uint(i + 1),
			Data:          LineReservedEvent{ReservationID: uint(i + 1), Qty: 1},
		}))
	}

	var claimed []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.ClaimUnpublished(tx, 2, 5)
		if err != nil {
			return err
		}
		claimed = rows
		if err := repo.MarkPublished(tx, rows[0].ID, time.Now().UTC().Add(-48*time.Hour)); err != nil {
			return err
		}
		return repo.MarkFailed(tx, rows[1].ID, errors.New("publish timeout"))
	}))
	require.Len(t, claimed, 2)

	var failed models.OutboxEvent
	require.NoError(t, client.DB().First(&failed, "id = ?", claimed[1].ID).Error)
	require.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	require.Equal(t, "publish timeout", *failed.LastError)

	var fresh models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.ClaimUnpublished(tx, 10, 1)
		require.Len(t, rows, 1, "rows at max attempts are not claimed")
		fresh = rows[0]
		return err
	}))

	require.NoError(t, repo.MarkTerminal(client.DB(), fresh.ID, errors.New("malformed envelope"), 5))
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.ClaimUnpublished(tx, 10, 5)
		require.Len(t, rows, 1)
		require.Equal(t, claimed[1].ID, rows[0].ID, "terminal rows are parked")
		return err
	}))

	deleted, err := repo.DeletePublishedBefore(ctx, client.DB(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
	require.EqualValues(t, 2, dbtest.CountRows(t, client, &models.OutboxEvent{}, ""))
}
