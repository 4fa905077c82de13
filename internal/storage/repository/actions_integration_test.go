package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobot/store/internal/models"
	"github.com/photobot/store/internal/storage/postgresql"
)

func TestStorage_AppendAction(t *testing.T) {
	storage, db := setupTestStorage(t)
	verification := NewTestVerification(db)
	ctx := context.Background()
	require.NoError(t, storage.UpsertUser(ctx, 1, nil, ""))
	before := verification.dbNow(t)

	details, err := models.EncodeDetails(models.SubscriptionChangedDetails{DurationDays: 30, NewStatus: true})
	require.NoError(t, err)

	action, err := storage.AppendAction(ctx, 1, models.ActionSubscriptionChanged, details)
	require.NoError(t, err)
	assert.Positive(t, action.ID)
	assert.False(t, action.CreatedAt.Before(before))

	actions, err := storage.ListActions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, action, actions[0])
	assert.Equal(t, `{"duration_days":30,"new_status":true}`, actions[0].Details)
}

func TestStorage_AppendAction_UnknownUser(t *testing.T) {
	storage, _ := setupTestStorage(t)

	_, err := storage.AppendAction(context.Background(), 404, "anything", "{}")
	assert.ErrorIs(t, err, postgresql.ErrConstraintViolation)
}

func TestStorage_AppendAction_UserInsertedInSameUnit(t *testing.T) {
	storage, db := setupTestStorage(t)
	verification := NewTestVerification(db)
	ctx := context.Background()

	err := storage.WithinTx(ctx, func(ctx context.Context) error {
		if err := storage.UpsertUser(ctx, 3, nil, ""); err != nil {
			return err
		}
		_, err := storage.AppendAction(ctx, 3, "first_contact", "{}")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, verification.CountActions(t, 3, "first_contact"))
}

func TestStorage_AppendAction_RolledBackWithUnit(t *testing.T) {
	listener := &recordingListener{}
	storage, db := setupTestStorage(t, WithActionListener(listener))
	verification := NewTestVerification(db)
	ctx := context.Background()
	require.NoError(t, storage.UpsertUser(ctx, 1, nil, ""))

	errAbort := errors.New("abort")
	err := storage.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := storage.AppendAction(ctx, 1, "x", "{}"); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.Equal(t, 0, verification.CountActions(t, 1, "x"))
	assert.Empty(t, listener.actions)
}

func TestStorage_ListActions_Order(t *testing.T) {
	storage, _ := setupTestStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.UpsertUser(ctx, 1, nil, ""))

	for _, typ := range []string{"a", "b", "c"} {
		_, err := storage.AppendAction(ctx, 1, typ, "{}")
		require.NoError(t, err)
	}

	actions, err := storage.ListActions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, "a", actions[0].ActionType)
	assert.Equal(t, "b", actions[1].ActionType)
	assert.Equal(t, "c", actions[2].ActionType)
}
