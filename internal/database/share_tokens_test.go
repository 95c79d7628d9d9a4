package database

import (
	"context"
	"testing"
	"time"

	"chmura-plikow/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGetShareToken(t *testing.T) {
	ownerID := createTestUser(t, "user_share_token")
	file := createTestFile(t, ownerID, nil, "udostepniony.txt", "udostepniony.txt", 1)

	created, err := testStore.CreateShareToken(context.Background(), CreateShareTokenParams{
		Token:    "token_roundtrip_abc123",
		ItemType: models.ShareItemFile,
		ItemID:   file.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, models.ShareItemFile, created.ItemType)
	require.Equal(t, file.ID, created.ItemID)
	require.Nil(t, created.ExpiresAt)
	require.NotZero(t, created.CreatedAt)

	found, err := testStore.GetShareToken(context.Background(), "token_roundtrip_abc123")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, file.ID, found.ItemID)

	// Nieznany token to nil, nie błąd
	found, err = testStore.GetShareToken(context.Background(), "nie_ma_takiego")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestCreateShareTokenWithExpiry(t *testing.T) {
	ownerID := createTestUser(t, "user_share_expiry")
	folder := createTestFolder(t, ownerID, nil, "Udostępniony", "Udostępniony")

	expiresAt := time.Now().Add(48 * time.Hour)
	created, err := testStore.CreateShareToken(context.Background(), CreateShareTokenParams{
		Token:     "token_expiring_xyz789",
		ItemType:  models.ShareItemFolder,
		ItemID:    folder.ID,
		ExpiresAt: &expiresAt,
	})
	require.NoError(t, err)
	require.NotNil(t, created.ExpiresAt)
	require.WithinDuration(t, expiresAt, *created.ExpiresAt, time.Second)
}

func TestDeleteShareTokensForItem(t *testing.T) {
	ownerID := createTestUser(t, "user_share_cleanup")
	file := createTestFile(t, ownerID, nil, "kasowany.txt", "kasowany.txt", 1)

	// Dwa tokeny na ten sam plik — oba mają zniknąć
	for _, tok := range []string{"cleanup_token_1", "cleanup_token_2"} {
		_, err := testStore.CreateShareToken(context.Background(), CreateShareTokenParams{
			Token:    tok,
			ItemType: models.ShareItemFile,
			ItemID:   file.ID,
		})
		require.NoError(t, err)
	}

	err := testStore.DeleteShareTokensForItem(context.Background(), models.ShareItemFile, file.ID)
	require.NoError(t, err)

	for _, tok := range []string{"cleanup_token_1", "cleanup_token_2"} {
		found, err := testStore.GetShareToken(context.Background(), tok)
		require.NoError(t, err)
		require.Nil(t, found)
	}
}
