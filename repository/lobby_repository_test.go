package repository

import (
	"context"
	"testing"

	"tempvoice/repository/testutil"
	"tempvoice/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyRepository_UpsertAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLobbyRepository(testDB.DB)
	ctx := context.Background()

	lobby := testutil.CreateTestLobby(100, 200)
	err := repo.Upsert(ctx, lobby)
	require.NoError(t, err)
	assert.False(t, lobby.CreatedAt.IsZero())

	got, err := repo.Get(ctx, 100, 200)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.GuildID)
	assert.Equal(t, int64(200), got.ChannelID)
	assert.Nil(t, got.Settings.MaxChannelsPerOwner)
}

func TestLobbyRepository_GetUnbound(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLobbyRepository(testDB.DB)
	ctx := context.Background()

	got, err := repo.Get(ctx, 100, 424242)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLobbyRepository_RebindReplacesOverrides(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLobbyRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobbyWithQuota(100, 200, 5)))

	got, err := repo.Get(ctx, 100, 200)
	require.NoError(t, err)
	require.NotNil(t, got.Settings.MaxChannelsPerOwner)
	assert.Equal(t, 5, *got.Settings.MaxChannelsPerOwner)

	// Rebinding without overrides clears the old ones
	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobby(100, 200)))

	got, err = repo.Get(ctx, 100, 200)
	require.NoError(t, err)
	assert.Nil(t, got.Settings.MaxChannelsPerOwner)
}

func TestLobbyRepository_Delete(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLobbyRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobby(100, 200)))
	require.NoError(t, repo.Delete(ctx, 100, 200))

	got, err := repo.Get(ctx, 100, 200)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.Delete(ctx, 100, 200)
	assert.ErrorIs(t, err, service.ErrLobbyNotFound)
}

func TestLobbyRepository_ListByGuild(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLobbyRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobby(100, 200)))
	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobby(100, 201)))
	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestLobby(999, 202)))

	lobbies, err := repo.ListByGuild(ctx, 100)
	require.NoError(t, err)
	require.Len(t, lobbies, 2)

	var channelIDs []int64
	for _, l := range lobbies {
		channelIDs = append(channelIDs, l.ChannelID)
	}
	assert.ElementsMatch(t, []int64{200, 201}, channelIDs)
}
