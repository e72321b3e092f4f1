package service

import (
	"context"
	"errors"
	"testing"

	"tempvoice/events"
	"tempvoice/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newProvisioningFixture() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockGuildConfigRepository, *MockLobbyRepository, *MockTempChannelRepository, *MockChannelClient) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockConfigRepo := new(MockGuildConfigRepository)
	mockLobbyRepo := new(MockLobbyRepository)
	mockTempRepo := new(MockTempChannelRepository)
	mockClient := new(MockChannelClient)

	mockUoW.SetRepositories(mockConfigRepo, mockLobbyRepo, mockTempRepo)
	mockFactory.On("Create").Return(mockUoW)

	return mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient
}

func testGuildConfig(guildID int64) *models.GuildConfig {
	return &models.GuildConfig{
		GuildID:  guildID,
		Settings: models.DefaultGuildConfigSettings(),
	}
}

func TestProvisioningService_NotALobby(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(nil, nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	assert.ErrorIs(t, err, ErrNotALobby)
	assert.Nil(t, channel)
	mockClient.AssertNotCalled(t, "CreateVoiceChannel")
	mockTempRepo.AssertNotCalled(t, "Create")
}

func TestProvisioningService_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(models.DefaultMaxChannelsPerOwner, nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Nil(t, channel)
	// Denial creates no partial state
	mockClient.AssertNotCalled(t, "CreateVoiceChannel")
	mockTempRepo.AssertNotCalled(t, "Create")
}

func TestProvisioningService_LobbyOverridesRaiseQuota(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	five := 5
	lobby := &models.Lobby{
		GuildID:   100,
		ChannelID: 200,
		Settings:  models.LobbySettings{MaxChannelsPerOwner: &five},
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(lobby, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	// Over the guild default of 2, under the lobby override of 5
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(3, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string(nil), nil)
	mockTempRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "General Chat", int64(300), false).Return(int64(999), nil)
	mockClient.On("MoveMember", ctx, int64(100), int64(300), int64(999)).Return(nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(999), channel.ChannelID)
}

func TestProvisioningService_Success(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(0, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string{"General Chat"}, nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "General Chat2", int64(300), false).Return(int64(999), nil)
	mockClient.On("MoveMember", ctx, int64(100), int64(300), int64(999)).Return(nil)

	mockTempRepo.On("Create", ctx, mock.MatchedBy(func(c *models.TempChannel) bool {
		return c.ChannelID == 999 &&
			c.GuildID == 100 &&
			c.OwnerID == 300 &&
			c.Purpose == models.PurposeGeneral &&
			c.DisplayName == "General Chat2" &&
			!c.Private &&
			c.LastEmptyAt == nil
	})).Return(nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	require.NoError(t, err)
	assert.Equal(t, "General Chat2", channel.DisplayName)
	assert.Equal(t, int64(300), channel.OwnerID)

	// The provisioned event is published on the record's transaction
	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	event, ok := published[0].(events.ChannelProvisionedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(999), event.ChannelID)

	mockClient.AssertExpectations(t)
	mockTempRepo.AssertExpectations(t)
}

func TestProvisioningService_GamingName(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(0, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string(nil), nil)
	mockTempRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "Valorant 🎮", int64(300), false).Return(int64(999), nil)
	mockClient.On("MoveMember", ctx, int64(100), int64(300), int64(999)).Return(nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGaming,
		Label:          "Valorant",
	})

	require.NoError(t, err)
	assert.Equal(t, "Valorant 🎮", channel.DisplayName)
}

func TestProvisioningService_PersistenceFailureCompensates(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(0, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string(nil), nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "General Chat", int64(300), false).Return(int64(999), nil)

	mockTempRepo.On("Create", ctx, mock.Anything).Return(errors.New("database unavailable"))
	// Compensating deletion of the freshly created channel
	mockClient.On("DeleteChannel", ctx, int64(999)).Return(nil)

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	assert.Nil(t, channel)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.True(t, persistErr.Compensated)
	assert.Equal(t, int64(999), persistErr.ChannelID)

	mockClient.AssertExpectations(t)
	mockClient.AssertNotCalled(t, "MoveMember")
}

func TestProvisioningService_CompensationFailureLeavesDrift(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(0, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string(nil), nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "General Chat", int64(300), false).Return(int64(999), nil)

	mockTempRepo.On("Create", ctx, mock.Anything).Return(errors.New("database unavailable"))
	mockClient.On("DeleteChannel", ctx, int64(999)).Return(errors.New("discord unavailable"))

	service := NewProvisioningService(mockFactory, mockClient)
	_, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	// Not compensated: the orphan is left for the sweeper's drift pass
	assert.False(t, persistErr.Compensated)
}

func TestProvisioningService_MoveFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockConfigRepo, mockLobbyRepo, mockTempRepo, mockClient := newProvisioningFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockLobbyRepo.On("Get", ctx, int64(100), int64(200)).Return(&models.Lobby{GuildID: 100, ChannelID: 200}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockTempRepo.On("CountByOwner", ctx, int64(100), int64(300)).Return(0, nil)
	mockTempRepo.On("ListNamesByGuild", ctx, int64(100)).Return([]string(nil), nil)
	mockTempRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockClient.On("CreateVoiceChannel", ctx, int64(100), "General Chat", int64(300), false).Return(int64(999), nil)
	mockClient.On("MoveMember", ctx, int64(100), int64(300), int64(999)).Return(errors.New("member left voice"))

	service := NewProvisioningService(mockFactory, mockClient)
	channel, err := service.Provision(ctx, ProvisionRequest{
		GuildID:        100,
		LobbyChannelID: 200,
		MemberID:       300,
		Purpose:        models.PurposeGeneral,
	})

	require.NoError(t, err)
	assert.NotNil(t, channel)
}
