package service

import (
	"context"
	"time"

	"tempvoice/events"
	"tempvoice/models"

	"github.com/stretchr/testify/mock"
)

// MockGuildConfigRepository is a mock implementation of GuildConfigRepository
type MockGuildConfigRepository struct {
	mock.Mock
}

func (m *MockGuildConfigRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildConfig), args.Error(1)
}

func (m *MockGuildConfigRepository) UpdateSettings(ctx context.Context, guildID int64, settings models.GuildConfigSettings) error {
	args := m.Called(ctx, guildID, settings)
	return args.Error(0)
}

// MockLobbyRepository is a mock implementation of LobbyRepository
type MockLobbyRepository struct {
	mock.Mock
}

func (m *MockLobbyRepository) Get(ctx context.Context, guildID, channelID int64) (*models.Lobby, error) {
	args := m.Called(ctx, guildID, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lobby), args.Error(1)
}

func (m *MockLobbyRepository) Upsert(ctx context.Context, lobby *models.Lobby) error {
	args := m.Called(ctx, lobby)
	return args.Error(0)
}

func (m *MockLobbyRepository) Delete(ctx context.Context, guildID, channelID int64) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *MockLobbyRepository) ListByGuild(ctx context.Context, guildID int64) ([]*models.Lobby, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lobby), args.Error(1)
}

// MockTempChannelRepository is a mock implementation of TempChannelRepository
type MockTempChannelRepository struct {
	mock.Mock
}

func (m *MockTempChannelRepository) Get(ctx context.Context, channelID int64) (*models.TempChannel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TempChannel), args.Error(1)
}

func (m *MockTempChannelRepository) Create(ctx context.Context, channel *models.TempChannel) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockTempChannelRepository) CountByOwner(ctx context.Context, guildID, ownerID int64) (int, error) {
	args := m.Called(ctx, guildID, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *MockTempChannelRepository) ListNamesByGuild(ctx context.Context, guildID int64) ([]string, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTempChannelRepository) UpdateDisplayName(ctx context.Context, channelID int64, name string) error {
	args := m.Called(ctx, channelID, name)
	return args.Error(0)
}

func (m *MockTempChannelRepository) UpdatePrivacy(ctx context.Context, channelID int64, private bool) error {
	args := m.Called(ctx, channelID, private)
	return args.Error(0)
}

func (m *MockTempChannelRepository) MarkEmpty(ctx context.Context, channelID int64, at time.Time) error {
	args := m.Called(ctx, channelID, at)
	return args.Error(0)
}

func (m *MockTempChannelRepository) MarkOccupied(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockTempChannelRepository) Delete(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

// ScanAll streams the channels configured via ScanResults through fn.
func (m *MockTempChannelRepository) ScanAll(ctx context.Context, fn func(*models.TempChannel) error) error {
	args := m.Called(ctx)
	if args.Error(1) != nil {
		return args.Error(1)
	}
	if args.Get(0) != nil {
		for _, channel := range args.Get(0).([]*models.TempChannel) {
			if err := fn(channel); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

// MockChannelClient is a mock implementation of ChannelClient
type MockChannelClient struct {
	mock.Mock
}

func (m *MockChannelClient) CreateVoiceChannel(ctx context.Context, guildID int64, name string, ownerID int64, private bool) (int64, error) {
	args := m.Called(ctx, guildID, name, ownerID, private)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChannelClient) DeleteChannel(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockChannelClient) RenameChannel(ctx context.Context, channelID int64, name string) error {
	args := m.Called(ctx, channelID, name)
	return args.Error(0)
}

func (m *MockChannelClient) SetChannelPrivacy(ctx context.Context, guildID, channelID, ownerID int64, private bool) error {
	args := m.Called(ctx, guildID, channelID, ownerID, private)
	return args.Error(0)
}

func (m *MockChannelClient) Occupancy(ctx context.Context, guildID, channelID int64) (int, error) {
	args := m.Called(ctx, guildID, channelID)
	return args.Int(0), args.Error(1)
}

func (m *MockChannelClient) MoveMember(ctx context.Context, guildID, memberID, channelID int64) error {
	args := m.Called(ctx, guildID, memberID, channelID)
	return args.Error(0)
}

// MockProvisioningService is a mock implementation of ProvisioningService
type MockProvisioningService struct {
	mock.Mock
}

func (m *MockProvisioningService) Provision(ctx context.Context, req ProvisionRequest) (*models.TempChannel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TempChannel), args.Error(1)
}

// recordingPublisher collects published events for assertions.
type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.published = append(p.published, e)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests configure them once via SetRepositories; the
// lifecycle methods go through mock expectations.
type MockUnitOfWork struct {
	mock.Mock
	guildConfigRepo GuildConfigRepository
	lobbyRepo       LobbyRepository
	tempChannelRepo TempChannelRepository
	eventBus        *recordingPublisher
}

// SetRepositories configures the repositories returned by this unit of work
func (m *MockUnitOfWork) SetRepositories(guildConfig GuildConfigRepository, lobby LobbyRepository, tempChannel TempChannelRepository) {
	m.guildConfigRepo = guildConfig
	m.lobbyRepo = lobby
	m.tempChannelRepo = tempChannel
	m.eventBus = &recordingPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GuildConfigRepository() GuildConfigRepository {
	return m.guildConfigRepo
}

func (m *MockUnitOfWork) LobbyRepository() LobbyRepository {
	return m.lobbyRepo
}

func (m *MockUnitOfWork) TempChannelRepository() TempChannelRepository {
	return m.tempChannelRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// PublishedEvents returns the events published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	if m.eventBus == nil {
		return nil
	}
	return m.eventBus.published
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
