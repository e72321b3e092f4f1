package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tempvoice/events"
	"tempvoice/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeperFixture() (*sweeper, *MockUnitOfWork, *MockGuildConfigRepository, *MockTempChannelRepository, *MockChannelClient) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockConfigRepo := new(MockGuildConfigRepository)
	mockTempRepo := new(MockTempChannelRepository)
	mockClient := new(MockChannelClient)

	mockUoW.SetRepositories(mockConfigRepo, new(MockLobbyRepository), mockTempRepo)
	mockFactory.On("Create").Return(mockUoW)

	s := NewSweeper(mockFactory, mockClient).(*sweeper)
	return s, mockUoW, mockConfigRepo, mockTempRepo, mockClient
}

func emptiedChannel(channelID int64, emptyAt time.Time) *models.TempChannel {
	return &models.TempChannel{
		ChannelID:   channelID,
		GuildID:     100,
		OwnerID:     300,
		Purpose:     models.PurposeGeneral,
		DisplayName: "General Chat",
		LastEmptyAt: &emptyAt,
	}
}

func TestSweeper_ReclaimsExpiredChannel(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	grace := time.Duration(models.DefaultGracePeriodSeconds) * time.Second
	s.now = func() time.Time { return now }

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(999, now.Add(-grace)),
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, nil)
	mockClient.On("DeleteChannel", ctx, int64(999)).Return(nil)
	mockTempRepo.On("Delete", ctx, int64(999)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, 0, report.Drifted)
	assert.Equal(t, 0, report.Failed)

	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	event, ok := published[0].(events.ChannelRemovedEvent)
	require.True(t, ok)
	assert.Equal(t, events.RemovalReasonExpired, event.Reason)
}

func TestSweeper_GraceBoundary(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	grace := time.Duration(models.DefaultGracePeriodSeconds) * time.Second

	tests := []struct {
		name      string
		emptyAt   time.Time
		reclaimed int
	}{
		{"one second before the boundary", now.Add(-grace + time.Second), 0},
		{"exactly at the boundary", now.Add(-grace), 1},
		{"past the boundary", now.Add(-grace - time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()
			s.now = func() time.Time { return now }

			mockUoW.On("Begin", ctx).Return(nil)
			mockUoW.On("Rollback").Return(nil)
			mockUoW.On("Commit").Return(nil)
			mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
				emptiedChannel(999, tt.emptyAt),
			}, nil)
			mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
			mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, nil)
			mockClient.On("DeleteChannel", ctx, int64(999)).Return(nil)
			mockTempRepo.On("Delete", ctx, int64(999)).Return(nil)

			report, err := s.RunCycle(ctx)

			require.NoError(t, err)
			assert.Equal(t, tt.reclaimed, report.Reclaimed)
			if tt.reclaimed == 0 {
				mockClient.AssertNotCalled(t, "DeleteChannel")
			}
		})
	}
}

func TestSweeper_NeverEmptiedChannelNotReclaimed(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, _, mockTempRepo, mockClient := newSweeperFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		{ChannelID: 999, GuildID: 100, OwnerID: 300, LastEmptyAt: nil},
	}, nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(2, nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 0, report.Reclaimed)
	mockClient.AssertNotCalled(t, "DeleteChannel")
	mockTempRepo.AssertNotCalled(t, "Delete")
}

func TestSweeper_NeverEmptiedChannelGoneIsDrift(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, _, mockTempRepo, mockClient := newSweeperFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	// Deleted out from under its occupants, so the router never stamped it
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		{ChannelID: 999, GuildID: 100, OwnerID: 300, LastEmptyAt: nil},
	}, nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, ErrChannelGone)
	mockTempRepo.On("Delete", ctx, int64(999)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Drifted)
	assert.Equal(t, 0, report.Reclaimed)
	mockClient.AssertNotCalled(t, "DeleteChannel")

	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	event := published[0].(events.ChannelRemovedEvent)
	assert.Equal(t, events.RemovalReasonDrift, event.Reason)
}

func TestSweeper_NeverEmptiedChannelEmptyButUnstamped(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, _, mockTempRepo, mockClient := newSweeperFixture()

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	// Just vacated; the router has not written the timestamp yet
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		{ChannelID: 999, GuildID: 100, OwnerID: 300, LastEmptyAt: nil},
	}, nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Reclaimed)
	assert.Equal(t, 0, report.Drifted)
	mockClient.AssertNotCalled(t, "DeleteChannel")
	mockTempRepo.AssertNotCalled(t, "Delete")
	mockTempRepo.AssertNotCalled(t, "MarkEmpty")
}

func TestSweeper_RepopulatedChannelSpared(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(999, now.Add(-time.Hour)),
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	// Someone joined between the scan and the decision
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(2, nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, report.Reclaimed)
	assert.Equal(t, 0, report.Failed)
	mockClient.AssertNotCalled(t, "DeleteChannel")
	// The stale timestamp stays; clearing it is the router's job
	mockTempRepo.AssertNotCalled(t, "MarkOccupied")
	mockTempRepo.AssertNotCalled(t, "Delete")
}

func TestSweeper_DriftResolved(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(999, now.Add(-time.Hour)),
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, ErrChannelGone)
	mockTempRepo.On("Delete", ctx, int64(999)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Drifted)
	assert.Equal(t, 0, report.Reclaimed)
	mockClient.AssertNotCalled(t, "DeleteChannel")

	published := mockUoW.PublishedEvents()
	require.Len(t, published, 1)
	event := published[0].(events.ChannelRemovedEvent)
	assert.Equal(t, events.RemovalReasonDrift, event.Reason)
}

func TestSweeper_OneFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(111, now.Add(-time.Hour)),
		emptiedChannel(222, now.Add(-time.Hour)),
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)

	mockClient.On("Occupancy", ctx, int64(100), int64(111)).Return(0, errors.New("gateway timeout"))
	mockClient.On("Occupancy", ctx, int64(100), int64(222)).Return(0, nil)
	mockClient.On("DeleteChannel", ctx, int64(222)).Return(nil)
	mockTempRepo.On("Delete", ctx, int64(222)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, 1, report.Failed)
}

func TestSweeper_DeleteToleratesAlreadyGone(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(999, now.Add(-time.Hour)),
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(999)).Return(0, nil)
	// Gone between the occupancy check and the delete call
	mockClient.On("DeleteChannel", ctx, int64(999)).Return(ErrChannelGone)
	mockTempRepo.On("Delete", ctx, int64(999)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Reclaimed)
}

func TestSweeper_GracePeriodPerGuild(t *testing.T) {
	ctx := context.Background()
	s, mockUoW, mockConfigRepo, mockTempRepo, mockClient := newSweeperFixture()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// Guild 100 keeps the default; guild 200 uses a one hour grace
	longGrace := testGuildConfig(200)
	longGrace.GuildID = 200
	longGrace.Settings.GracePeriodSeconds = 3600

	shortEmpty := now.Add(-20 * time.Minute)
	longChannel := &models.TempChannel{
		ChannelID: 222, GuildID: 200, OwnerID: 300,
		Purpose: models.PurposeGeneral, LastEmptyAt: &shortEmpty,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockTempRepo.On("ScanAll", ctx).Return([]*models.TempChannel{
		emptiedChannel(111, shortEmpty),
		longChannel,
	}, nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(100)).Return(testGuildConfig(100), nil)
	mockConfigRepo.On("GetOrCreate", ctx, int64(200)).Return(longGrace, nil)
	mockClient.On("Occupancy", ctx, int64(100), int64(111)).Return(0, nil)
	mockClient.On("DeleteChannel", ctx, int64(111)).Return(nil)
	mockTempRepo.On("Delete", ctx, int64(111)).Return(nil)

	report, err := s.RunCycle(ctx)

	require.NoError(t, err)
	// 20 minutes empty: expired under the 10 minute default, not under an hour
	assert.Equal(t, 1, report.Reclaimed)
	mockClient.AssertNotCalled(t, "Occupancy", ctx, int64(200), int64(222))
}
