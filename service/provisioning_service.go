package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tempvoice/events"
	"tempvoice/models"
)

// provisioningService implements the ProvisioningService interface
type provisioningService struct {
	uowFactory UnitOfWorkFactory
	client     ChannelClient
}

// NewProvisioningService creates a new provisioning service
func NewProvisioningService(uowFactory UnitOfWorkFactory, client ChannelClient) ProvisioningService {
	return &provisioningService{
		uowFactory: uowFactory,
		client:     client,
	}
}

// Provision creates a temporary voice channel for a lobby join.
//
// The policy reads (lobby resolution, quota, sibling names) run in one
// read-only transaction that is released before the Discord round trip; no
// lock is held across the external call. The quota check is therefore not
// serialized against concurrent provisioning for the same owner; see
// QuotaAllowed for why that race is tolerated.
func (s *provisioningService) Provision(ctx context.Context, req ProvisionRequest) (*models.TempChannel, error) {
	name, err := s.prepareProvision(ctx, req)
	if err != nil {
		return nil, err
	}

	channelID, err := s.client.CreateVoiceChannel(ctx, req.GuildID, name, req.MemberID, req.Private)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice channel: %w", err)
	}

	channel := &models.TempChannel{
		ChannelID:   channelID,
		GuildID:     req.GuildID,
		OwnerID:     req.MemberID,
		Purpose:     req.Purpose,
		DisplayName: name,
		Private:     req.Private,
	}

	if err := s.persistRecord(ctx, channel); err != nil {
		// The channel exists but is untracked. Attempt compensating
		// deletion; if that also fails the sweeper will report the drift.
		compensated := true
		if delErr := s.client.DeleteChannel(ctx, channelID); delErr != nil {
			compensated = false
			log.WithFields(log.Fields{
				"guild_id":   req.GuildID,
				"channel_id": channelID,
				"error":      delErr,
			}).Error("Compensating channel deletion failed, channel orphaned until next sweep")
		}
		return nil, &PersistenceError{ChannelID: channelID, Compensated: compensated, Err: err}
	}

	// Relocating the requester is a convenience; failure does not roll
	// back the channel or its record.
	if err := s.client.MoveMember(ctx, req.GuildID, req.MemberID, channelID); err != nil {
		log.WithFields(log.Fields{
			"guild_id":   req.GuildID,
			"member_id":  req.MemberID,
			"channel_id": channelID,
			"error":      err,
		}).Warn("Failed to move member into new channel")
	}

	return channel, nil
}

// preparePolicy resolves the lobby, evaluates quota and computes the unique
// display name. Returns ErrNotALobby or ErrQuotaExceeded without creating
// any state.
func (s *provisioningService) preparePolicy(ctx context.Context, uow UnitOfWork, req ProvisionRequest) (string, error) {
	lobby, err := uow.LobbyRepository().Get(ctx, req.GuildID, req.LobbyChannelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve lobby: %w", err)
	}
	if lobby == nil {
		return "", ErrNotALobby
	}

	config, err := uow.GuildConfigRepository().GetOrCreate(ctx, req.GuildID)
	if err != nil {
		return "", fmt.Errorf("failed to load guild config: %w", err)
	}
	policy := config.Settings.Merge(lobby.Settings)

	count, err := uow.TempChannelRepository().CountByOwner(ctx, req.GuildID, req.MemberID)
	if err != nil {
		return "", fmt.Errorf("failed to count owner channels: %w", err)
	}
	if !QuotaAllowed(count, policy.MaxChannelsPerOwner) {
		return "", ErrQuotaExceeded
	}

	siblings, err := uow.TempChannelRepository().ListNamesByGuild(ctx, req.GuildID)
	if err != nil {
		return "", fmt.Errorf("failed to list sibling names: %w", err)
	}

	return UniqueName(BaseName(policy, req.Purpose, req.Label), siblings), nil
}

func (s *provisioningService) prepareProvision(ctx context.Context, req ProvisionRequest) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	name, err := s.preparePolicy(ctx, uow, req)
	if err != nil {
		return "", err
	}

	// Read-only work; lazy guild config creation still needs the commit
	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return name, nil
}

// persistRecord stores the record for an already-created channel and
// publishes the provisioned event on commit.
func (s *provisioningService) persistRecord(ctx context.Context, channel *models.TempChannel) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().Create(ctx, channel); err != nil {
		return fmt.Errorf("failed to persist temp channel record: %w", err)
	}

	uow.EventBus().Publish(events.ChannelProvisionedEvent{
		GuildID:     channel.GuildID,
		ChannelID:   channel.ChannelID,
		OwnerID:     channel.OwnerID,
		Purpose:     channel.Purpose,
		DisplayName: channel.DisplayName,
		Private:     channel.Private,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
