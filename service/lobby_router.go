package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tempvoice/models"
)

// Transition is one voice occupancy transition for a member. A zero channel
// ID means "not in a voice channel".
type Transition struct {
	GuildID       int64
	MemberID      int64
	FromChannelID int64
	ToChannelID   int64
}

// PromptFunc asks the joining member which kind of channel they want and is
// expected to call the provisioning service once they answer. When no prompt
// is configured the router provisions a general channel directly.
type PromptFunc func(ctx context.Context, guildID, lobbyChannelID, memberID int64)

// LobbyRouter interprets voice transitions: it maintains the last-empty
// bookkeeping on tracked channels and triggers provisioning on lobby joins.
type LobbyRouter struct {
	uowFactory  UnitOfWorkFactory
	client      ChannelClient
	provisioner ProvisioningService
	prompt      PromptFunc
	now         func() time.Time
}

// NewLobbyRouter creates a new lobby router. prompt may be nil.
func NewLobbyRouter(uowFactory UnitOfWorkFactory, client ChannelClient, provisioner ProvisioningService, prompt PromptFunc) *LobbyRouter {
	return &LobbyRouter{
		uowFactory:  uowFactory,
		client:      client,
		provisioner: provisioner,
		prompt:      prompt,
		now:         time.Now,
	}
}

// HandleTransition routes one occupancy transition. Returns ErrQuotaExceeded
// when a lobby join was denied so the caller can notify the requester; all
// other outcomes are terminal here.
func (r *LobbyRouter) HandleTransition(ctx context.Context, t Transition) error {
	if t.FromChannelID == t.ToChannelID {
		// Mute/deafen update, no movement
		return nil
	}

	if t.FromChannelID != 0 {
		if err := r.handleDeparture(ctx, t.GuildID, t.FromChannelID); err != nil {
			log.WithFields(log.Fields{
				"guild_id":   t.GuildID,
				"channel_id": t.FromChannelID,
				"error":      err,
			}).Error("Failed to record channel departure")
		}
	}

	if t.ToChannelID != 0 {
		return r.handleArrival(ctx, t)
	}

	return nil
}

// handleDeparture stamps last_empty_at when a tracked channel loses its last
// occupant. This transition is owned here, not by the sweeper, so the two
// never race on the same field.
func (r *LobbyRouter) handleDeparture(ctx context.Context, guildID, channelID int64) error {
	tracked, err := r.isTracked(ctx, channelID)
	if err != nil || !tracked {
		return err
	}

	occupancy, err := r.client.Occupancy(ctx, guildID, channelID)
	if errors.Is(err, ErrChannelGone) {
		// Deleted out from under us; the sweeper reconciles the record
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve occupancy: %w", err)
	}
	if occupancy > 0 {
		return nil
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().MarkEmpty(ctx, channelID, r.now()); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// handleArrival clears a tracked channel's pending expiry and, when the
// joined channel is a bound lobby, invokes provisioning.
func (r *LobbyRouter) handleArrival(ctx context.Context, t Transition) error {
	tracked, err := r.isTracked(ctx, t.ToChannelID)
	if err != nil {
		return err
	}
	if tracked {
		if err := r.markOccupied(ctx, t.ToChannelID); err != nil {
			return err
		}
		return nil
	}

	lobby, err := r.getLobby(ctx, t.GuildID, t.ToChannelID)
	if err != nil {
		return err
	}
	if lobby == nil {
		// Join to an unmanaged channel, not actionable
		return nil
	}

	if r.prompt != nil {
		r.prompt(ctx, t.GuildID, t.ToChannelID, t.MemberID)
		return nil
	}

	_, err = r.provisioner.Provision(ctx, ProvisionRequest{
		GuildID:        t.GuildID,
		LobbyChannelID: t.ToChannelID,
		MemberID:       t.MemberID,
		Purpose:        models.PurposeGeneral,
	})
	if errors.Is(err, ErrNotALobby) {
		// Binding removed between resolution and provisioning
		return nil
	}
	return err
}

func (r *LobbyRouter) isTracked(ctx context.Context, channelID int64) (bool, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	channel, err := uow.TempChannelRepository().Get(ctx, channelID)
	if err != nil {
		return false, err
	}
	return channel != nil, nil
}

func (r *LobbyRouter) markOccupied(ctx context.Context, channelID int64) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().MarkOccupied(ctx, channelID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *LobbyRouter) getLobby(ctx context.Context, guildID, channelID int64) (*models.Lobby, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.LobbyRepository().Get(ctx, guildID, channelID)
}
