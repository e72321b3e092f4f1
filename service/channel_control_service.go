package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tempvoice/events"
	"tempvoice/models"
)

// channelControlService implements the ChannelControlService interface
type channelControlService struct {
	uowFactory UnitOfWorkFactory
	client     ChannelClient
}

// NewChannelControlService creates a new channel control service
func NewChannelControlService(uowFactory UnitOfWorkFactory, client ChannelClient) ChannelControlService {
	return &channelControlService{
		uowFactory: uowFactory,
		client:     client,
	}
}

// loadOwned fetches the record and enforces ownership. The record is read in
// its own short transaction; no handle is held across the Discord calls.
func (s *channelControlService) loadOwned(ctx context.Context, channelID, callerID int64) (*models.TempChannel, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	channel, err := uow.TempChannelRepository().Get(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load temp channel: %w", err)
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	if channel.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	return channel, nil
}

// Rename updates the Discord channel label and the record's display name.
// The Discord edit runs first: if it fails, the record is never touched, so
// the two cannot desynchronize on the failure path.
func (s *channelControlService) Rename(ctx context.Context, channelID, callerID int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("channel name cannot be empty")
	}

	if _, err := s.loadOwned(ctx, channelID, callerID); err != nil {
		return err
	}

	if err := s.client.RenameChannel(ctx, channelID, newName); err != nil {
		return fmt.Errorf("failed to rename channel: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().UpdateDisplayName(ctx, channelID, newName); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TogglePrivacy flips the private flag, updating Discord permissions before
// persisting the new value. Returns the new flag.
func (s *channelControlService) TogglePrivacy(ctx context.Context, channelID, callerID int64) (bool, error) {
	channel, err := s.loadOwned(ctx, channelID, callerID)
	if err != nil {
		return false, err
	}

	newPrivate := !channel.Private

	if err := s.client.SetChannelPrivacy(ctx, channel.GuildID, channelID, channel.OwnerID, newPrivate); err != nil {
		return false, fmt.Errorf("failed to update channel permissions: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().UpdatePrivacy(ctx, channelID, newPrivate); err != nil {
		return false, fmt.Errorf("failed to update privacy flag: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return newPrivate, nil
}

// DeleteNow deletes the Discord channel and its record. A channel that is
// already gone still gets its record removed, so repeated calls converge on
// zero state.
func (s *channelControlService) DeleteNow(ctx context.Context, channelID, callerID int64) error {
	channel, err := s.loadOwned(ctx, channelID, callerID)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			// Second call after a successful delete
			return nil
		}
		return err
	}

	if err := s.client.DeleteChannel(ctx, channelID); err != nil && !errors.Is(err, ErrChannelGone) {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().Delete(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete temp channel record: %w", err)
	}

	uow.EventBus().Publish(events.ChannelRemovedEvent{
		GuildID:   channel.GuildID,
		ChannelID: channelID,
		OwnerID:   channel.OwnerID,
		Reason:    events.RemovalReasonOwnerRequest,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
