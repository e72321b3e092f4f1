package service

import (
	"context"
	"fmt"

	"tempvoice/events"
	"tempvoice/models"
)

// lobbyService implements the LobbyService interface
type lobbyService struct {
	uowFactory UnitOfWorkFactory
}

// NewLobbyService creates a new lobby service
func NewLobbyService(uowFactory UnitOfWorkFactory) LobbyService {
	return &lobbyService{
		uowFactory: uowFactory,
	}
}

// Bind designates a channel as a provisioning lobby. Rebinding an existing
// lobby replaces its policy overrides.
func (s *lobbyService) Bind(ctx context.Context, guildID, channelID int64, settings models.LobbySettings) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Guarantee the guild config exists so policy lookups never miss
	if _, err := uow.GuildConfigRepository().GetOrCreate(ctx, guildID); err != nil {
		return fmt.Errorf("failed to get or create guild config: %w", err)
	}

	lobby := &models.Lobby{
		GuildID:   guildID,
		ChannelID: channelID,
		Settings:  settings,
	}
	if err := uow.LobbyRepository().Upsert(ctx, lobby); err != nil {
		return fmt.Errorf("failed to bind lobby: %w", err)
	}

	uow.EventBus().Publish(events.LobbyBoundEvent{
		GuildID:   guildID,
		ChannelID: channelID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Unbind removes a lobby binding
func (s *lobbyService) Unbind(ctx context.Context, guildID, channelID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.LobbyRepository().Delete(ctx, guildID, channelID); err != nil {
		return err
	}

	uow.EventBus().Publish(events.LobbyUnboundEvent{
		GuildID:   guildID,
		ChannelID: channelID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
