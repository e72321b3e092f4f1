package service

import (
	"context"
	"fmt"

	"tempvoice/models"
)

// guildConfigService implements the GuildConfigService interface
type guildConfigService struct {
	uowFactory UnitOfWorkFactory
}

// NewGuildConfigService creates a new guild config service
func NewGuildConfigService(uowFactory UnitOfWorkFactory) GuildConfigService {
	return &guildConfigService{
		uowFactory: uowFactory,
	}
}

// GetOrCreateConfig retrieves guild config or creates the default one
func (s *guildConfigService) GetOrCreateConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	config, err := uow.GuildConfigRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild config: %w", err)
	}

	// Commit in case a default config was created
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return config, nil
}

// UpdateSettings replaces the guild settings wholesale
func (s *guildConfigService) UpdateSettings(ctx context.Context, guildID int64, settings models.GuildConfigSettings) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Ensure the row exists before the whole-replace update
	if _, err := uow.GuildConfigRepository().GetOrCreate(ctx, guildID); err != nil {
		return fmt.Errorf("failed to get or create guild config: %w", err)
	}

	if err := uow.GuildConfigRepository().UpdateSettings(ctx, guildID, settings); err != nil {
		return fmt.Errorf("failed to update guild config: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
