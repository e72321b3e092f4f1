package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tempvoice/database"
	"tempvoice/models"

	"github.com/jackc/pgx/v5"
)

// GuildConfigRepository implements the service.GuildConfigRepository interface
type GuildConfigRepository struct {
	q queryable
}

// NewGuildConfigRepository creates a new guild config repository
func NewGuildConfigRepository(db *database.DB) *GuildConfigRepository {
	return &GuildConfigRepository{q: db.Pool}
}

// newGuildConfigRepositoryWithTx creates a new guild config repository with a transaction
func newGuildConfigRepositoryWithTx(tx queryable) *GuildConfigRepository {
	return &GuildConfigRepository{q: tx}
}

// GetOrCreate retrieves the guild config or creates a default one if not found
func (r *GuildConfigRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	query := `
		SELECT guild_id, settings, created_at, updated_at
		FROM guild_configs
		WHERE guild_id = $1
	`

	config, err := scanGuildConfig(r.q.QueryRow(ctx, query, guildID))
	if err == nil {
		return config, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to get guild config for guild %d: %w", guildID, err)
	}

	defaults, err := json.Marshal(models.DefaultGuildConfigSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default settings: %w", err)
	}

	insertQuery := `
		INSERT INTO guild_configs (guild_id, settings)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET updated_at = guild_configs.updated_at
		RETURNING guild_id, settings, created_at, updated_at
	`

	config, err = scanGuildConfig(r.q.QueryRow(ctx, insertQuery, guildID, defaults))
	if err != nil {
		return nil, fmt.Errorf("failed to create guild config for guild %d: %w", guildID, err)
	}

	return config, nil
}

// UpdateSettings replaces the settings blob for a guild
func (r *GuildConfigRepository) UpdateSettings(ctx context.Context, guildID int64, settings models.GuildConfigSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal guild settings: %w", err)
	}

	query := `
		UPDATE guild_configs
		SET settings = $2, updated_at = NOW()
		WHERE guild_id = $1
	`

	result, err := r.q.Exec(ctx, query, guildID, settingsJSON)
	if err != nil {
		return fmt.Errorf("failed to update guild config for guild %d: %w", guildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild config for guild %d not found", guildID)
	}

	return nil
}

func scanGuildConfig(row pgx.Row) (*models.GuildConfig, error) {
	var config models.GuildConfig
	var settingsJSON []byte

	if err := row.Scan(&config.GuildID, &settingsJSON, &config.CreatedAt, &config.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsJSON, &config.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guild settings: %w", err)
	}

	return &config, nil
}
