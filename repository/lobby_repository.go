package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tempvoice/database"
	"tempvoice/models"
	"tempvoice/service"

	"github.com/jackc/pgx/v5"
)

// LobbyRepository implements the service.LobbyRepository interface
type LobbyRepository struct {
	q queryable
}

// NewLobbyRepository creates a new lobby repository
func NewLobbyRepository(db *database.DB) *LobbyRepository {
	return &LobbyRepository{q: db.Pool}
}

// newLobbyRepositoryWithTx creates a new lobby repository with a transaction
func newLobbyRepositoryWithTx(tx queryable) *LobbyRepository {
	return &LobbyRepository{q: tx}
}

// Get retrieves a lobby binding, or nil if the channel is not bound
func (r *LobbyRepository) Get(ctx context.Context, guildID, channelID int64) (*models.Lobby, error) {
	query := `
		SELECT guild_id, channel_id, settings, created_at
		FROM lobbies
		WHERE guild_id = $1 AND channel_id = $2
	`

	lobby, err := scanLobby(r.q.QueryRow(ctx, query, guildID, channelID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby %d/%d: %w", guildID, channelID, err)
	}

	return lobby, nil
}

// Upsert creates or replaces a lobby binding. The (guild_id, channel_id)
// primary key enforces at most one binding per channel.
func (r *LobbyRepository) Upsert(ctx context.Context, lobby *models.Lobby) error {
	settingsJSON, err := json.Marshal(lobby.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal lobby settings: %w", err)
	}

	query := `
		INSERT INTO lobbies (guild_id, channel_id, settings)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, channel_id) DO UPDATE SET settings = EXCLUDED.settings
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query, lobby.GuildID, lobby.ChannelID, settingsJSON).Scan(&lobby.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert lobby %d/%d: %w", lobby.GuildID, lobby.ChannelID, err)
	}

	return nil
}

// Delete removes a lobby binding
func (r *LobbyRepository) Delete(ctx context.Context, guildID, channelID int64) error {
	query := `DELETE FROM lobbies WHERE guild_id = $1 AND channel_id = $2`

	result, err := r.q.Exec(ctx, query, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to delete lobby %d/%d: %w", guildID, channelID, err)
	}

	if result.RowsAffected() == 0 {
		return service.ErrLobbyNotFound
	}

	return nil
}

// ListByGuild returns all lobby bindings for a guild
func (r *LobbyRepository) ListByGuild(ctx context.Context, guildID int64) ([]*models.Lobby, error) {
	query := `
		SELECT guild_id, channel_id, settings, created_at
		FROM lobbies
		WHERE guild_id = $1
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var lobbies []*models.Lobby
	for rows.Next() {
		lobby, err := scanLobby(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lobby: %w", err)
		}
		lobbies = append(lobbies, lobby)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lobbies: %w", err)
	}

	return lobbies, nil
}

func scanLobby(row pgx.Row) (*models.Lobby, error) {
	var lobby models.Lobby
	var settingsJSON []byte

	if err := row.Scan(&lobby.GuildID, &lobby.ChannelID, &settingsJSON, &lobby.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsJSON, &lobby.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lobby settings: %w", err)
	}

	return &lobby, nil
}
