package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tempvoice/database"
	"tempvoice/models"

	"github.com/jackc/pgx/v5"
)

// TempChannelRepository implements the service.TempChannelRepository interface
type TempChannelRepository struct {
	q queryable
}

// NewTempChannelRepository creates a new temp channel repository
func NewTempChannelRepository(db *database.DB) *TempChannelRepository {
	return &TempChannelRepository{q: db.Pool}
}

// newTempChannelRepositoryWithTx creates a new temp channel repository with a transaction
func newTempChannelRepositoryWithTx(tx queryable) *TempChannelRepository {
	return &TempChannelRepository{q: tx}
}

const tempChannelColumns = `channel_id, guild_id, owner_id, purpose, display_name, private, last_empty_at, settings, created_at`

// Get retrieves a record by channel ID, or nil if not tracked
func (r *TempChannelRepository) Get(ctx context.Context, channelID int64) (*models.TempChannel, error) {
	query := `
		SELECT ` + tempChannelColumns + `
		FROM temp_channels
		WHERE channel_id = $1
	`

	channel, err := scanTempChannel(r.q.QueryRow(ctx, query, channelID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get temp channel %d: %w", channelID, err)
	}

	return channel, nil
}

// Create persists a new record
func (r *TempChannelRepository) Create(ctx context.Context, channel *models.TempChannel) error {
	settingsJSON, err := json.Marshal(channel.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal temp channel settings: %w", err)
	}
	if channel.Settings == nil {
		settingsJSON = []byte("{}")
	}

	query := `
		INSERT INTO temp_channels (channel_id, guild_id, owner_id, purpose, display_name, private, last_empty_at, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		channel.ChannelID,
		channel.GuildID,
		channel.OwnerID,
		channel.Purpose,
		channel.DisplayName,
		channel.Private,
		channel.LastEmptyAt,
		settingsJSON,
	).Scan(&channel.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create temp channel %d: %w", channel.ChannelID, err)
	}

	return nil
}

// CountByOwner returns the number of live channels owned by a member in a guild
func (r *TempChannelRepository) CountByOwner(ctx context.Context, guildID, ownerID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM temp_channels
		WHERE guild_id = $1 AND owner_id = $2
	`

	var count int
	if err := r.q.QueryRow(ctx, query, guildID, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count temp channels for owner %d in guild %d: %w", ownerID, guildID, err)
	}

	return count, nil
}

// ListNamesByGuild returns the display names of all live channels in a guild
func (r *TempChannelRepository) ListNamesByGuild(ctx context.Context, guildID int64) ([]string, error) {
	query := `
		SELECT display_name
		FROM temp_channels
		WHERE guild_id = $1
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list temp channel names for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan temp channel name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate temp channel names: %w", err)
	}

	return names, nil
}

// UpdateDisplayName updates the stored display name
func (r *TempChannelRepository) UpdateDisplayName(ctx context.Context, channelID int64, name string) error {
	query := `UPDATE temp_channels SET display_name = $2 WHERE channel_id = $1`

	result, err := r.q.Exec(ctx, query, channelID, name)
	if err != nil {
		return fmt.Errorf("failed to update display name for temp channel %d: %w", channelID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("temp channel %d not found", channelID)
	}

	return nil
}

// UpdatePrivacy updates the stored privacy flag
func (r *TempChannelRepository) UpdatePrivacy(ctx context.Context, channelID int64, private bool) error {
	query := `UPDATE temp_channels SET private = $2 WHERE channel_id = $1`

	result, err := r.q.Exec(ctx, query, channelID, private)
	if err != nil {
		return fmt.Errorf("failed to update privacy for temp channel %d: %w", channelID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("temp channel %d not found", channelID)
	}

	return nil
}

// MarkEmpty records the instant the channel lost its last occupant. Marking
// an untracked channel is a no-op so occupancy bookkeeping never fails on
// channels the bot does not manage.
func (r *TempChannelRepository) MarkEmpty(ctx context.Context, channelID int64, at time.Time) error {
	query := `UPDATE temp_channels SET last_empty_at = $2 WHERE channel_id = $1`

	if _, err := r.q.Exec(ctx, query, channelID, at); err != nil {
		return fmt.Errorf("failed to mark temp channel %d empty: %w", channelID, err)
	}

	return nil
}

// MarkOccupied clears the last-empty timestamp, cancelling any pending expiry
func (r *TempChannelRepository) MarkOccupied(ctx context.Context, channelID int64) error {
	query := `UPDATE temp_channels SET last_empty_at = NULL WHERE channel_id = $1`

	if _, err := r.q.Exec(ctx, query, channelID); err != nil {
		return fmt.Errorf("failed to mark temp channel %d occupied: %w", channelID, err)
	}

	return nil
}

// Delete removes a record. Deleting an absent record is not an error, which
// keeps owner deletion and sweep deletion idempotent.
func (r *TempChannelRepository) Delete(ctx context.Context, channelID int64) error {
	query := `DELETE FROM temp_channels WHERE channel_id = $1`

	if _, err := r.q.Exec(ctx, query, channelID); err != nil {
		return fmt.Errorf("failed to delete temp channel %d: %w", channelID, err)
	}

	return nil
}

// ScanAll streams every record through fn. Rows are read lazily off the
// cursor, so a full sweep never materializes the whole table; concurrent
// writers are not blocked by the scan.
func (r *TempChannelRepository) ScanAll(ctx context.Context, fn func(*models.TempChannel) error) error {
	query := `
		SELECT ` + tempChannelColumns + `
		FROM temp_channels
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to scan temp channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		channel, err := scanTempChannel(rows)
		if err != nil {
			return fmt.Errorf("failed to scan temp channel: %w", err)
		}
		if err := fn(channel); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate temp channels: %w", err)
	}

	return nil
}

func scanTempChannel(row pgx.Row) (*models.TempChannel, error) {
	var channel models.TempChannel
	var settingsJSON []byte

	err := row.Scan(
		&channel.ChannelID,
		&channel.GuildID,
		&channel.OwnerID,
		&channel.Purpose,
		&channel.DisplayName,
		&channel.Private,
		&channel.LastEmptyAt,
		&settingsJSON,
		&channel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &channel.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal temp channel settings: %w", err)
		}
	}

	return &channel, nil
}
