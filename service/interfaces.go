package service

import (
	"context"
	"time"

	"tempvoice/events"
	"tempvoice/models"
)

// GuildConfigRepository defines the interface for guild configuration data access
type GuildConfigRepository interface {
	// GetOrCreate retrieves the guild config, creating a default one on first access
	GetOrCreate(ctx context.Context, guildID int64) (*models.GuildConfig, error)

	// UpdateSettings replaces the settings blob for a guild
	UpdateSettings(ctx context.Context, guildID int64, settings models.GuildConfigSettings) error
}

// LobbyRepository defines the interface for lobby binding data access
type LobbyRepository interface {
	// Get retrieves a lobby binding, or nil if the channel is not bound
	Get(ctx context.Context, guildID, channelID int64) (*models.Lobby, error)

	// Upsert creates or replaces a lobby binding
	Upsert(ctx context.Context, lobby *models.Lobby) error

	// Delete removes a lobby binding. Returns ErrLobbyNotFound if absent.
	Delete(ctx context.Context, guildID, channelID int64) error

	// ListByGuild returns all lobby bindings for a guild
	ListByGuild(ctx context.Context, guildID int64) ([]*models.Lobby, error)
}

// TempChannelRepository defines the interface for temporary channel records
type TempChannelRepository interface {
	// Get retrieves a record by channel ID, or nil if not tracked
	Get(ctx context.Context, channelID int64) (*models.TempChannel, error)

	// Create persists a new record
	Create(ctx context.Context, channel *models.TempChannel) error

	// CountByOwner returns the number of live channels owned by a member in a guild
	CountByOwner(ctx context.Context, guildID, ownerID int64) (int, error)

	// ListNamesByGuild returns the display names of all live channels in a guild
	ListNamesByGuild(ctx context.Context, guildID int64) ([]string, error)

	// UpdateDisplayName updates the stored display name
	UpdateDisplayName(ctx context.Context, channelID int64, name string) error

	// UpdatePrivacy updates the stored privacy flag
	UpdatePrivacy(ctx context.Context, channelID int64, private bool) error

	// MarkEmpty records the instant the channel lost its last occupant
	MarkEmpty(ctx context.Context, channelID int64, at time.Time) error

	// MarkOccupied clears the last-empty timestamp
	MarkOccupied(ctx context.Context, channelID int64) error

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, channelID int64) error

	// ScanAll streams every record through fn without loading the full set
	// into memory. Iteration stops on the first error fn returns.
	ScanAll(ctx context.Context, fn func(*models.TempChannel) error) error
}

// ChannelClient is the boundary to the Discord collaborator. All channel
// mutations and occupancy reads go through it so the lifecycle core can be
// tested without a live gateway connection.
type ChannelClient interface {
	// CreateVoiceChannel creates a voice channel with owner overrides and
	// returns its ID. A private channel denies connect to the default role.
	CreateVoiceChannel(ctx context.Context, guildID int64, name string, ownerID int64, private bool) (int64, error)

	// DeleteChannel deletes a channel. A channel that is already gone is
	// treated as success.
	DeleteChannel(ctx context.Context, channelID int64) error

	// RenameChannel updates the channel label
	RenameChannel(ctx context.Context, channelID int64, name string) error

	// SetChannelPrivacy recomputes the permission overwrites for the
	// private flag, preserving the owner's override
	SetChannelPrivacy(ctx context.Context, guildID, channelID, ownerID int64, private bool) error

	// Occupancy returns the number of members currently in the channel.
	// Returns ErrChannelGone if the channel no longer exists.
	Occupancy(ctx context.Context, guildID, channelID int64) (int, error)

	// MoveMember relocates a member into a voice channel
	MoveMember(ctx context.Context, guildID, memberID, channelID int64) error
}

// GuildConfigService defines the interface for guild configuration operations
type GuildConfigService interface {
	// GetOrCreateConfig retrieves guild config or creates the default one
	GetOrCreateConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error)

	// UpdateSettings replaces the guild settings
	UpdateSettings(ctx context.Context, guildID int64, settings models.GuildConfigSettings) error
}

// LobbyService defines the interface for lobby binding operations
type LobbyService interface {
	// Bind designates a channel as a provisioning lobby
	Bind(ctx context.Context, guildID, channelID int64, settings models.LobbySettings) error

	// Unbind removes a lobby binding
	Unbind(ctx context.Context, guildID, channelID int64) error
}

// ProvisionRequest carries the inputs of a single provisioning attempt.
type ProvisionRequest struct {
	GuildID        int64
	LobbyChannelID int64
	MemberID       int64
	Purpose        string
	Label          string
	Private        bool
}

// ProvisioningService defines the interface for creating temporary channels
type ProvisioningService interface {
	// Provision creates a temporary channel for a lobby join. Fails with
	// ErrNotALobby or ErrQuotaExceeded without creating any state.
	Provision(ctx context.Context, req ProvisionRequest) (*models.TempChannel, error)
}

// ChannelControlService defines the owner-facing mutation operations
type ChannelControlService interface {
	// Rename updates the channel label and record. Fails with ErrNotOwner
	// if the caller does not own the channel.
	Rename(ctx context.Context, channelID, callerID int64, newName string) error

	// TogglePrivacy flips the private flag and returns the new value
	TogglePrivacy(ctx context.Context, channelID, callerID int64) (bool, error)

	// DeleteNow deletes the channel and its record immediately
	DeleteNow(ctx context.Context, channelID, callerID int64) error
}

// SweepReport summarizes one reconciliation cycle.
type SweepReport struct {
	Scanned   int
	Reclaimed int
	Drifted   int
	Failed    int
}

// Sweeper defines the recurring reconciliation loop
type Sweeper interface {
	// RunCycle scans all tracked channels once and reclaims the expired
	// ones. A single channel's failure never aborts the cycle.
	RunCycle(ctx context.Context) (*SweepReport, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction (no-op if already committed)
	Rollback() error

	// GuildConfigRepository returns the guild config repository bound to this transaction
	GuildConfigRepository() GuildConfigRepository

	// LobbyRepository returns the lobby repository bound to this transaction
	LobbyRepository() LobbyRepository

	// TempChannelRepository returns the temp channel repository bound to this transaction
	TempChannelRepository() TempChannelRepository

	// EventBus returns the transactional event bus for this unit of work
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
