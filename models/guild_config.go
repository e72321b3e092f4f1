package models

import "time"

// Default policy values applied when a guild has not overridden them.
const (
	DefaultMaxChannelsPerOwner = 2
	DefaultGamingNameTemplate  = "%s 🎮"
	DefaultGeneralChannelName  = "General Chat"
	DefaultGracePeriodSeconds  = 600
)

// GuildConfig represents per-guild configuration. Created lazily on first
// access and replaced wholesale on update.
type GuildConfig struct {
	GuildID   int64               `db:"guild_id"`
	Settings  GuildConfigSettings `db:"settings"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// GuildConfigSettings is the interpreted portion of the guild settings blob.
// Unknown keys round-trip through the store untouched; only the fields below
// carry policy meaning.
type GuildConfigSettings struct {
	// MaxChannelsPerOwner caps live temporary channels per member.
	// Zero or negative means unlimited.
	MaxChannelsPerOwner int `json:"max_channels_per_owner"`

	// GamingNameTemplate formats the display name for gaming channels,
	// e.g. "%s 🎮" applied to the game label.
	GamingNameTemplate string `json:"gaming_name_template,omitempty"`

	// GeneralChannelName is the base name for general-purpose channels.
	GeneralChannelName string `json:"general_channel_name,omitempty"`

	// GracePeriodSeconds is the minimum idle duration before an empty
	// channel becomes eligible for reclamation.
	GracePeriodSeconds int `json:"grace_period_seconds,omitempty"`
}

// DefaultGuildConfigSettings returns the settings applied to a guild that has
// never been configured.
func DefaultGuildConfigSettings() GuildConfigSettings {
	return GuildConfigSettings{
		MaxChannelsPerOwner: DefaultMaxChannelsPerOwner,
		GamingNameTemplate:  DefaultGamingNameTemplate,
		GeneralChannelName:  DefaultGeneralChannelName,
		GracePeriodSeconds:  DefaultGracePeriodSeconds,
	}
}

// GracePeriod returns the configured grace period as a duration.
func (s GuildConfigSettings) GracePeriod() time.Duration {
	if s.GracePeriodSeconds <= 0 {
		return time.Duration(DefaultGracePeriodSeconds) * time.Second
	}
	return time.Duration(s.GracePeriodSeconds) * time.Second
}

// Merge applies lobby-level overrides on top of the guild settings and
// returns the effective policy.
func (s GuildConfigSettings) Merge(o LobbySettings) GuildConfigSettings {
	merged := s
	if o.MaxChannelsPerOwner != nil {
		merged.MaxChannelsPerOwner = *o.MaxChannelsPerOwner
	}
	if o.GamingNameTemplate != nil {
		merged.GamingNameTemplate = *o.GamingNameTemplate
	}
	if o.GeneralChannelName != nil {
		merged.GeneralChannelName = *o.GeneralChannelName
	}
	if o.GracePeriodSeconds != nil {
		merged.GracePeriodSeconds = *o.GracePeriodSeconds
	}
	return merged
}
