package models

import "time"

// Lobby binds a voice channel as a provisioning entry point. A channel is
// bound to at most one lobby per guild.
type Lobby struct {
	GuildID   int64         `db:"guild_id"`
	ChannelID int64         `db:"channel_id"`
	Settings  LobbySettings `db:"settings"`
	CreatedAt time.Time     `db:"created_at"`
}

// LobbySettings holds per-lobby policy overrides. Nil fields fall through to
// the guild-level settings.
type LobbySettings struct {
	MaxChannelsPerOwner *int    `json:"max_channels_per_owner,omitempty"`
	GamingNameTemplate  *string `json:"gaming_name_template,omitempty"`
	GeneralChannelName  *string `json:"general_channel_name,omitempty"`
	GracePeriodSeconds  *int    `json:"grace_period_seconds,omitempty"`
}
