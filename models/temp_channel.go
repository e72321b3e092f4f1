package models

import "time"

// Channel purposes understood by the provisioning flow. Purpose is a
// free-form tag; these are the two the questionnaire offers.
const (
	PurposeGaming  = "gaming"
	PurposeGeneral = "general"
)

// TempChannel tracks one live temporary voice channel. The record exists if
// and only if the Discord channel is believed to exist; the sweeper resolves
// drift between the two.
type TempChannel struct {
	ChannelID   int64  `db:"channel_id"`
	GuildID     int64  `db:"guild_id"`
	OwnerID     int64  `db:"owner_id"`
	Purpose     string `db:"purpose"`
	DisplayName string `db:"display_name"`
	Private     bool   `db:"private"`

	// LastEmptyAt is set when the channel loses its last occupant and
	// cleared when it regains one. Nil while occupied.
	LastEmptyAt *time.Time `db:"last_empty_at"`

	// Settings is opaque extra metadata, stored as JSONB.
	Settings map[string]interface{} `db:"settings"`

	CreatedAt time.Time `db:"created_at"`
}

// EligibleForReclaim reports whether the channel has been empty for at least
// the grace period as of now. Occupancy must be re-checked by the caller at
// the instant of deletion.
func (c *TempChannel) EligibleForReclaim(now time.Time, grace time.Duration) bool {
	if c.LastEmptyAt == nil {
		return false
	}
	return !now.Before(c.LastEmptyAt.Add(grace))
}
