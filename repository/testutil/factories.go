package testutil

import (
	"time"

	"tempvoice/models"
)

// CreateTestTempChannel creates a temp channel record with default values
func CreateTestTempChannel(channelID, guildID, ownerID int64) *models.TempChannel {
	return &models.TempChannel{
		ChannelID:   channelID,
		GuildID:     guildID,
		OwnerID:     ownerID,
		Purpose:     models.PurposeGeneral,
		DisplayName: "General Chat",
		Private:     false,
		CreatedAt:   time.Now(),
	}
}

// CreateTestGamingChannel creates a gaming temp channel record
func CreateTestGamingChannel(channelID, guildID, ownerID int64, displayName string) *models.TempChannel {
	channel := CreateTestTempChannel(channelID, guildID, ownerID)
	channel.Purpose = models.PurposeGaming
	channel.DisplayName = displayName
	return channel
}

// CreateTestEmptyChannel creates a temp channel record already stamped empty
func CreateTestEmptyChannel(channelID, guildID, ownerID int64, emptyAt time.Time) *models.TempChannel {
	channel := CreateTestTempChannel(channelID, guildID, ownerID)
	channel.LastEmptyAt = &emptyAt
	return channel
}

// CreateTestLobby creates a lobby binding with no overrides
func CreateTestLobby(guildID, channelID int64) *models.Lobby {
	return &models.Lobby{
		GuildID:   guildID,
		ChannelID: channelID,
		CreatedAt: time.Now(),
	}
}

// CreateTestLobbyWithQuota creates a lobby binding with a quota override
func CreateTestLobbyWithQuota(guildID, channelID int64, maxChannels int) *models.Lobby {
	lobby := CreateTestLobby(guildID, channelID)
	lobby.Settings.MaxChannelsPerOwner = &maxChannels
	return lobby
}
