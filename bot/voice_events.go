package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleVoiceStateUpdate translates gateway voice events into occupancy
// transitions for the router. Bot accounts are ignored so the bot's own
// channel moves never trigger provisioning.
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu.Member != nil && vsu.Member.User != nil && vsu.Member.User.Bot {
		return
	}

	guildID, err := strconv.ParseInt(vsu.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", vsu.GuildID, err)
		return
	}
	memberID, err := strconv.ParseInt(vsu.UserID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", vsu.UserID, err)
		return
	}

	var from, to int64
	if vsu.BeforeUpdate != nil && vsu.BeforeUpdate.ChannelID != "" {
		from, err = strconv.ParseInt(vsu.BeforeUpdate.ChannelID, 10, 64)
		if err != nil {
			log.Errorf("Failed to parse channel ID %s: %v", vsu.BeforeUpdate.ChannelID, err)
			return
		}
	}
	if vsu.ChannelID != "" {
		to, err = strconv.ParseInt(vsu.ChannelID, 10, 64)
		if err != nil {
			log.Errorf("Failed to parse channel ID %s: %v", vsu.ChannelID, err)
			return
		}
	}

	transition := service.Transition{
		GuildID:       guildID,
		MemberID:      memberID,
		FromChannelID: from,
		ToChannelID:   to,
	}

	// Gateway handlers must not block; the router does database and REST work
	go func() {
		err := b.router.HandleTransition(context.Background(), transition)
		if errors.Is(err, service.ErrQuotaExceeded) {
			b.notifyQuotaExceeded(vsu.ChannelID, vsu.UserID)
			return
		}
		if err != nil {
			log.WithFields(log.Fields{
				"guild_id":  guildID,
				"member_id": memberID,
				"error":     err,
			}).Error("Failed to handle voice transition")
		}
	}()
}

// notifyQuotaExceeded tells the member in the lobby's text chat why no
// channel appeared.
func (b *Bot) notifyQuotaExceeded(lobbyChannelID, userID string) {
	message := fmt.Sprintf("<@%s> you already have the maximum number of temporary channels. Delete one first.", userID)
	if _, err := b.session.ChannelMessageSend(lobbyChannelID, message); err != nil {
		log.Errorf("Failed to send quota notice: %v", err)
	}
}
