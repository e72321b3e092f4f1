package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tempvoice/bot/common"
	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleVoiceCommand routes /voice subcommands. The target channel is the one
// the caller is currently connected to.
func (b *Bot) handleVoiceCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	switch options[0].Name {
	case "rename":
		b.handleVoiceRename(s, i)
	case "privacy":
		b.handleVoicePrivacy(s, i)
	case "delete":
		b.handleVoiceDelete(s, i)
	case "sweep":
		b.handleVoiceSweep(s, i)
	}
}

// currentVoiceChannel resolves the voice channel the caller is connected to
func (b *Bot) currentVoiceChannel(s *discordgo.Session, i *discordgo.InteractionCreate) (int64, error) {
	guild, err := s.State.Guild(i.GuildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s not in state cache: %w", i.GuildID, err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == i.Member.User.ID {
			return strconv.ParseInt(vs.ChannelID, 10, 64)
		}
	}

	return 0, nil
}

// respondControlError maps service errors to user-facing messages
func respondControlError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	switch {
	case errors.Is(err, service.ErrNotOwner):
		common.RespondWithError(s, i, "Only the channel owner can do that")
	case errors.Is(err, service.ErrChannelNotFound):
		common.RespondWithError(s, i, "This is not a managed temporary channel")
	default:
		common.RespondWithError(s, i, "Something went wrong. Please try again later.")
	}
}

func (b *Bot) handleVoiceRename(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID, err := b.currentVoiceChannel(s, i)
	if err != nil || channelID == 0 {
		common.RespondWithError(s, i, "Join your temporary channel first")
		return
	}

	callerID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	var name string
	for _, opt := range i.ApplicationCommandData().Options[0].Options {
		if opt.Name == "name" {
			name = opt.StringValue()
		}
	}

	if err := b.controlService.Rename(context.Background(), channelID, callerID, name); err != nil {
		log.Errorf("Failed to rename channel %d: %v", channelID, err)
		respondControlError(s, i, err)
		return
	}

	err = common.RespondWithSuccess(s, i, fmt.Sprintf("Channel renamed to **%s**", name), true)
	logInteractionError("voice rename", err)
}

func (b *Bot) handleVoicePrivacy(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID, err := b.currentVoiceChannel(s, i)
	if err != nil || channelID == 0 {
		common.RespondWithError(s, i, "Join your temporary channel first")
		return
	}

	callerID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	private, err := b.controlService.TogglePrivacy(context.Background(), channelID, callerID)
	if err != nil {
		log.Errorf("Failed to toggle privacy on channel %d: %v", channelID, err)
		respondControlError(s, i, err)
		return
	}

	message := "Channel is now **public**"
	if private {
		message = "Channel is now **private**"
	}
	err = common.RespondWithSuccess(s, i, message, true)
	logInteractionError("voice privacy", err)
}

func (b *Bot) handleVoiceDelete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID, err := b.currentVoiceChannel(s, i)
	if err != nil || channelID == 0 {
		common.RespondWithError(s, i, "Join your temporary channel first")
		return
	}

	callerID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	if err := b.controlService.DeleteNow(context.Background(), channelID, callerID); err != nil {
		log.Errorf("Failed to delete channel %d: %v", channelID, err)
		respondControlError(s, i, err)
		return
	}

	err = common.RespondWithSuccess(s, i, "Channel deleted", true)
	logInteractionError("voice delete", err)
}

func (b *Bot) handleVoiceSweep(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !common.IsUserAdmin(s, i.GuildID, i.Member.User.ID) {
		common.RespondWithError(s, i, "You need administrator permissions to run a sweep")
		return
	}

	// The sweep can take a while with many channels
	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Failed to defer sweep response: %v", err)
		return
	}

	report, err := b.sweeper.RunCycle(context.Background())
	if err != nil {
		log.Errorf("Manual sweep failed: %v", err)
		common.FollowUpWithError(s, i, "Sweep failed. Check the logs.")
		return
	}

	common.FollowUpWithSuccess(s, i, fmt.Sprintf(
		"Sweep complete: %d scanned, %d reclaimed, %d drift resolved, %d failed",
		report.Scanned, report.Reclaimed, report.Drifted, report.Failed,
	), true)
}
