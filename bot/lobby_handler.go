package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tempvoice/bot/common"
	"tempvoice/models"
	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleLobbyCommand routes /lobby subcommands
func (b *Bot) handleLobbyCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !common.IsUserAdmin(s, i.GuildID, i.Member.User.ID) {
		common.RespondWithError(s, i, "You need administrator permissions to manage lobbies")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	switch options[0].Name {
	case "bind":
		b.handleLobbyBind(s, i)
	case "unbind":
		b.handleLobbyUnbind(s, i)
	}
}

func (b *Bot) handleLobbyBind(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	var channelID int64
	var settings models.LobbySettings

	for _, opt := range i.ApplicationCommandData().Options[0].Options {
		switch opt.Name {
		case "channel":
			channel := opt.ChannelValue(s)
			if channel == nil {
				common.RespondWithError(s, i, "Invalid channel selected")
				return
			}
			channelID, err = strconv.ParseInt(channel.ID, 10, 64)
			if err != nil {
				log.Errorf("Failed to parse channel ID %s: %v", channel.ID, err)
				common.RespondWithError(s, i, "Invalid channel selected")
				return
			}
		case "max-channels":
			max := int(opt.IntValue())
			settings.MaxChannelsPerOwner = &max
		case "grace-minutes":
			seconds := int(opt.IntValue()) * 60
			settings.GracePeriodSeconds = &seconds
		}
	}

	if err := b.lobbyService.Bind(context.Background(), guildID, channelID, settings); err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to bind lobby"), false)
		return
	}

	err = common.RespondWithSuccess(s, i, fmt.Sprintf("<#%d> is now a lobby. Joining it creates a temporary channel.", channelID), true)
	logInteractionError("lobby bind", err)
}

func (b *Bot) handleLobbyUnbind(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	options := i.ApplicationCommandData().Options[0].Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "A channel is required")
		return
	}
	channel := options[0].ChannelValue(s)
	if channel == nil {
		common.RespondWithError(s, i, "Invalid channel selected")
		return
	}
	channelID, err := strconv.ParseInt(channel.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse channel ID %s: %v", channel.ID, err)
		common.RespondWithError(s, i, "Invalid channel selected")
		return
	}

	err = b.lobbyService.Unbind(context.Background(), guildID, channelID)
	if errors.Is(err, service.ErrLobbyNotFound) {
		common.RespondWithError(s, i, "That channel is not a lobby")
		return
	}
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to unbind lobby"), false)
		return
	}

	err = common.RespondWithSuccess(s, i, fmt.Sprintf("<#%d> is no longer a lobby", channelID), true)
	logInteractionError("lobby unbind", err)
}

// handleSettingsCommand handles /settings, replacing only the options the
// admin provided.
func (b *Bot) handleSettingsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !common.IsUserAdmin(s, i.GuildID, i.Member.User.ID) {
		common.RespondWithError(s, i, "You need administrator permissions to change settings")
		return
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Failed to process command")
		return
	}

	ctx := context.Background()

	config, err := b.guildConfigService.GetOrCreateConfig(ctx, guildID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to load guild settings"), false)
		return
	}

	settings := config.Settings
	touched := false
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "max-channels":
			settings.MaxChannelsPerOwner = int(opt.IntValue())
			touched = true
		case "grace-minutes":
			settings.GracePeriodSeconds = int(opt.IntValue()) * 60
			touched = true
		case "general-name":
			settings.GeneralChannelName = opt.StringValue()
			touched = true
		case "gaming-template":
			settings.GamingNameTemplate = opt.StringValue()
			touched = true
		}
	}

	if !touched {
		message := fmt.Sprintf("Current settings: max channels per member **%d**, grace period **%d minutes**, general name **%s**, gaming template **%s**",
			settings.MaxChannelsPerOwner,
			int(settings.GracePeriod().Minutes()),
			settings.GeneralChannelName,
			settings.GamingNameTemplate,
		)
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: message,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		logInteractionError("settings view", err)
		return
	}

	if err := b.guildConfigService.UpdateSettings(ctx, guildID, settings); err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to update guild settings"), false)
		return
	}

	err = common.RespondWithSuccess(s, i, "Settings updated", true)
	logInteractionError("settings update", err)
}
