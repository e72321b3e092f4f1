package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tempvoice/bot/common"
	"tempvoice/models"
	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// promptChannelKind asks a lobby joiner what kind of channel they want. The
// question lands in the lobby's text chat as a select menu; the member stays
// parked in the lobby until they answer.
func (b *Bot) promptChannelKind(ctx context.Context, guildID, lobbyChannelID, memberID int64) {
	customID := fmt.Sprintf("tempvoice_kind_%d_%d", lobbyChannelID, memberID)

	_, err := b.session.ChannelMessageSendComplex(strconv.FormatInt(lobbyChannelID, 10), &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%d> what kind of channel do you want?", memberID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						CustomID:    customID,
						Placeholder: "Pick a channel type",
						Options: []discordgo.SelectMenuOption{
							{
								Label:       "Gaming",
								Value:       models.PurposeGaming,
								Description: "Named after the game you are playing",
								Emoji:       &discordgo.ComponentEmoji{Name: "🎮"},
							},
							{
								Label:       "General",
								Value:       models.PurposeGeneral,
								Description: "A general hangout channel",
								Emoji:       &discordgo.ComponentEmoji{Name: "💬"},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"channel_id": lobbyChannelID,
			"member_id":  memberID,
			"error":      err,
		}).Error("Failed to send channel kind prompt")
	}
}

// handleKindSelect handles the questionnaire select menu
func (b *Bot) handleKindSelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	parts := strings.Split(strings.TrimPrefix(i.MessageComponentData().CustomID, "tempvoice_kind_"), "_")
	if len(parts) != 2 {
		return
	}
	lobbyChannelID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return
	}

	// Only the member who was prompted may answer
	if i.Member.User.ID != parts[1] {
		common.RespondWithError(s, i, "This prompt is not for you")
		return
	}

	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}

	// The prompt has served its purpose either way
	b.deletePromptMessage(s, i)

	switch values[0] {
	case models.PurposeGaming:
		b.openGameModal(s, i, lobbyChannelID)
	default:
		b.provisionFromPrompt(s, i, lobbyChannelID, models.PurposeGeneral, "")
	}
}

// openGameModal asks for the game name before provisioning a gaming channel
func (b *Bot) openGameModal(s *discordgo.Session, i *discordgo.InteractionCreate, lobbyChannelID int64) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("tempvoice_game_modal_%d", lobbyChannelID),
			Title:    "What are you playing?",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "game_name",
							Label:       "Game",
							Style:       discordgo.TextInputShort,
							Placeholder: "e.g. Valorant",
							Required:    true,
							MaxLength:   80,
						},
					},
				},
			},
		},
	})
	logInteractionError("game modal", err)
}

// handleGameModal provisions a gaming channel from the modal answer
func (b *Bot) handleGameModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	lobbyChannelID, err := strconv.ParseInt(strings.TrimPrefix(i.ModalSubmitData().CustomID, "tempvoice_game_modal_"), 10, 64)
	if err != nil {
		return
	}

	var game string
	for _, row := range i.ModalSubmitData().Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == "game_name" {
				game = input.Value
			}
		}
	}

	b.provisionFromPrompt(s, i, lobbyChannelID, models.PurposeGaming, game)
}

// provisionFromPrompt runs provisioning for an answered questionnaire and
// reports the outcome ephemerally.
func (b *Bot) provisionFromPrompt(s *discordgo.Session, i *discordgo.InteractionCreate, lobbyChannelID int64, purpose, label string) {
	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Failed to defer provisioning response: %v", err)
		return
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", i.GuildID, err)
		common.FollowUpWithError(s, i, "Failed to process request")
		return
	}
	memberID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.FollowUpWithError(s, i, "Failed to process request")
		return
	}

	channel, err := b.provisioner.Provision(context.Background(), service.ProvisionRequest{
		GuildID:        guildID,
		LobbyChannelID: lobbyChannelID,
		MemberID:       memberID,
		Purpose:        purpose,
		Label:          label,
	})
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		common.HandleError(s, i, common.NewUserError(
			"You already have the maximum number of temporary channels. Delete one first.",
			"provisioning denied by quota"), true)
		return
	case errors.Is(err, service.ErrNotALobby):
		common.HandleError(s, i, common.NewUserError(
			"That channel is no longer a lobby",
			"lobby binding removed before provisioning"), true)
		return
	case err != nil:
		common.HandleError(s, i, common.NewSystemError(err, "Failed to provision channel from prompt"), true)
		return
	}

	common.FollowUpWithSuccess(s, i, fmt.Sprintf("Created <#%d> for you", channel.ChannelID), true)
}

func (b *Bot) deletePromptMessage(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Message == nil {
		return
	}
	if err := s.ChannelMessageDelete(i.ChannelID, i.Message.ID); err != nil {
		log.Errorf("Failed to delete prompt message: %v", err)
	}
}
