package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tempvoice/bot/common"
	"tempvoice/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// postManagementMessage drops the owner controls into a freshly provisioned
// channel's text chat.
func (b *Bot) postManagementMessage(event events.ChannelProvisionedEvent) {
	content := fmt.Sprintf("<@%d> this channel is yours. It disappears once it has been empty for a while.", event.OwnerID)

	_, err := b.session.ChannelMessageSendComplex(strconv.FormatInt(event.ChannelID, 10), &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Rename",
						Style:    discordgo.SecondaryButton,
						CustomID: fmt.Sprintf("tempvoice_manage_rename_%d", event.ChannelID),
						Emoji:    &discordgo.ComponentEmoji{Name: "✏️"},
					},
					discordgo.Button{
						Label:    "Privacy",
						Style:    discordgo.SecondaryButton,
						CustomID: fmt.Sprintf("tempvoice_manage_privacy_%d", event.ChannelID),
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
					discordgo.Button{
						Label:    "Delete",
						Style:    discordgo.DangerButton,
						CustomID: fmt.Sprintf("tempvoice_manage_delete_%d", event.ChannelID),
						Emoji:    &discordgo.ComponentEmoji{Name: "🗑️"},
					},
				},
			},
		},
	})
	if err != nil {
		log.WithFields(log.Fields{
			"guild_id":   event.GuildID,
			"channel_id": event.ChannelID,
			"error":      err,
		}).Error("Failed to post management message")
	}
}

// handleManagementButton handles the rename/privacy/delete buttons
func (b *Bot) handleManagementButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rest := strings.TrimPrefix(i.MessageComponentData().CustomID, "tempvoice_manage_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return
	}
	action := parts[0]
	channelID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	callerID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Failed to process request")
		return
	}

	switch action {
	case "rename":
		b.openRenameModal(s, i, channelID)
	case "privacy":
		b.handlePrivacyButton(s, i, channelID, callerID)
	case "delete":
		b.handleDeleteButton(s, i, channelID, callerID)
	}
}

func (b *Bot) openRenameModal(s *discordgo.Session, i *discordgo.InteractionCreate, channelID int64) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("tempvoice_rename_modal_%d", channelID),
			Title:    "Rename channel",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "channel_name",
							Label:     "New name",
							Style:     discordgo.TextInputShort,
							Required:  true,
							MaxLength: 100,
						},
					},
				},
			},
		},
	})
	logInteractionError("rename modal", err)
}

// handleRenameModal applies the rename from the modal answer
func (b *Bot) handleRenameModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID, err := strconv.ParseInt(strings.TrimPrefix(i.ModalSubmitData().CustomID, "tempvoice_rename_modal_"), 10, 64)
	if err != nil {
		return
	}

	callerID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Failed to process request")
		return
	}

	var name string
	for _, row := range i.ModalSubmitData().Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == "channel_name" {
				name = input.Value
			}
		}
	}

	if err := b.controlService.Rename(context.Background(), channelID, callerID, name); err != nil {
		log.Errorf("Failed to rename channel %d: %v", channelID, err)
		respondControlError(s, i, err)
		return
	}

	err = common.RespondWithSuccess(s, i, fmt.Sprintf("Channel renamed to **%s**", name), true)
	logInteractionError("rename", err)
}

func (b *Bot) handlePrivacyButton(s *discordgo.Session, i *discordgo.InteractionCreate, channelID, callerID int64) {
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
	logInteractionError("privacy", err)
}

func (b *Bot) handleDeleteButton(s *discordgo.Session, i *discordgo.InteractionCreate, channelID, callerID int64) {
	if err := b.controlService.DeleteNow(context.Background(), channelID, callerID); err != nil {
		log.Errorf("Failed to delete channel %d: %v", channelID, err)
		respondControlError(s, i, err)
		return
	}

	// The channel is gone, so the ephemeral ack may fail quietly
	err := common.RespondWithSuccess(s, i, "Channel deleted", true)
	if err != nil {
		log.Debugf("Could not acknowledge delete button: %v", err)
	}
}
