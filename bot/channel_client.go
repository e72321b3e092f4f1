package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
)

// channelClient implements service.ChannelClient on a discordgo session. The
// lifecycle services speak int64 IDs; the string conversions live here.
type channelClient struct {
	session *discordgo.Session
}

// NewChannelClient wraps a discordgo session as a service.ChannelClient
func NewChannelClient(session *discordgo.Session) service.ChannelClient {
	return &channelClient{session: session}
}

// CreateVoiceChannel creates a voice channel with the owner's management
// override. A private channel additionally denies connect to @everyone.
func (c *channelClient) CreateVoiceChannel(ctx context.Context, guildID int64, name string, ownerID int64, private bool) (int64, error) {
	guild := strconv.FormatInt(guildID, 10)
	owner := strconv.FormatInt(ownerID, 10)

	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:    owner,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionManageChannels,
		},
	}
	if private {
		// The @everyone role shares the guild's ID
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   guild,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionVoiceConnect,
		})
	}

	channel, err := c.session.GuildChannelCreateComplex(guild, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create voice channel: %w", err)
	}

	channelID, err := strconv.ParseInt(channel.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse created channel ID %s: %w", channel.ID, err)
	}

	return channelID, nil
}

// DeleteChannel deletes a channel, treating an already-deleted channel as
// success.
func (c *channelClient) DeleteChannel(ctx context.Context, channelID int64) error {
	_, err := c.session.ChannelDelete(strconv.FormatInt(channelID, 10))
	if err != nil {
		if isUnknownChannel(err) {
			return nil
		}
		return fmt.Errorf("failed to delete channel %d: %w", channelID, err)
	}
	return nil
}

// RenameChannel updates the channel label
func (c *channelClient) RenameChannel(ctx context.Context, channelID int64, name string) error {
	_, err := c.session.ChannelEdit(strconv.FormatInt(channelID, 10), &discordgo.ChannelEdit{
		Name: name,
	})
	if err != nil {
		if isUnknownChannel(err) {
			return service.ErrChannelGone
		}
		return fmt.Errorf("failed to rename channel %d: %w", channelID, err)
	}
	return nil
}

// SetChannelPrivacy rewrites the permission overwrites for the private flag,
// always preserving the owner's management override.
func (c *channelClient) SetChannelPrivacy(ctx context.Context, guildID, channelID, ownerID int64, private bool) error {
	guild := strconv.FormatInt(guildID, 10)
	owner := strconv.FormatInt(ownerID, 10)

	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:    owner,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionManageChannels,
		},
	}
	if private {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   guild,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionVoiceConnect,
		})
	}

	_, err := c.session.ChannelEdit(strconv.FormatInt(channelID, 10), &discordgo.ChannelEdit{
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		if isUnknownChannel(err) {
			return service.ErrChannelGone
		}
		return fmt.Errorf("failed to update permissions for channel %d: %w", channelID, err)
	}
	return nil
}

// Occupancy counts the members currently connected to a voice channel using
// the gateway state cache. Returns service.ErrChannelGone once Discord no
// longer knows the channel.
func (c *channelClient) Occupancy(ctx context.Context, guildID, channelID int64) (int, error) {
	guild := strconv.FormatInt(guildID, 10)
	channel := strconv.FormatInt(channelID, 10)

	if _, err := c.session.State.Channel(channel); err != nil {
		// Not cached; the REST lookup settles whether it still exists
		if _, err := c.session.Channel(channel); err != nil {
			if isUnknownChannel(err) {
				return 0, service.ErrChannelGone
			}
			return 0, fmt.Errorf("failed to fetch channel %d: %w", channelID, err)
		}
	}

	g, err := c.session.State.Guild(guild)
	if err != nil {
		return 0, fmt.Errorf("guild %d not in state cache: %w", guildID, err)
	}

	count := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channel {
			count++
		}
	}
	return count, nil
}

// MoveMember relocates a member into a voice channel
func (c *channelClient) MoveMember(ctx context.Context, guildID, memberID, channelID int64) error {
	channel := strconv.FormatInt(channelID, 10)
	err := c.session.GuildMemberMove(strconv.FormatInt(guildID, 10), strconv.FormatInt(memberID, 10), &channel)
	if err != nil {
		return fmt.Errorf("failed to move member %d: %w", memberID, err)
	}
	return nil
}

// isUnknownChannel reports whether the API rejected the call because the
// channel no longer exists.
func isUnknownChannel(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownChannel
	}
	return false
}
