package bot

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"tempvoice/events"
	"tempvoice/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

type Bot struct {
	config             Config
	session            *discordgo.Session
	guildConfigService service.GuildConfigService
	lobbyService       service.LobbyService
	provisioner        service.ProvisioningService
	controlService     service.ChannelControlService
	sweeper            service.Sweeper
	router             *service.LobbyRouter
	eventBus           *events.Bus
}

// New creates the Discord bot, opens the gateway connection and registers the
// slash commands. Everything that needs a live session (channel client,
// router, sweeper) is assembled here; the caller supplies the storage side.
func New(config Config, uowFactory service.UnitOfWorkFactory, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAll

	client := NewChannelClient(dg)
	provisioner := service.NewProvisioningService(uowFactory, client)

	bot := &Bot{
		config:             config,
		session:            dg,
		guildConfigService: service.NewGuildConfigService(uowFactory),
		lobbyService:       service.NewLobbyService(uowFactory),
		provisioner:        provisioner,
		controlService:     service.NewChannelControlService(uowFactory, client),
		sweeper:            service.NewSweeper(uowFactory, client),
		eventBus:           eventBus,
	}
	bot.router = service.NewLobbyRouter(uowFactory, client, provisioner, bot.promptChannelKind)

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component and modal handlers
	dg.AddHandler(bot.handleInteractions)

	// Register voice state tracking
	dg.AddHandler(bot.handleVoiceStateUpdate)

	// Post the management message once a channel's record is committed
	eventBus.Subscribe(events.EventTypeChannelProvisioned, func(ctx context.Context, event events.Event) {
		if provisioned, ok := event.(events.ChannelProvisionedEvent); ok {
			bot.postManagementMessage(provisioned)
		}
	})

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "lobby":
		b.handleLobbyCommand(s, i)
	case "voice":
		b.handleVoiceCommand(s, i)
	case "settings":
		b.handleSettingsCommand(s, i)
	}
}

// handleInteractions routes component clicks and modal submissions
func (b *Bot) handleInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		switch {
		case strings.HasPrefix(customID, "tempvoice_kind_"):
			b.handleKindSelect(s, i)
		case strings.HasPrefix(customID, "tempvoice_manage_"):
			b.handleManagementButton(s, i)
		}

	case discordgo.InteractionModalSubmit:
		customID := i.ModalSubmitData().CustomID
		switch {
		case strings.HasPrefix(customID, "tempvoice_game_modal_"):
			b.handleGameModal(s, i)
		case strings.HasPrefix(customID, "tempvoice_rename_modal_"):
			b.handleRenameModal(s, i)
		}
	}
}

func logInteractionError(action string, err error) {
	if err != nil {
		log.Errorf("Error responding to %s interaction: %v", action, err)
	}
}
