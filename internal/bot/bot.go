package bot

import (
	"context"
	"time"

	"guildwarden/internal/analytics"
	"guildwarden/internal/config"
	"guildwarden/internal/guildcfg"
	"guildwarden/internal/logsink"
	"guildwarden/internal/modules/automod"
	"guildwarden/internal/modules/leveling"
	"guildwarden/internal/modules/reactionroles"
	"guildwarden/internal/modules/warnings"
	"guildwarden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	embedColorPrimary = 0x6A00FF
	embedColorWarning = 0xFFA500
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	configs   *guildcfg.Store
	pipeline  *automod.Pipeline
	levels    *leveling.Engine
	reactions *reactionroles.Registry
	warns     *warnings.Counter
	sink      *logsink.Sink
	analytics *analytics.Service
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, configs *guildcfg.Store, pipeline *automod.Pipeline, levels *leveling.Engine, reactions *reactionroles.Registry, warns *warnings.Counter, sink *logsink.Sink, reports *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		configs:   configs,
		pipeline:  pipeline,
		levels:    levels,
		reactions: reactions,
		warns:     warns,
		sink:      sink,
		analytics: reports,
		session:   session,
	}

	if b.sink != nil {
		b.sink.SetNotifier(b.notifyLogChannel)
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onMessageReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// notifyLogChannel renders a sink event into the guild's configured log
// channel. No channel configured means the event is dropped.
func (b *Bot) notifyLogChannel(ctx context.Context, guildID string, event logsink.Event) {
	cfg := b.configs.Get(ctx, guildID)
	if cfg.LogChannelID == "" {
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(event.Fields))
	for _, field := range event.Fields {
		value := field.Value
		if value == "" {
			value = "-"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: field.Name, Value: value, Inline: field.Inline})
	}

	embed := &discordgo.MessageEmbed{
		Title:       event.Title,
		Description: event.Description,
		Color:       embedColorPrimary,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	_, _ = b.session.ChannelMessageSendEmbed(cfg.LogChannelID, embed)
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) respondText(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}
