package bot

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"guildwarden/internal/guildcfg"
	"guildwarden/internal/logsink"
	"guildwarden/internal/modules/reactionroles"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const verifyButtonID = "warden_verify"

func (b *Bot) registerCommands() error {
	manageGuild := int64(discordgo.PermissionManageServer)
	moderateMembers := int64(discordgo.PermissionModerateMembers)
	manageRoles := int64(discordgo.PermissionManageRoles)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "config",
			Description:              "View or set moderation settings for this server",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "log_channel", Description: "Log channel"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "welcome_channel", Description: "Welcome channel"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "welcome_message", Description: "Welcome message template (use {user}, {server})"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "goodbye_channel", Description: "Goodbye channel"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "goodbye_message", Description: "Goodbye message template (use {user}, {server})"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "auto_role", Description: "Role to auto-assign on join"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "verify_role", Description: "Role to give on verify button"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "anti_spam", Description: "Enable anti-spam"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "link_filter", Description: "Enable global link filter"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "invite_filter", Description: "Enable Discord invite filter"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "blacklist_words", Description: "Comma-separated list of blacklisted words"},
			},
		},
		{
			Name:                     "warn",
			Description:              "Warn a user and track the warning count",
			DefaultMemberPermissions: &moderateMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to warn", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the warning"},
			},
		},
		{
			Name:                     "reactionrole",
			Description:              "Create a reaction role message",
			DefaultMemberPermissions: &manageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "Emoji to use (standard or custom)", Required: true},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to assign", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Message to show", Required: true},
			},
		},
		{
			Name:        "rank",
			Description: "Show your level and XP, or another user's",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to check"},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the top 10 users by level",
		},
		{
			Name:                     "mute",
			Description:              "Mute or unmute a user via a Muted role",
			DefaultMemberPermissions: &moderateMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to mute/unmute", Required: true},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "mute", Description: "True = mute, False = unmute", Required: true},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Muted role (defaults to a role named 'Muted')"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the mute/unmute"},
			},
		},
		{
			Name:                     "verify",
			Description:              "Send a verification button message",
			DefaultMemberPermissions: &manageRoles,
		},
		{
			Name:                     "modlogs",
			Description:              "Summarize recent moderation events",
			DefaultMemberPermissions: &moderateMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "How far back to look",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Also show this user's warning total"},
			},
		},
	}

	for _, command := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", command); err != nil {
			return fmt.Errorf("register command %s: %w", command.Name, err)
		}
	}
	return nil
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()

	if interaction.Type == discordgo.InteractionMessageComponent {
		if interaction.MessageComponentData().CustomID == verifyButtonID {
			b.handleVerifyButton(ctx, session, interaction)
		}
		return
	}

	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respondText(session, interaction, "This command can only be used in a server.", true)
		return
	}

	data := interaction.ApplicationCommandData()
	options := optionMap(data.Options)

	switch data.Name {
	case "config":
		b.handleConfig(ctx, session, interaction, options)
	case "warn":
		b.handleWarn(ctx, session, interaction, options)
	case "reactionrole":
		b.handleReactionRole(ctx, session, interaction, options)
	case "rank":
		b.handleRank(session, interaction, options)
	case "leaderboard":
		b.handleLeaderboard(session, interaction)
	case "mute":
		b.handleMute(ctx, session, interaction, options)
	case "verify":
		b.handleVerifyCommand(session, interaction)
	case "modlogs":
		b.handleModLogs(ctx, session, interaction, options)
	}
}

func (b *Bot) handleConfig(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	patch := guildcfg.Patch{}
	changed := false

	if opt, ok := options["log_channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			patch.LogChannelID = &channel.ID
			changed = true
		}
	}
	if opt, ok := options["welcome_channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			patch.WelcomeChannelID = &channel.ID
			changed = true
		}
	}
	if opt, ok := options["welcome_message"]; ok {
		value := opt.StringValue()
		patch.WelcomeMessage = &value
		changed = true
	}
	if opt, ok := options["goodbye_channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			patch.GoodbyeChannelID = &channel.ID
			changed = true
		}
	}
	if opt, ok := options["goodbye_message"]; ok {
		value := opt.StringValue()
		patch.GoodbyeMessage = &value
		changed = true
	}
	if opt, ok := options["auto_role"]; ok {
		if role := opt.RoleValue(session, interaction.GuildID); role != nil {
			patch.AutoRoleID = &role.ID
			changed = true
		}
	}
	if opt, ok := options["verify_role"]; ok {
		if role := opt.RoleValue(session, interaction.GuildID); role != nil {
			patch.VerifyRoleID = &role.ID
			changed = true
		}
	}
	if opt, ok := options["anti_spam"]; ok {
		value := opt.BoolValue()
		patch.AntiSpamEnabled = &value
		changed = true
	}
	if opt, ok := options["link_filter"]; ok {
		value := opt.BoolValue()
		patch.LinkFilterEnabled = &value
		changed = true
	}
	if opt, ok := options["invite_filter"]; ok {
		value := opt.BoolValue()
		patch.InviteFilterEnabled = &value
		changed = true
	}
	if opt, ok := options["blacklist_words"]; ok {
		words := strings.Split(opt.StringValue(), ",")
		patch.BlacklistWords = &words
		changed = true
	}

	cfg := b.configs.Get(ctx, interaction.GuildID)
	if changed {
		var err error
		cfg, err = b.configs.Update(ctx, interaction.GuildID, patch)
		if err != nil {
			b.logger.Warn("config update persist failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "Server Configuration",
		Color: embedColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Log Channel", Value: channelRef(cfg.LogChannelID), Inline: true},
			{Name: "Welcome Channel", Value: channelRef(cfg.WelcomeChannelID), Inline: true},
			{Name: "Goodbye Channel", Value: channelRef(cfg.GoodbyeChannelID), Inline: true},
			{Name: "Auto Role", Value: roleRef(cfg.AutoRoleID), Inline: true},
			{Name: "Verify Role", Value: roleRef(cfg.VerifyRoleID), Inline: true},
			{Name: "Anti-Spam", Value: fmt.Sprintf("%t", cfg.AntiSpamEnabled), Inline: true},
			{Name: "Link Filter", Value: fmt.Sprintf("%t", cfg.LinkFilterEnabled), Inline: true},
			{Name: "Invite Filter", Value: fmt.Sprintf("%t", cfg.InviteFilterEnabled), Inline: true},
			{Name: "Blacklist", Value: wordList(cfg.BlacklistWords), Inline: false},
		},
	}
	b.respondEmbed(session, interaction, embed, true)
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opt, ok := options["user"]
	if !ok {
		b.respondText(session, interaction, "User is required.", true)
		return
	}
	target := opt.UserValue(session)
	if target == nil {
		b.respondText(session, interaction, "Could not resolve that user.", true)
		return
	}

	invoker := interaction.Member
	if invoker != nil && invoker.User != nil && invoker.User.ID == target.ID {
		b.respondText(session, interaction, "You cannot warn yourself.", true)
		return
	}

	reason := "No reason provided."
	if opt, ok := options["reason"]; ok {
		reason = opt.StringValue()
	}

	total, err := b.warns.Add(ctx, interaction.GuildID, target.ID)
	if err != nil {
		b.logger.Warn("warning persist failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}

	moderator := ""
	if invoker != nil && invoker.User != nil {
		moderator = invoker.User.Username
	}

	embed := &discordgo.MessageEmbed{
		Title:       "User Warned",
		Color:       embedColorWarning,
		Description: fmt.Sprintf("⚠️ <@%s> has been warned.", target.ID),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Total Warnings", Value: fmt.Sprintf("%d", total), Inline: true},
			{Name: "Moderator", Value: moderator, Inline: true},
		},
	}
	b.respondEmbed(session, interaction, embed, false)

	b.sink.Emit(ctx, interaction.GuildID, target.ID, logsink.Event{
		Title:       "User Warned",
		Description: fmt.Sprintf("<@%s> was warned.", target.ID),
		Fields: []logsink.Field{
			{Name: "Reason", Value: reason},
			{Name: "Total Warnings", Value: fmt.Sprintf("%d", total), Inline: true},
		},
	})

	if channel, err := session.UserChannelCreate(target.ID); err == nil {
		guildName := b.guildName(session, interaction.GuildID)
		dm := fmt.Sprintf("You were warned in **%s**.\nReason: %s\nTotal warnings: %d", guildName, reason, total)
		_, _ = session.ChannelMessageSend(channel.ID, dm)
	}
}

var customEmojiInput = regexp.MustCompile(`^<a?:(\w+):(\d+)>$`)

// reactEmojiID converts raw emoji input into the name:id form the reaction
// endpoint wants for custom emoji; standard emoji pass through as the glyph.
func reactEmojiID(input string) string {
	if match := customEmojiInput.FindStringSubmatch(input); match != nil {
		return match[1] + ":" + match[2]
	}
	return input
}

func (b *Bot) handleReactionRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	emojiOpt, ok := options["emoji"]
	if !ok {
		b.respondText(session, interaction, "Emoji is required.", true)
		return
	}
	roleOpt, ok := options["role"]
	if !ok {
		b.respondText(session, interaction, "Role is required.", true)
		return
	}
	textOpt, ok := options["text"]
	if !ok {
		b.respondText(session, interaction, "Text is required.", true)
		return
	}

	emojiInput := emojiOpt.StringValue()
	role := roleOpt.RoleValue(session, interaction.GuildID)
	if role == nil {
		b.respondText(session, interaction, "Could not resolve that role.", true)
		return
	}

	msg, err := session.ChannelMessageSend(interaction.ChannelID, textOpt.StringValue())
	if err != nil || msg == nil {
		b.respondText(session, interaction, "Failed to send the reaction role message.", true)
		return
	}

	if err := session.MessageReactionAdd(interaction.ChannelID, msg.ID, reactEmojiID(emojiInput)); err != nil {
		b.respondText(session, interaction, "Failed to react with that emoji. Make sure it's valid.", true)
		return
	}

	if err := b.reactions.Register(ctx, interaction.GuildID, msg.ID, reactionroles.EmojiKey(emojiInput), role.ID); err != nil {
		b.logger.Warn("reaction role persist failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
	b.respondText(session, interaction, "Reaction role message created.", true)
}

func (b *Bot) handleRank(session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	if opt, ok := options["user"]; ok {
		target = opt.UserValue(session)
	}
	if target == nil && interaction.Member != nil {
		target = interaction.Member.User
	}
	if target == nil {
		b.respondText(session, interaction, "Could not resolve that user.", true)
		return
	}

	record := b.levels.Rank(interaction.GuildID, target.ID)
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Level for %s", target.Username),
		Color: embedColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("%d", record.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d", record.XP), Inline: true},
		},
	}
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleLeaderboard(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	entries := b.levels.Leaderboard(interaction.GuildID, 10)
	if len(entries) == 0 {
		b.respondText(session, interaction, "No leveling data yet.", false)
		return
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("`%d.` <@%s> – Level **%d**, XP **%d**", i+1, entry.UserID, entry.Level, entry.XP))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Top 10 – Level Leaderboard",
		Color:       embedColorPrimary,
		Description: strings.Join(lines, "\n"),
	}
	b.respondEmbed(session, interaction, embed, false)
}

func (b *Bot) handleMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	userOpt, ok := options["user"]
	if !ok {
		b.respondText(session, interaction, "User is required.", true)
		return
	}
	muteOpt, ok := options["mute"]
	if !ok {
		b.respondText(session, interaction, "Mute flag is required.", true)
		return
	}
	target := userOpt.UserValue(session)
	if target == nil {
		b.respondText(session, interaction, "Could not resolve that user.", true)
		return
	}

	reason := "No reason provided."
	if opt, ok := options["reason"]; ok {
		reason = opt.StringValue()
	}

	var role *discordgo.Role
	if opt, ok := options["role"]; ok {
		role = opt.RoleValue(session, interaction.GuildID)
	}
	if role == nil {
		role = b.findMutedRole(session, interaction.GuildID)
	}
	if role == nil {
		b.respondText(session, interaction, "Muted role not found. Please create one or specify it.", true)
		return
	}

	mute := muteOpt.BoolValue()
	var err error
	if mute {
		err = session.GuildMemberRoleAdd(interaction.GuildID, target.ID, role.ID)
	} else {
		err = session.GuildMemberRoleRemove(interaction.GuildID, target.ID, role.ID)
	}
	if err != nil {
		b.respondText(session, interaction, "Failed to mute/unmute. Check my role permissions.", true)
		return
	}

	moderator := ""
	if interaction.Member != nil && interaction.Member.User != nil {
		moderator = interaction.Member.User.Username
	}

	if mute {
		b.respondText(session, interaction, fmt.Sprintf("🔇 <@%s> has been muted. Reason: %s", target.ID, reason), false)
	} else {
		b.respondText(session, interaction, fmt.Sprintf("🔊 <@%s> has been unmuted. Reason: %s", target.ID, reason), false)
	}

	title := "User Muted"
	description := fmt.Sprintf("<@%s> was muted.", target.ID)
	if !mute {
		title = "User Unmuted"
		description = fmt.Sprintf("<@%s> was unmuted.", target.ID)
	}
	b.sink.Emit(ctx, interaction.GuildID, target.ID, logsink.Event{
		Title:       title,
		Description: description,
		Fields: []logsink.Field{
			{Name: "Reason", Value: reason},
			{Name: "Moderator", Value: moderator, Inline: true},
		},
	})
}

func (b *Bot) handleModLogs(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	since := time.Now().Add(-24 * time.Hour)
	if opt, ok := options["period"]; ok && opt.StringValue() == "week" {
		since = time.Now().Add(-7 * 24 * time.Hour)
	}

	report, err := b.analytics.Report(ctx, interaction.GuildID, since)
	if err != nil {
		b.logger.Warn("mod log report failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondText(session, interaction, "Failed to load moderation logs.", true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Total Events", Value: fmt.Sprintf("%d", report.Total), Inline: true},
	}
	events := make([]string, 0, len(report.ByEvent))
	for event := range report.ByEvent {
		events = append(events, event)
	}
	sort.Strings(events)
	for _, event := range events {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   event,
			Value:  fmt.Sprintf("%d", report.ByEvent[event]),
			Inline: true,
		})
	}

	if opt, ok := options["user"]; ok {
		if target := opt.UserValue(session); target != nil {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   fmt.Sprintf("Warnings – %s", target.Username),
				Value:  fmt.Sprintf("%d", b.warns.Count(interaction.GuildID, target.ID)),
				Inline: true,
			})
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:  "Moderation Report",
		Color:  embedColorPrimary,
		Fields: fields,
	}
	b.respondEmbed(session, interaction, embed, true)
}

func (b *Bot) handleVerifyCommand(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Click the button below to verify and receive your role.",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							CustomID: verifyButtonID,
							Label:    "Verify",
							Style:    discordgo.SuccessButton,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.logger.Warn("verify message failed", zap.Error(err))
	}
}

func (b *Bot) handleVerifyButton(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	cfg := b.configs.Get(ctx, interaction.GuildID)
	if cfg.VerifyRoleID == "" {
		b.respondText(session, interaction, "Verify role not configured.", true)
		return
	}

	if err := session.GuildMemberRoleAdd(interaction.GuildID, interaction.Member.User.ID, cfg.VerifyRoleID); err != nil {
		b.respondText(session, interaction, "Failed to assign role. Check my permissions.", true)
		return
	}
	b.respondText(session, interaction, "✅ You are now verified.", true)
}

func (b *Bot) findMutedRole(session *discordgo.Session, guildID string) *discordgo.Role {
	guild, err := session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = session.Guild(guildID)
	}
	if guild == nil {
		return nil
	}
	for _, role := range guild.Roles {
		if strings.EqualFold(role.Name, "muted") {
			return role
		}
	}
	return nil
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	mapped := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, option := range options {
		mapped[option.Name] = option
	}
	return mapped
}

func channelRef(id string) string {
	if id == "" {
		return "not set"
	}
	return "<#" + id + ">"
}

func roleRef(id string) string {
	if id == "" {
		return "not set"
	}
	return "<@&" + id + ">"
}

func wordList(words []string) string {
	if len(words) == 0 {
		return "none"
	}
	return strings.Join(words, ", ")
}
