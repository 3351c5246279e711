package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildwarden/internal/logsink"
	"guildwarden/internal/modules/automod"
	"guildwarden/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	filterContentCap = 500
	auditContentCap  = 1000
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg := b.configs.Get(ctx, msg.GuildID)

	outcome := b.pipeline.HandleMessage(ctx, cfg, automod.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		AuthorID:  msg.Author.ID,
		Content:   msg.Content,
		Bot:       msg.Author.Bot,
	}, time.Now())

	switch {
	case outcome.Action.Verdict == automod.Reject && outcome.Action.Rule == automod.RuleAntiSpam:
		b.handleSpamTrigger(ctx, session, msg, outcome.SpamCount)
	case outcome.Action.Verdict == automod.Reject:
		b.handleFilterReject(ctx, session, msg, outcome.Action)
	default:
		if outcome.LevelUp != nil {
			content := fmt.Sprintf("🎉 <@%s> leveled up to **level %d**!", msg.Author.ID, outcome.LevelUp.NewLevel)
			_, _ = session.ChannelMessageSend(msg.ChannelID, content)
		}
	}
}

func (b *Bot) handleFilterReject(ctx context.Context, session *discordgo.Session, msg *discordgo.MessageCreate, action automod.Action) {
	if err := session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
		b.logger.Warn("message delete failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
	b.sendExpiringWarning(session, msg.ChannelID, filterWarnText(action.Rule, msg.Author.ID))

	event := logsink.Event{
		Title:       filterEventTitle(action.Rule),
		Description: filterEventDescription(action.Rule, msg.Author.ID),
	}
	if action.Rule == automod.RuleBlacklist {
		event.Fields = append(event.Fields, logsink.Field{Name: "Word", Value: action.Matched})
	}
	if action.Rule == automod.RuleLinkFilter {
		if normalized, _, err := utils.NormalizeURL(action.Matched); err == nil {
			event.Fields = append(event.Fields, logsink.Field{Name: "Link", Value: normalized})
		}
	}
	event.Fields = append(event.Fields, logsink.Field{Name: "Content", Value: logsink.Truncate(msg.Content, filterContentCap)})
	b.sink.Emit(ctx, msg.GuildID, msg.Author.ID, event)
}

func (b *Bot) handleSpamTrigger(ctx context.Context, session *discordgo.Session, msg *discordgo.MessageCreate, count int) {
	timeout := time.Duration(b.cfg.AutoMod.SpamTimeoutMinutes) * time.Minute
	action := "detected"
	until := time.Now().Add(timeout)
	if err := session.GuildMemberTimeout(msg.GuildID, msg.Author.ID, &until); err != nil {
		b.logger.Warn("spam timeout failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		action = "detected (failed to timeout; missing permissions?)"
	} else {
		action = fmt.Sprintf("timed out for %d minutes", b.cfg.AutoMod.SpamTimeoutMinutes)
	}

	reply := fmt.Sprintf("🚨 **Spam detected.** <@%s>, slow down.\n(You have been %s.)", msg.Author.ID, action)
	if _, err := session.ChannelMessageSendReply(msg.ChannelID, reply, msg.Reference()); err != nil {
		b.logger.Warn("spam reply failed", zap.Error(err))
	}

	b.sink.Emit(ctx, msg.GuildID, msg.Author.ID, logsink.Event{
		Title: "Spam Detected",
		Description: fmt.Sprintf("User <@%s> triggered spam protection (%d msgs / %ds).",
			msg.Author.ID, count, b.cfg.AutoMod.SpamWindowMS/1000),
		Fields: []logsink.Field{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", msg.Author.Username, msg.Author.ID)},
			{Name: "Action", Value: action},
		},
	})
}

// sendExpiringWarning posts a short-lived notice and removes it again so the
// channel does not fill up with moderation chatter.
func (b *Bot) sendExpiringWarning(session *discordgo.Session, channelID, content string) {
	sent, err := session.ChannelMessageSend(channelID, content)
	if err != nil || sent == nil {
		return
	}
	expiry := time.Duration(b.cfg.AutoMod.WarnReplySeconds) * time.Second
	time.AfterFunc(expiry, func() {
		_ = session.ChannelMessageDelete(channelID, sent.ID)
	})
}

func filterWarnText(rule, userID string) string {
	switch rule {
	case automod.RuleInviteFilter:
		return fmt.Sprintf("🚫 <@%s>, Discord invites are not allowed here.", userID)
	case automod.RuleLinkFilter:
		return fmt.Sprintf("🔗 <@%s>, links are disabled in this server.", userID)
	default:
		return fmt.Sprintf("🛑 <@%s>, that word is not allowed here.", userID)
	}
}

func filterEventTitle(rule string) string {
	switch rule {
	case automod.RuleInviteFilter:
		return "Invite Blocked"
	case automod.RuleLinkFilter:
		return "Link Blocked"
	default:
		return "Blacklisted Word"
	}
}

func filterEventDescription(rule, userID string) string {
	switch rule {
	case automod.RuleInviteFilter:
		return fmt.Sprintf("Deleted invite link from <@%s>.", userID)
	case automod.RuleLinkFilter:
		return fmt.Sprintf("Deleted link message from <@%s>.", userID)
	default:
		return fmt.Sprintf("Message from <@%s> contained blacklisted word.", userID)
	}
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, msg *discordgo.MessageUpdate) {
	if msg.GuildID == "" || msg.Author == nil || msg.Author.Bot {
		return
	}

	before := "[Unknown content]"
	if msg.BeforeUpdate != nil {
		before = msg.BeforeUpdate.Content
		if before == "" {
			before = "[No content]"
		}
	}
	after := msg.Content
	if after == "" {
		after = "[No content]"
	}
	if before == after {
		return
	}

	b.sink.Emit(context.Background(), msg.GuildID, msg.Author.ID, logsink.Event{
		Title: "Message Edited",
		Fields: []logsink.Field{
			{Name: "Author", Value: fmt.Sprintf("%s (%s)", msg.Author.Username, msg.Author.ID)},
			{Name: "Channel", Value: "<#" + msg.ChannelID + ">"},
			{Name: "Before", Value: logsink.Truncate(before, filterContentCap)},
			{Name: "After", Value: logsink.Truncate(after, filterContentCap)},
		},
	})
}

func (b *Bot) onMessageDelete(session *discordgo.Session, msg *discordgo.MessageDelete) {
	if msg.GuildID == "" {
		return
	}

	author := "Unknown"
	userID := ""
	content := "[Unknown content]"
	if msg.BeforeDelete != nil {
		if msg.BeforeDelete.Author != nil {
			if msg.BeforeDelete.Author.Bot {
				return
			}
			author = msg.BeforeDelete.Author.Username
			userID = msg.BeforeDelete.Author.ID
		}
		if msg.BeforeDelete.Content != "" {
			content = msg.BeforeDelete.Content
		}
	}

	b.sink.Emit(context.Background(), msg.GuildID, userID, logsink.Event{
		Title: "Message Deleted",
		Fields: []logsink.Field{
			{Name: "Author", Value: fmt.Sprintf("%s (%s)", author, userID)},
			{Name: "Channel", Value: "<#" + msg.ChannelID + ">"},
			{Name: "Content", Value: logsink.Truncate(content, auditContentCap)},
		},
	})
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.Member.User == nil || event.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg := b.configs.Get(ctx, event.GuildID)
	userID := event.Member.User.ID

	if cfg.AutoRoleID != "" {
		if err := session.GuildMemberRoleAdd(event.GuildID, userID, cfg.AutoRoleID); err != nil {
			b.logger.Warn("auto role grant failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
	}

	if cfg.WelcomeChannelID != "" {
		content := renderTemplate(cfg.WelcomeMessage, "<@"+userID+">", b.guildName(session, event.GuildID))
		_, _ = session.ChannelMessageSend(cfg.WelcomeChannelID, content)
	}

	fields := []logsink.Field{
		{Name: "User", Value: fmt.Sprintf("%s (%s)", event.Member.User.Username, userID)},
	}
	if created := accountCreated(userID); created != "" {
		fields = append(fields, logsink.Field{Name: "Account Created", Value: created})
	}
	b.sink.Emit(ctx, event.GuildID, userID, logsink.Event{
		Title:       "Member Joined",
		Description: fmt.Sprintf("👤 <@%s> joined the server.", userID),
		Fields:      fields,
	})
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.Member.User == nil || event.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg := b.configs.Get(ctx, event.GuildID)
	user := event.Member.User

	if cfg.GoodbyeChannelID != "" {
		content := renderTemplate(cfg.GoodbyeMessage, user.Username, b.guildName(session, event.GuildID))
		_, _ = session.ChannelMessageSend(cfg.GoodbyeChannelID, content)
	}

	b.sink.Emit(ctx, event.GuildID, user.ID, logsink.Event{
		Title:       "Member Left",
		Description: fmt.Sprintf("👋 %s (%s) left the server.", user.Username, user.ID),
	})
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" || b.isOwnReaction(session, event.UserID) {
		return
	}
	roleID, ok := b.reactions.Resolve(event.GuildID, event.MessageID, reactionKey(event.Emoji))
	if !ok {
		return
	}
	if err := session.GuildMemberRoleAdd(event.GuildID, event.UserID, roleID); err != nil {
		b.logger.Warn("reaction role add failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onMessageReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.GuildID == "" || b.isOwnReaction(session, event.UserID) {
		return
	}
	roleID, ok := b.reactions.Resolve(event.GuildID, event.MessageID, reactionKey(event.Emoji))
	if !ok {
		return
	}
	if err := session.GuildMemberRoleRemove(event.GuildID, event.UserID, roleID); err != nil {
		b.logger.Warn("reaction role remove failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) isOwnReaction(session *discordgo.Session, userID string) bool {
	return session.State != nil && session.State.User != nil && session.State.User.ID == userID
}

// reactionKey matches the registry normalization: custom emoji by id,
// standard emoji by glyph.
func reactionKey(emoji discordgo.Emoji) string {
	if emoji.ID != "" {
		return emoji.ID
	}
	return emoji.Name
}

// accountCreated derives the account creation time from the user ID snowflake.
func accountCreated(userID string) string {
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return ""
	}
	return created.UTC().Format(time.RFC3339)
}

func (b *Bot) guildName(session *discordgo.Session, guildID string) string {
	guild, err := session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = session.Guild(guildID)
	}
	if guild == nil {
		return ""
	}
	return guild.Name
}

func renderTemplate(template, user, server string) string {
	replacer := strings.NewReplacer("{user}", user, "{server}", server)
	return replacer.Replace(template)
}
