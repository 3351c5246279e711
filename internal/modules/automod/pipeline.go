package automod

import (
	"context"
	"regexp"
	"strings"
	"time"

	"guildwarden/internal/guildcfg"
	"guildwarden/internal/modules/leveling"
	"guildwarden/internal/modules/spamguard"
)

// Rule identifiers, in evaluation order. The order is a precedence policy: the
// first enabled stage that matches terminates evaluation.
const (
	RuleInviteFilter = "invite_filter"
	RuleLinkFilter   = "link_filter"
	RuleBlacklist    = "blacklist"
	RuleAntiSpam     = "anti_spam"
)

type Verdict int

const (
	Allow Verdict = iota
	Reject
)

type Action struct {
	Verdict Verdict
	Rule    string
	Matched string
}

type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Content   string
	Bot       bool
}

// Outcome is the single terminal decision for one message plus whatever the
// stateful stages produced along the way.
type Outcome struct {
	Action    Action
	SpamCount int
	LevelUp   *leveling.LevelUp
}

var (
	invitePatterns = []string{"discord.gg/", "discord.com/invite/"}
	urlPattern     = regexp.MustCompile(`(?i)https?://\S+`)
)

type Pipeline struct {
	spam   *spamguard.Tracker
	levels *leveling.Engine
}

func New(spam *spamguard.Tracker, levels *leveling.Engine) *Pipeline {
	return &Pipeline{spam: spam, levels: levels}
}

// Evaluate runs the stateless filter stages: invite filter, link filter,
// blacklist. It is a pure function of config and content.
func Evaluate(cfg guildcfg.GuildConfig, content string) Action {
	lowered := strings.ToLower(content)

	if cfg.InviteFilterEnabled {
		for _, pattern := range invitePatterns {
			if strings.Contains(lowered, pattern) {
				return Action{Verdict: Reject, Rule: RuleInviteFilter, Matched: pattern}
			}
		}
	}

	if cfg.LinkFilterEnabled {
		if match := urlPattern.FindString(content); match != "" {
			return Action{Verdict: Reject, Rule: RuleLinkFilter, Matched: match}
		}
	}

	// Raw substring containment, no word boundaries: "ass" matches "class".
	// Literal policy carried over from the original filter.
	for _, word := range cfg.BlacklistWords {
		if word == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(word)) {
			return Action{Verdict: Reject, Rule: RuleBlacklist, Matched: word}
		}
	}

	return Action{Verdict: Allow}
}

// HandleMessage runs the full pipeline for one inbound message. Automated
// authors skip every stage. At most one stage rejects; a non-rejected message
// feeds the leveling engine.
func (p *Pipeline) HandleMessage(ctx context.Context, cfg guildcfg.GuildConfig, msg Message, now time.Time) Outcome {
	if msg.Bot {
		return Outcome{Action: Action{Verdict: Allow}}
	}

	if action := Evaluate(cfg, msg.Content); action.Verdict == Reject {
		return Outcome{Action: action}
	}

	if cfg.AntiSpamEnabled {
		decision := p.spam.Record(msg.GuildID, msg.AuthorID, now)
		if decision.Fired {
			return Outcome{
				Action:    Action{Verdict: Reject, Rule: RuleAntiSpam},
				SpamCount: decision.Count,
			}
		}
	}

	outcome := Outcome{Action: Action{Verdict: Allow}}
	if up, leveled := p.levels.Grant(ctx, msg.GuildID, msg.AuthorID, now); leveled {
		outcome.LevelUp = &up
	}
	return outcome
}
