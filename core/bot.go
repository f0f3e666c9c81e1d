package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"

	"aide/core/failure"
	"aide/modules"
)

type BotConfig struct {
	// Name is the display name used for mention gating where the platform
	// has no profile name of its own.
	Name         string `toml:"name"`
	SystemPrompt string `toml:"system_prompt"`
	MaxHistory   int    `toml:"max_history"`
}

type SentimentSource interface {
	Fetch(ctx context.Context) (*modules.SentimentReport, error)
}

type Bot struct {
	History   History
	Completer *Completer
	Sentiment SentimentSource
	Commands  *CommandRegistry
}

func NewBot(history History, completer *Completer, sentiment SentimentSource) *Bot {
	b := &Bot{
		History:   history,
		Completer: completer,
		Sentiment: sentiment,
		Commands:  NewCommandRegistry(),
	}
	RegisterDefaultCommands(b)
	return b
}

type Action int

const (
	ActionIgnore Action = iota
	ActionCommand
	ActionChat
)

func (a Action) String() string {
	switch a {
	case ActionCommand:
		return "command"
	case ActionChat:
		return "chat"
	default:
		return "ignore"
	}
}

type Decision struct {
	Action  Action
	Reason  string
	Command Command
}

// Classify decides what to do with a message without side effects.
func (b *Bot) Classify(msg IncomingMessage, self Identity) Decision {
	switch {
	case msg.UserID == self.ID:
		return Decision{Action: ActionIgnore, Reason: "own message"}
	case msg.SenderBot:
		return Decision{Action: ActionIgnore, Reason: "bot sender"}
	case msg.Forwarded:
		return Decision{Action: ActionIgnore, Reason: "forwarded"}
	}

	if cmd, ok := b.Commands.Match(msg.Content); ok {
		return Decision{Action: ActionCommand, Reason: cmd.Name, Command: cmd}
	}

	if msg.Content == "" {
		return Decision{Action: ActionIgnore, Reason: "empty message"}
	}

	if msg.ChatKind == ChatDirect {
		return Decision{Action: ActionChat, Reason: "direct message"}
	}
	if Mentions(msg.Content, self) {
		return Decision{Action: ActionChat, Reason: "mentioned"}
	}
	return Decision{Action: ActionIgnore, Reason: "not mentioned"}
}

// Mentions reports whether text contains @username or the display name.
func Mentions(text string, self Identity) bool {
	if self.Username != "" && strings.Contains(text, "@"+self.Username) {
		return true
	}
	return self.DisplayName != "" && strings.Contains(text, self.DisplayName)
}

func (b *Bot) HandleMessage(ctx context.Context, msg IncomingMessage, self Identity, responder Responder) Decision {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("PANIC in HandleMessage")
		}
	}()

	decision := b.Classify(msg, self)
	log.Debug().
		Str("platform", msg.Platform).
		Int64("sender", int64(msg.UserID)).
		Str("chat", msg.ChatID).
		Stringer("kind", msg.ChatKind).
		Stringer("action", decision.Action).
		Str("reason", decision.Reason).
		Msg("Message classified")

	switch decision.Action {
	case ActionCommand:
		b.Commands.Execute(decision.Command, CommandContext{
			Ctx:       ctx,
			Msg:       msg,
			Responder: responder,
			Bot:       b,
		})
	case ActionChat:
		b.processText(ctx, msg, responder)
	}
	return decision
}

func (b *Bot) processText(ctx context.Context, msg IncomingMessage, responder Responder) {
	_ = responder.SendTyping(ctx, msg.ChatID)

	reply, err := b.Completer.Complete(ctx, msg.UserID, msg.Content)
	if err != nil {
		log.Error().Err(err).Int64("sender", int64(msg.UserID)).Msg("Completion failed")
		reply = ChatErrorReply(err)
	}

	if err := responder.ReplyText(ctx, msg.ChatID, msg.MessageID, reply); err != nil {
		log.Error().Err(err).Str("chat", msg.ChatID).Msg("Failed to send reply")
	}
}

// ChatErrorReply is the text shown to the user when a completion fails.
func ChatErrorReply(err error) string {
	return fmt.Sprintf("Error: %s: %s", failure.KindOf(err), failure.Detail(err))
}
