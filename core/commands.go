package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"aide/modules"
)

const (
	ResetReply            = "Conversation reset!"
	StartReply            = "Hi! I'm your assistant. Ask me anything."
	SentimentFailureReply = "❌ Failed to fetch sentiment data. Please try again later."
)

type CommandContext struct {
	Ctx       context.Context
	Msg       IncomingMessage
	Responder Responder
	Bot       *Bot
}

func (cc CommandContext) Reply(text string) error {
	return cc.Responder.ReplyText(cc.Ctx, cc.Msg.ChatID, cc.Msg.MessageID, text)
}

type CommandHandler func(cc CommandContext) error

type Command struct {
	Name     string
	Prefixes []string
	Handler  CommandHandler
}

// CommandRegistry matches message text against literal, case-sensitive
// prefixes. Commands are tried in registration order.
type CommandRegistry struct {
	commands []Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

func (r *CommandRegistry) Register(name string, prefixes []string, handler CommandHandler) {
	r.commands = append(r.commands, Command{
		Name:     name,
		Prefixes: prefixes,
		Handler:  handler,
	})
}

func (r *CommandRegistry) Match(text string) (Command, bool) {
	for _, cmd := range r.commands {
		for _, prefix := range cmd.Prefixes {
			if strings.HasPrefix(text, prefix) {
				return cmd, true
			}
		}
	}
	return Command{}, false
}

// Prefixes lists every registered prefix, in match order.
func (r *CommandRegistry) Prefixes() []string {
	var out []string
	for _, cmd := range r.commands {
		out = append(out, cmd.Prefixes...)
	}
	return out
}

func (r *CommandRegistry) Execute(cmd Command, cc CommandContext) {
	if err := cmd.Handler(cc); err != nil {
		log.Error().Err(err).Str("command", cmd.Name).Str("chat", cc.Msg.ChatID).Msg("Command failed")
		if sendErr := cc.Reply(fmt.Sprintf("⚠️ Error executing command: %v", err)); sendErr != nil {
			log.Error().Err(sendErr).Msg("Failed to send command error")
		}
	}
}

func RegisterDefaultCommands(b *Bot) {
	b.Commands.Register("sentiment", []string{"/sentiment", "/fear"}, handleSentiment)

	b.Commands.Register("reset", []string{"/reset"}, func(cc CommandContext) error {
		cc.Bot.History.Clear(cc.Msg.UserID)
		return cc.Reply(ResetReply)
	})

	b.Commands.Register("start", []string{"/start"}, func(cc CommandContext) error {
		cc.Bot.History.Clear(cc.Msg.UserID)
		return cc.Reply(StartReply)
	})
}

func handleSentiment(cc CommandContext) error {
	if cc.Bot.Sentiment == nil {
		return cc.Reply(SentimentFailureReply)
	}

	_ = cc.Responder.SendTyping(cc.Ctx, cc.Msg.ChatID)

	report, err := cc.Bot.Sentiment.Fetch(cc.Ctx)
	if err != nil {
		log.Warn().Err(err).Str("chat", cc.Msg.ChatID).Msg("Sentiment lookup failed")
		return cc.Reply(SentimentFailureReply)
	}

	if report.Gauge == nil {
		return cc.Reply(report.Text)
	}

	err = cc.Responder.ReplyImage(cc.Ctx, cc.Msg.ChatID, cc.Msg.MessageID, report.Text, Image{
		Name:     modules.GaugeFileName,
		MimeType: "image/png",
		Data:     report.Gauge,
	})
	if err != nil {
		log.Warn().Err(err).Str("chat", cc.Msg.ChatID).Msg("Gauge upload failed, sending text only")
		return cc.Reply(report.Text)
	}
	return nil
}
