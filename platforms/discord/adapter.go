package discord

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"aide/core"
)

const maxMessageLength = 2000

type Config struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
}

type DiscordAdapter struct {
	Session *discordgo.Session
	Core    *core.Bot
	BotID   string
	self    core.Identity
	ctx     context.Context
}

func NewDiscordAdapter(token string, coreBot *core.Bot) (*DiscordAdapter, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return &DiscordAdapter{
		Session: dg,
		Core:    coreBot,
		ctx:     context.Background(),
	}, nil
}

func (da *DiscordAdapter) Identity() core.Identity { return da.self }

// Start opens the gateway connection and blocks until ctx is cancelled.
func (da *DiscordAdapter) Start(ctx context.Context) error {
	da.ctx = ctx

	u, err := da.Session.User("@me")
	if err != nil {
		return fmt.Errorf("error fetching self user: %w", err)
	}
	selfID, err := strconv.ParseInt(u.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("unexpected discord user id %q: %w", u.ID, err)
	}
	da.BotID = u.ID
	da.self = core.Identity{
		ID:          core.UserID(selfID),
		Username:    u.Username,
		DisplayName: u.GlobalName,
	}

	da.Session.AddHandler(da.handleMessage)
	if err := da.Session.Open(); err != nil {
		return fmt.Errorf("error opening discord connection: %w", err)
	}
	defer da.Session.Close()

	log.Info().Str("username", u.Username).Msg("Discord adapter started")

	<-ctx.Done()
	return nil
}

func (da *DiscordAdapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || da.BotID == "" {
		return
	}

	senderID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		log.Warn().Err(err).Str("author", m.Author.ID).Msg("Skipping message with non-numeric author id")
		return
	}

	incoming := core.IncomingMessage{
		Platform:  "discord",
		MessageID: m.ID,
		UserID:    core.UserID(senderID),
		UserName:  m.Author.Username,
		ChatID:    m.ChannelID,
		ChatKind:  da.channelKind(s, m),
		Content:   da.normalizeMentions(m.Content),
		Forwarded: m.MessageReference != nil && m.MessageReference.Type == discordgo.MessageReferenceTypeForward,
		SenderBot: m.Author.Bot,
	}

	go da.Core.HandleMessage(da.ctx, incoming, da.self, da)
}

// normalizeMentions rewrites <@id> tokens to @username so mention gating
// sees the same form on every platform.
func (da *DiscordAdapter) normalizeMentions(content string) string {
	handle := "@" + da.self.Username
	content = strings.ReplaceAll(content, "<@"+da.BotID+">", handle)
	return strings.ReplaceAll(content, "<@!"+da.BotID+">", handle)
}

func (da *DiscordAdapter) channelKind(s *discordgo.Session, m *discordgo.MessageCreate) core.ChatKind {
	if m.GuildID == "" {
		return core.ChatDirect
	}
	if ch, err := s.State.Channel(m.ChannelID); err == nil && ch.Type == discordgo.ChannelTypeGuildNews {
		return core.ChatChannel
	}
	return core.ChatGroup
}

func truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength - 10
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func reference(chatID, replyTo string) *discordgo.MessageReference {
	if replyTo == "" {
		return nil
	}
	return &discordgo.MessageReference{
		MessageID: replyTo,
		ChannelID: chatID,
	}
}

func (da *DiscordAdapter) ReplyText(ctx context.Context, chatID string, replyTo string, text string) error {
	_, err := da.Session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content:   truncate(text),
		Reference: reference(chatID, replyTo),
	})
	return err
}

func (da *DiscordAdapter) ReplyImage(ctx context.Context, chatID string, replyTo string, caption string, img core.Image) error {
	_, err := da.Session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
		Content: truncate(caption),
		Files: []*discordgo.File{{
			Name:        img.Name,
			ContentType: img.MimeType,
			Reader:      bytes.NewReader(img.Data),
		}},
		Reference: reference(chatID, replyTo),
	})
	return err
}

func (da *DiscordAdapter) SendTyping(ctx context.Context, chatID string) error {
	return da.Session.ChannelTyping(chatID)
}
