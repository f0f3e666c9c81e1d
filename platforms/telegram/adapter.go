package telegram

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"aide/core"
)

const maxMessageLength = 4096

type Config struct {
	Enabled     bool   `toml:"enabled"`
	Token       string `toml:"token"`
	PollTimeout int    `toml:"poll_timeout"`
}

type TelegramAdapter struct {
	API    *tgbotapi.BotAPI
	Core   *core.Bot
	Config *Config
	self   core.Identity
}

func NewTelegramAdapter(cfg *Config, coreBot *core.Bot) (*TelegramAdapter, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error connecting to telegram: %w", err)
	}

	return &TelegramAdapter{
		API:    api,
		Core:   coreBot,
		Config: cfg,
		self: core.Identity{
			ID:          core.UserID(api.Self.ID),
			Username:    api.Self.UserName,
			DisplayName: api.Self.FirstName,
		},
	}, nil
}

func (ta *TelegramAdapter) Identity() core.Identity { return ta.self }

// Start long-polls for updates until ctx is cancelled.
func (ta *TelegramAdapter) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = ta.Config.PollTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}

	updates := ta.API.GetUpdatesChan(u)
	log.Info().Str("username", ta.self.Username).Msg("Telegram adapter started")

	for {
		select {
		case <-ctx.Done():
			ta.API.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil {
				continue
			}
			go ta.Core.HandleMessage(ctx, translate(msg), ta.self, ta)
		}
	}
}

func translate(m *tgbotapi.Message) core.IncomingMessage {
	in := core.IncomingMessage{
		Platform:  "telegram",
		MessageID: strconv.Itoa(m.MessageID),
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		ChatKind:  chatKind(m.Chat),
		Content:   m.Text,
		Forwarded: m.ForwardDate != 0 || m.ForwardFrom != nil || m.ForwardFromChat != nil || m.ForwardSenderName != "",
	}
	if in.Content == "" {
		in.Content = m.Caption
	}

	switch {
	case m.From != nil:
		in.UserID = core.UserID(m.From.ID)
		in.UserName = m.From.UserName
		in.SenderBot = m.From.IsBot
	case m.SenderChat != nil:
		in.UserID = core.UserID(m.SenderChat.ID)
		in.UserName = m.SenderChat.Title
	}
	return in
}

func chatKind(chat *tgbotapi.Chat) core.ChatKind {
	switch {
	case chat == nil || chat.IsPrivate():
		return core.ChatDirect
	case chat.IsChannel():
		return core.ChatChannel
	default:
		return core.ChatGroup
	}
}

// truncate cuts text to the message limit on a rune boundary.
func truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func parseIDs(chatID, replyTo string) (int64, int, error) {
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	mid, _ := strconv.Atoi(replyTo)
	return cid, mid, nil
}

func (ta *TelegramAdapter) ReplyText(ctx context.Context, chatID string, replyTo string, text string) error {
	cid, mid, err := parseIDs(chatID, replyTo)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(cid, truncate(text))
	msg.ReplyToMessageID = mid
	_, err = ta.API.Send(msg)
	return err
}

func (ta *TelegramAdapter) ReplyImage(ctx context.Context, chatID string, replyTo string, caption string, img core.Image) error {
	cid, mid, err := parseIDs(chatID, replyTo)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(cid, tgbotapi.FileBytes{Name: img.Name, Bytes: img.Data})
	photo.Caption = caption
	photo.ReplyToMessageID = mid
	_, err = ta.API.Send(photo)
	return err
}

func (ta *TelegramAdapter) SendTyping(ctx context.Context, chatID string) error {
	cid, _, err := parseIDs(chatID, "")
	if err != nil {
		return err
	}
	_, err = ta.API.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))
	return err
}
