package core

import "context"

type UserID int64

type ChatKind int

const (
	ChatDirect ChatKind = iota
	ChatGroup
	ChatChannel
)

func (k ChatKind) String() string {
	switch k {
	case ChatDirect:
		return "direct"
	case ChatGroup:
		return "group"
	case ChatChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Identity is the account the adapter is logged in as.
type Identity struct {
	ID          UserID
	Username    string
	DisplayName string
}

type IncomingMessage struct {
	Platform  string
	MessageID string
	UserID    UserID
	UserName  string
	ChatID    string
	ChatKind  ChatKind
	Content   string
	Forwarded bool
	SenderBot bool
}

// Image is an attachment sent with a caption.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

type Responder interface {
	ReplyText(ctx context.Context, chatID string, replyTo string, text string) error
	ReplyImage(ctx context.Context, chatID string, replyTo string, caption string, img Image) error
	SendTyping(ctx context.Context, chatID string) error
}
