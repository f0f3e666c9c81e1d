package matrix

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"aide/core"
)

// staleAfter drops events replayed by an initial sync.
const staleAfter = 2 * time.Minute

type MatrixAdapter struct {
	Client    *mautrix.Client
	Core      *core.Bot
	Config    *Config
	directory *userDirectory
	self      core.Identity
}

func NewMatrixAdapter(client *mautrix.Client, coreBot *core.Bot, cfg *Config, displayName string) *MatrixAdapter {
	dir := newUserDirectory()

	localpart, _, err := client.UserID.Parse()
	if err != nil {
		localpart = string(client.UserID)
	}

	return &MatrixAdapter{
		Client:    client,
		Core:      coreBot,
		Config:    cfg,
		directory: dir,
		self: core.Identity{
			ID:          dir.lookup(client.UserID),
			Username:    localpart,
			DisplayName: displayName,
		},
	}
}

func (ma *MatrixAdapter) Identity() core.Identity { return ma.self }

func (ma *MatrixAdapter) Start(ctx context.Context) error {
	syncer := ma.Client.Syncer.(*mautrix.DefaultSyncer)

	syncer.OnEventType(event.EventMessage, ma.handleEvent)
	syncer.OnEventType(event.StateMember, ma.handleInvite)

	log.Info().Str("user_id", ma.Client.UserID.String()).Msg("Starting Matrix adapter")
	err := ma.Client.SyncWithContext(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (ma *MatrixAdapter) handleInvite(ctx context.Context, evt *event.Event) {
	if !ma.Config.AutoJoinInvites {
		return
	}

	if !isInviteFor(evt, ma.Client.UserID) {
		return
	}

	log.Info().Str("inviter", evt.Sender.String()).Str("room", evt.RoomID.String()).Msg("Received invite, joining")
	if _, err := ma.Client.JoinRoom(ctx, evt.RoomID.String(), nil); err != nil {
		log.Error().Err(err).Str("room", evt.RoomID.String()).Msg("Failed to join room")
		return
	}
	log.Info().Str("room", evt.RoomID.String()).Msg("Joined room")
}

func (ma *MatrixAdapter) handleEvent(ctx context.Context, evt *event.Event) {
	if isStale(evt, time.Now()) {
		return
	}

	body, ok := textBody(evt)
	if !ok {
		return
	}

	go ma.Core.HandleMessage(ctx, ma.translate(evt, body, ma.roomKind(ctx, evt.RoomID)), ma.self, ma)
}

func isInviteFor(evt *event.Event, self id.UserID) bool {
	return evt.Content.AsMember().Membership == event.MembershipInvite &&
		evt.GetStateKey() == self.String()
}

// isStale reports whether evt is older than staleAfter at now.
func isStale(evt *event.Event, now time.Time) bool {
	return now.Sub(time.UnixMilli(evt.Timestamp)) > staleAfter
}

// textBody returns the body of a plain m.text message. Notices, emotes and
// media are skipped.
func textBody(evt *event.Event) (string, bool) {
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return "", false
	}
	return content.Body, true
}

func (ma *MatrixAdapter) translate(evt *event.Event, body string, kind core.ChatKind) core.IncomingMessage {
	return core.IncomingMessage{
		Platform:  "matrix",
		MessageID: evt.ID.String(),
		UserID:    ma.directory.lookup(evt.Sender),
		UserName:  evt.Sender.String(),
		ChatID:    evt.RoomID.String(),
		ChatKind:  kind,
		Content:   body,
		SenderBot: slices.Contains(ma.Config.IgnoreUsers, evt.Sender.String()),
	}
}

func (ma *MatrixAdapter) roomKind(ctx context.Context, roomID id.RoomID) core.ChatKind {
	members, err := ma.Client.JoinedMembers(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID.String()).Msg("Failed to fetch room members, assuming group")
		return core.ChatGroup
	}
	return kindForMembers(len(members.Joined))
}

// kindForMembers treats a room with at most two joined members as a direct
// chat.
func kindForMembers(joined int) core.ChatKind {
	if joined <= 2 {
		return core.ChatDirect
	}
	return core.ChatGroup
}

func replyRelation(replyTo string) *event.RelatesTo {
	if replyTo == "" {
		return nil
	}
	return &event.RelatesTo{
		InReplyTo: &event.InReplyTo{EventID: id.EventID(replyTo)},
	}
}

func (ma *MatrixAdapter) ReplyText(ctx context.Context, chatID string, replyTo string, text string) error {
	_, err := ma.Client.SendMessageEvent(ctx, id.RoomID(chatID), event.EventMessage, &event.MessageEventContent{
		MsgType:   event.MsgText,
		Body:      text,
		RelatesTo: replyRelation(replyTo),
	})
	return err
}

// ReplyImage uploads the image and sends it with the caption as its body.
func (ma *MatrixAdapter) ReplyImage(ctx context.Context, chatID string, replyTo string, caption string, img core.Image) error {
	upload, err := ma.Client.UploadBytes(ctx, img.Data, img.MimeType)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	_, err = ma.Client.SendMessageEvent(ctx, id.RoomID(chatID), event.EventMessage, &event.MessageEventContent{
		MsgType:  event.MsgImage,
		Body:     caption,
		FileName: img.Name,
		URL:      upload.ContentURI.CUString(),
		Info: &event.FileInfo{
			MimeType: img.MimeType,
			Size:     len(img.Data),
		},
		RelatesTo: replyRelation(replyTo),
	})
	return err
}

func (ma *MatrixAdapter) SendTyping(ctx context.Context, chatID string) error {
	_, err := ma.Client.UserTyping(ctx, id.RoomID(chatID), true, 30*time.Second)
	return err
}
