package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"chatcore/pkg/bus"
	"chatcore/pkg/config"
	"chatcore/pkg/message"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Attribute keys attached to messages mapped from Telegram updates.
const (
	AttrChannel    = "channel"
	AttrChatID     = "chat_id"
	AttrUpdateID   = "update_id"
	AttrSessionKey = "session_key"
	AttrUsername   = "username"
)

// Mapper converts Telegram updates into normalized messages and replies into
// send requests. It performs no network I/O.
type Mapper struct {
	allowFrom map[string]struct{}
	log       *slog.Logger
}

// NewMapper builds a mapper from Telegram channel configuration.
func NewMapper(cfg config.TelegramConfig, log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}

	return &Mapper{
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}
}

// Name returns the channel identifier used in message attributes and logs.
func (m *Mapper) Name() string {
	return channelName
}

// Inbound maps one update to a message. It reports false for updates that carry
// no text, have no sender, or come from a sender outside allow_from. client is
// attached as the message's platform context.
func (m *Mapper) Inbound(update telego.Update, client any) (*message.Message, bool, error) {
	incoming := update.Message
	if incoming == nil {
		return nil, false, nil
	}

	if strings.TrimSpace(incoming.Text) == "" {
		// Non-text updates have no content to normalize.
		return nil, false, nil
	}
	if incoming.From == nil {
		m.log.Debug("Ignoring message without sender")
		return nil, false, nil
	}

	senderID := strconv.FormatInt(incoming.From.ID, 10)
	if !m.senderAllowed(senderID) {
		m.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
		return nil, false, nil
	}

	chatID := strconv.FormatInt(incoming.Chat.ID, 10)
	msg, err := message.New(message.Text(incoming.Text),
		message.WithAuthor(senderID),
		message.WithClient(client),
		message.WithAttributes(message.Attributes{
			AttrChannel:    channelName,
			AttrChatID:     chatID,
			AttrUpdateID:   strconv.Itoa(update.UpdateID),
			AttrSessionKey: sessionKey(chatID),
			AttrUsername:   incoming.From.Username,
		}),
	)
	if err != nil {
		return nil, false, fmt.Errorf("map telegram update %d: %w", update.UpdateID, err)
	}

	m.log.Info("Received message", "chat_id", chatID, "sender_id", senderID, "session_key", sessionKey(chatID), "content", previewText(incoming.Text))
	return msg, true, nil
}

// SendParams builds the send request for one reply.
func (m *Mapper) SendParams(chatID int64, reply message.Reply) (*telego.SendMessageParams, error) {
	if reply.IsZero() {
		return nil, errors.New("reply is required")
	}

	text := strings.TrimSpace(reply.AsString(false))
	if text == "" {
		return nil, errors.New("reply has no text")
	}

	return tu.Message(tu.ID(chatID), text), nil
}

// Outbound drains replies without waiting and returns one send request per
// reply, in buffer order. Replies that fail to convert or carry no text are
// skipped and reported in the joined error.
func (m *Mapper) Outbound(chatID int64, replies *bus.ReplyBuffer) ([]*telego.SendMessageParams, error) {
	if replies == nil {
		return nil, nil
	}

	drained, drainErr := replies.Drain()
	errs := []error{drainErr}

	params := make([]*telego.SendMessageParams, 0, len(drained))
	for _, reply := range drained {
		request, err := m.SendParams(chatID, reply)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.log.Info("Sending message", "chat_id", chatID, "content", previewText(request.Text))
		params = append(params, request)
	}

	return params, errors.Join(errs...)
}

// ChatID returns the numeric chat identifier attached by Inbound.
func ChatID(msg *message.Message) (int64, bool) {
	if msg == nil {
		return 0, false
	}

	raw, ok := msg.Attr(AttrChatID)
	if !ok {
		return 0, false
	}
	text, ok := raw.(string)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (m *Mapper) senderAllowed(senderID string) bool {
	if len(m.allowFrom) == 0 {
		return true
	}

	_, ok := m.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// sessionKey maps one Telegram chat to one session namespace.
func sessionKey(chatID string) string {
	return "telegram:" + strings.TrimSpace(chatID)
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
