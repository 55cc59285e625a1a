package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type EventKind string

const (
	KindCommand  EventKind = "command"
	KindText     EventKind = "text"
	KindContact  EventKind = "contact"
	KindCallback EventKind = "callback"
)

// Event is one inbound chat interaction, independent of the transport.
type Event struct {
	Kind   EventKind
	UserID string
	ChatID int64

	Text    string
	Command string // without the leading slash

	ContactPhone  string
	ContactUserID string

	CallbackID   string
	CallbackData string
}

// EventFromUpdate converts a Telegram update; ok is false for updates the bot ignores.
func EventFromUpdate(u tgbotapi.Update) (Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return Event{}, false
		}
		ev := Event{
			Kind:         KindCallback,
			UserID:       strconv.FormatInt(cq.From.ID, 10),
			ChatID:       cq.From.ID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return Event{}, false
	}
	ev := Event{
		UserID: strconv.FormatInt(m.From.ID, 10),
		ChatID: m.Chat.ID,
		Text:   strings.TrimSpace(m.Text),
	}
	switch {
	case m.Contact != nil:
		ev.Kind = KindContact
		ev.ContactPhone = m.Contact.PhoneNumber
		if m.Contact.UserID != 0 {
			ev.ContactUserID = strconv.FormatInt(m.Contact.UserID, 10)
		}
	case m.IsCommand():
		ev.Kind = KindCommand
		ev.Command = strings.ToLower(m.Command())
	case ev.Text != "":
		ev.Kind = KindText
	default:
		return Event{}, false
	}
	return ev, true
}
