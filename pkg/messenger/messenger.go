package messenger

import (
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// channel hard limit minus a safety margin
	maxBodyLength = 4096 - 96
	// plain notices are capped well below the body limit
	maxTextLength = 1024

	truncationMarker = "..."

	// editGrace is how long a failing edit is retried as a no-op
	// before the message id is abandoned and a fresh send happens.
	editGrace = 10 * time.Second
)

// api is the slice of the bot API the messenger uses. *tgbotapi.BotAPI
// satisfies it.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger is the send-or-edit-with-retry adapter over the chat
// channel. Message ids are opaque handles the session record persists
// so restarts keep editing the same messages.
type Messenger struct {
	bot api

	mu           sync.Mutex
	editFailures map[int]time.Time
	now          func() time.Time
}

func New(bot api) *Messenger {
	return &Messenger{
		bot:          bot,
		editFailures: map[int]time.Time{},
		now:          time.Now,
	}
}

// SendOrEdit edits messageID in place when it is set, sending a new
// message otherwise. A failing edit is retried as a no-op for a grace
// period keyed by that id; once the grace elapses without success the
// id is dropped and a brand-new message goes out. Returns the id to
// persist (which may be the old one while the grace runs).
func (m *Messenger) SendOrEdit(chatID int64, messageID int, body string) (int, error) {
	body = Truncate(body, maxBodyLength)

	if messageID != 0 {
		msg := tgbotapi.NewEditMessageText(chatID, messageID, body)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err := m.bot.Send(msg)
		if err == nil || notModified(err) {
			m.clearFailure(messageID)
			return messageID, nil
		}

		if m.withinGrace(messageID) {
			// transient channel trouble, try again next tick
			return messageID, nil
		}
		log.Printf("Giving up editing message %d: %s", messageID, err.Error())
		m.clearFailure(messageID)
	}

	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendText posts a plain one-shot notice with the smaller text cap.
func (m *Messenger) SendText(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, Truncate(text, maxTextLength))
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Delete is fire and forget: the message may already be gone.
func (m *Messenger) Delete(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Printf("Error deleting message %d: %s", messageID, err.Error())
	}
}

// withinGrace records the first failure time for the id and reports
// whether it is still inside the grace window.
func (m *Messenger) withinGrace(messageID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	first, ok := m.editFailures[messageID]
	if !ok {
		m.editFailures[messageID] = m.now()
		return true
	}
	return m.now().Sub(first) < editGrace
}

func (m *Messenger) clearFailure(messageID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.editFailures, messageID)
}

// notModified recognizes the channel's "nothing changed" edit
// response, which is not a failure.
func notModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// Truncate hard-caps text by trimming from the end and appending the
// truncation marker. The cut backs off to a rune boundary so a
// multi-byte name or emoji is never split into invalid bytes.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	if limit <= len(truncationMarker) {
		return truncationMarker[:limit]
	}
	cut := limit - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationMarker
}
