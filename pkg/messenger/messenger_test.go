package messenger

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI scripts the bot responses: edits fail while editErr is set,
// fresh sends always succeed with an increasing message id.
type fakeAPI struct {
	editErr error
	nextID  int
	sent    []string
	edited  []string
	deleted []int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch msg := c.(type) {
	case tgbotapi.EditMessageTextConfig:
		if f.editErr != nil {
			return tgbotapi.Message{}, f.editErr
		}
		f.edited = append(f.edited, msg.Text)
		return tgbotapi.Message{MessageID: msg.MessageID}, nil
	case tgbotapi.MessageConfig:
		f.nextID++
		f.sent = append(f.sent, msg.Text)
		return tgbotapi.Message{MessageID: f.nextID}, nil
	}
	return tgbotapi.Message{}, errors.New("unexpected chattable")
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if del, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		f.deleted = append(f.deleted, del.MessageID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestMessenger(api *fakeAPI) (*Messenger, *time.Time) {
	m := New(api)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestSendOrEditFreshSend(t *testing.T) {
	api := &fakeAPI{}
	m, _ := newTestMessenger(api)

	id, err := m.SendOrEdit(1, 0, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, []string{"hello"}, api.sent)
}

func TestSendOrEditEditsInPlace(t *testing.T) {
	api := &fakeAPI{}
	m, _ := newTestMessenger(api)

	id, err := m.SendOrEdit(1, 7, "updated")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, []string{"updated"}, api.edited)
	assert.Empty(t, api.sent)
}

func TestSendOrEditNotModifiedIsSuccess(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("Bad Request: message is not modified")}
	m, _ := newTestMessenger(api)

	id, err := m.SendOrEdit(1, 7, "same")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Empty(t, api.sent)
}

func TestSendOrEditGraceThenFreshSend(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("Bad Request: message to edit not found")}
	m, now := newTestMessenger(api)

	// first failure starts the grace window: keep the old id
	id, err := m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Empty(t, api.sent)

	// still inside the grace: keep retrying
	*now = now.Add(5 * time.Second)
	id, err = m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	// grace elapsed: a fresh message replaces the id
	*now = now.Add(6 * time.Second)
	id, err = m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, []string{"body"}, api.sent)
}

func TestSendOrEditRecoveryClearsGrace(t *testing.T) {
	api := &fakeAPI{editErr: errors.New("temporary trouble")}
	m, now := newTestMessenger(api)

	_, err := m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)

	// the edit works again before the grace elapses
	api.editErr = nil
	_, err = m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)

	// a later failure gets a full new grace window
	api.editErr = errors.New("temporary trouble")
	*now = now.Add(time.Minute)
	id, err := m.SendOrEdit(1, 7, "body")
	require.NoError(t, err)
	assert.Equal(t, 7, id, "first failure after recovery starts a new grace")
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	m, _ := newTestMessenger(api)

	m.Delete(1, 9)
	assert.Equal(t, []int{9}, api.deleted)

	m.Delete(1, 0)
	assert.Len(t, api.deleted, 1, "zero id is a no-op")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijk", 10))
	assert.Equal(t, "...", Truncate("abcdefghijk", 3))
	assert.Equal(t, "..", Truncate("abcdefghijk", 2))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// each flag emoji is 4 bytes; every cut point must land on a rune
	// boundary
	text := "🏁🏁🏁🏁 and more text"
	for limit := 4; limit <= len(text); limit++ {
		got := Truncate(text, limit)
		assert.True(t, utf8.ValidString(got), "limit %d: %q", limit, got)
		assert.LessOrEqual(t, len(got), limit)
	}

	// a cut landing mid-rune backs off to the previous boundary
	assert.Equal(t, "🏁🏁...", Truncate("🏁🏁🏁🏁", 12))
}

func TestSendTextCapsLength(t *testing.T) {
	api := &fakeAPI{}
	m, _ := newTestMessenger(api)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := m.SendText(1, string(long))
	require.NoError(t, err)
	require.Len(t, api.sent, 1)
	assert.Len(t, api.sent[0], maxTextLength)
}
