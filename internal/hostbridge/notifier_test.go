package hostbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var got Event

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, 2)
	n.client.RetryWaitMin = time.Millisecond
	n.client.RetryWaitMax = 5 * time.Millisecond

	err := n.Notify(context.Background(), Event{Action: ActionWithdrawalRequest, UserID: 9, Amount: 150, PayoutID: "bn"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, ActionWithdrawalRequest, got.Action)
	assert.Equal(t, int64(150), got.Amount)
	assert.Equal(t, "bn", got.PayoutID)
}

func TestWebhookNotifier_ClientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	err := NewWebhookNotifier(ts.URL, 0).Notify(context.Background(), Event{Action: ActionAdWatched})
	assert.Error(t, err)
}

type fakeSender struct {
	to   telebot.Recipient
	text string
	err  error
}

func (f *fakeSender) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.to = to
	f.text, _ = what.(string)
	return &telebot.Message{}, f.err
}

func TestTelegramNotifier_SendsJSON(t *testing.T) {
	sender := &fakeSender{}
	n := &TelegramNotifier{sender: sender, chat: &telebot.Chat{ID: -100}}

	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, n.Notify(context.Background(), Event{Action: ActionAdWatched, UserID: 5, Timestamp: ts}))

	assert.Equal(t, "-100", sender.to.Recipient())
	assert.JSONEq(t, `{"action":"ad_watched","userId":5,"timestamp":"2026-10-19T12:00:00Z"}`, sender.text)

	sender.err = errors.New("forbidden")
	assert.Error(t, n.Notify(context.Background(), Event{Action: ActionAdWatched}))
}

func TestNewTelegramNotifier_EmptyToken(t *testing.T) {
	_, err := NewTelegramNotifier("", 1)
	assert.Error(t, err)
}
