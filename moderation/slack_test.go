package moderation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSlackPunishment(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var got slackWebhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	eng := &Engine{SlackWebhookURL: srv.URL}
	p := Punishment{
		UserID:       "user1",
		Duration:     5 * time.Minute,
		OffenseCount: 2,
		Combo:        NewCombo("😡", "🤬"),
	}
	require.NoError(t, eng.SendSlackPunishment(ctx, p))
	assert.Contains(got.Text, "user1")
	assert.Contains(got.Text, "5m0s")
	assert.Contains(got.Text, "offense 2")
	assert.Contains(got.Text, "😡, 🤬")
}

func TestSendSlackPunishmentRejected(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	eng := &Engine{SlackWebhookURL: srv.URL}
	assert.Error(t, eng.SendSlackPunishment(ctx, Punishment{UserID: "user1"}))
}
