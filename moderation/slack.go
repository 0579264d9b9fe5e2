package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type slackWebhookBody struct {
	Text string `json:"text"`
}

// SendSlackPunishment mirrors a punishment report to a slack channel via
// "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (eng *Engine) SendSlackPunishment(ctx context.Context, p Punishment) error {
	text := fmt.Sprintf("timed out user `%s` for %s (offense %d, combo: %s)",
		p.UserID, p.Duration, p.OffenseCount, p.Combo.String())
	body, err := json.Marshal(slackWebhookBody{Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eng.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(out) != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
