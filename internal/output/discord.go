package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

const discordLimit = 1900 // Discord caps messages at 2000 chars

// DiscordWriter sends results to a Discord channel via Webhook.
type DiscordWriter struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordWriter(webhookURL string) *DiscordWriter {
	return &DiscordWriter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (dw *DiscordWriter) WriteResult(ctx context.Context, res model.ScanResult) error {
	if res.TotalFound() == 0 {
		return dw.send(ctx, "No airdrops found this cycle.")
	}

	entries := make([]string, 0, len(res.Airdrops))
	for i, a := range res.Airdrops {
		entries = append(entries, formatDiscordAirdrop(i+1, a))
	}

	header := fmt.Sprintf("**Found %s:**\n\n", plural(res.TotalFound(), "airdrop"))
	for _, c := range chunk(header, entries, discordLimit) {
		if err := dw.send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (dw *DiscordWriter) WriteText(ctx context.Context, text string) error {
	for _, c := range chunk("", lines(text), discordLimit) {
		if err := dw.send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func formatDiscordAirdrop(n int, a model.Airdrop) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "**%d. %s**\n", n, clip(a.Name))
	if a.Status != "" {
		fmt.Fprintf(&b, "> Status: %s\n", clip(a.Status))
	}
	if a.Value != "" {
		fmt.Fprintf(&b, "> Value: %s\n", clip(a.Value))
	}
	fmt.Fprintf(&b, "> Source: %s\n", a.Source)
	if a.Link != "" {
		fmt.Fprintf(&b, "> <%s>\n", a.Link)
	}
	b.WriteString("\n")
	return b.String()
}

type discordPayload struct {
	Content string `json:"content"`
}

func (dw *DiscordWriter) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(discordPayload{Content: text})
	if err != nil {
		return fmt.Errorf("discord: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dw.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dw.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var result struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("discord: API error %d: %s", resp.StatusCode, result.Message)
	}

	return nil
}
