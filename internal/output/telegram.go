package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

const (
	telegramAPI   = "https://api.telegram.org"
	telegramLimit = 3800 // Telegram caps messages at 4096 chars
)

// TelegramWriter sends results to a Telegram chat via the Bot API.
type TelegramWriter struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

func NewTelegramWriter(token, chatID string) *TelegramWriter {
	return &TelegramWriter{
		token:   token,
		chatID:  chatID,
		apiBase: telegramAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (tw *TelegramWriter) WriteResult(ctx context.Context, res model.ScanResult) error {
	if res.TotalFound() == 0 {
		return tw.send(ctx, escapeMarkdown("No airdrops found this cycle."))
	}

	entries := make([]string, 0, len(res.Airdrops)+1)
	for i, a := range res.Airdrops {
		entries = append(entries, formatAirdrop(i+1, a))
	}
	if failed := res.Failed(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, s := range failed {
			names = append(names, fmt.Sprintf("%s (%s)", s.Source, s.Status))
		}
		entries = append(entries, "_"+escapeMarkdown("Skipped: "+strings.Join(names, ", "))+"_\n")
	}

	header := fmt.Sprintf("*%s*\n\n", escapeMarkdown("Found "+plural(res.TotalFound(), "airdrop")+":"))
	for _, c := range chunk(header, entries, telegramLimit) {
		if err := tw.send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (tw *TelegramWriter) WriteText(ctx context.Context, text string) error {
	entries := lines(escapeMarkdown(text))
	for _, c := range chunk("", entries, telegramLimit) {
		if err := tw.send(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func formatAirdrop(n int, a model.Airdrop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d\\. %s*\n", n, escapeMarkdown(clip(a.Name)))
	if a.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", escapeMarkdown(clip(a.Status)))
	}
	if a.Value != "" {
		fmt.Fprintf(&b, "Value: %s\n", escapeMarkdown(clip(a.Value)))
	}
	fmt.Fprintf(&b, "Source: %s\n", escapeMarkdown(a.Source))
	if a.Link != "" {
		fmt.Fprintf(&b, "[Open](%s)\n", escapeLinkURL(a.Link))
	}
	b.WriteString("\n")
	return b.String()
}

var markdownReplacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)

func escapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

// Inside the (...) part of an inline link only ')' and '\' must be escaped.
var linkReplacer = strings.NewReplacer("\\", "\\\\", ")", "\\)")

func escapeLinkURL(s string) string {
	return linkReplacer.Replace(s)
}

func (tw *TelegramWriter) send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", tw.apiBase, tw.token)

	payload := map[string]any{
		"chat_id":                  tw.chatID,
		"text":                     text,
		"parse_mode":               "MarkdownV2",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tw.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error %d: %s", resp.StatusCode, result.Description)
	}

	return nil
}
