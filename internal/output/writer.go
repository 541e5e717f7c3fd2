package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// ResultWriter is a notifier sink: it presents, delivers or stores scan
// results and free-form notices such as reminders.
type ResultWriter interface {
	WriteResult(ctx context.Context, res model.ScanResult) error
	WriteText(ctx context.Context, text string) error
}

// Multi fans a result out to every writer. All writers are attempted; their
// failures are joined.
type Multi []ResultWriter

func (m Multi) WriteResult(ctx context.Context, res model.ScanResult) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteResult(ctx, res); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", writerName(w), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WriteText(ctx context.Context, text string) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteText(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", writerName(w), err))
		}
	}
	return errors.Join(errs...)
}

func writerName(w ResultWriter) string {
	name := fmt.Sprintf("%T", w)
	name = strings.TrimPrefix(name, "*")
	return strings.TrimPrefix(name, "output.")
}

// chunk splits entries into messages no longer than limit bytes, starting
// the first one with header. An entry that cannot fit in a message of its
// own is cut short and marked with an ellipsis.
func chunk(header string, entries []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	current.WriteString(header)
	pending := false

	for _, entry := range entries {
		if pending && current.Len()+len(entry) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		room := limit - current.Len()
		if room <= 0 && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			room = limit
		}
		current.WriteString(truncate(entry, room))
		pending = true
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

const (
	ellipsis = "…"
	// maxFieldLen bounds a scraped field inside a notifier message.
	maxFieldLen = 256
)

// clip shortens a single-line field to maxFieldLen bytes.
func clip(s string) string {
	return truncate(s, maxFieldLen)
}

// truncate shortens s to at most n bytes without splitting a rune, keeping a
// trailing newline.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	suffix := ellipsis
	if strings.HasSuffix(s, "\n") {
		suffix += "\n"
	}
	cut := n - len(suffix)
	if cut < 0 {
		suffix, cut = "", n
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	// A dangling escape would swallow the ellipsis.
	return strings.TrimRight(s[:cut], "\\") + suffix
}

// lines splits text into newline-terminated pieces for chunking.
func lines(text string) []string {
	parts := strings.SplitAfter(text, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
