package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

func sampleResult() model.ScanResult {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return model.ScanResult{
		CycleID:  "c1",
		ScanTime: now,
		Airdrops: []model.Airdrop{
			{Name: "LayerZero", Source: "CryptoRank", Status: "Active", Value: "Free", Link: "https://x.test/lz", DiscoveredAt: now},
			{Name: "zkSync (Era)", Source: "Airdrops.io", Link: "https://x.test/zk", DiscoveredAt: now},
		},
		Sources: []model.SourceReport{
			{Source: "CryptoRank", Status: model.StatusOK, Found: 1, Accepted: 1},
			{Source: "Airdrops.io", Status: model.StatusOK, Found: 1, Accepted: 1},
			{Source: "Feed", Status: model.StatusTransportError, Error: "timeout"},
		},
	}
}

func TestChunk(t *testing.T) {
	t.Run("fits in one", func(t *testing.T) {
		got := chunk("H\n", []string{"a\n", "b\n"}, 100)
		assert.Equal(t, []string{"H\na\nb\n"}, got)
	})
	t.Run("splits at limit", func(t *testing.T) {
		got := chunk("", []string{"aaaa", "bbbb", "cc"}, 8)
		assert.Equal(t, []string{"aaaabbbb", "cc"}, got)
	})
	t.Run("oversized first entry is cut to fit with header", func(t *testing.T) {
		got := chunk("HH", []string{"xxxxxxxxxx", "y"}, 8)
		assert.Equal(t, []string{"HHxxx…", "y"}, got)
	})
	t.Run("oversized later entry is cut to the limit", func(t *testing.T) {
		got := chunk("", []string{"ab\n", "éééééé\n"}, 8)
		assert.Equal(t, []string{"ab\n", "éé…\n"}, got)
	})
	t.Run("header longer than limit goes alone", func(t *testing.T) {
		got := chunk("HHHHHH", []string{"abc"}, 5)
		assert.Equal(t, []string{"HHHHHH", "abc"}, got)
	})
	t.Run("no entries yields header", func(t *testing.T) {
		assert.Equal(t, []string{"H"}, chunk("H", nil, 10))
		assert.Nil(t, chunk("", nil, 10))
	})
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `zkSync \(Era\) 1\.5\!`, escapeMarkdown("zkSync (Era) 1.5!"))
	assert.Equal(t, `a\_b\*c`, escapeMarkdown("a_b*c"))
	assert.Equal(t, `https://x.test/a\)b`, escapeLinkURL("https://x.test/a)b"))
}

func TestConsolePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf)

	require.NoError(t, p.WriteResult(context.Background(), sampleResult()))
	out := buf.String()
	assert.Contains(t, out, "LayerZero")
	assert.Contains(t, out, "zkSync (Era)")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "skipped Feed (transport_error): timeout")
	assert.Contains(t, out, "Total: 2 airdrops found.")
}

func TestConsolePrinterEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf)

	require.NoError(t, p.WriteResult(context.Background(), model.ScanResult{}))
	assert.Contains(t, buf.String(), "No airdrops found.")
	assert.Contains(t, buf.String(), "Total: 0 airdrops found.")

	buf.Reset()
	require.NoError(t, p.WriteText(context.Background(), "reminder"))
	assert.Equal(t, "reminder\n", buf.String())
}

type capture struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]any
}

func (c *capture) handler(status int, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(body, &m)
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.bodies = append(c.bodies, m)
		c.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}
}

func TestTelegramWriter(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK, `{"ok":true}`))
	defer srv.Close()

	tw := NewTelegramWriter("TOKEN", "42")
	tw.apiBase = srv.URL

	require.NoError(t, tw.WriteResult(context.Background(), sampleResult()))
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "/botTOKEN/sendMessage", c.paths[0])
	assert.Equal(t, "42", c.bodies[0]["chat_id"])
	assert.Equal(t, "MarkdownV2", c.bodies[0]["parse_mode"])

	text := c.bodies[0]["text"].(string)
	assert.Contains(t, text, "*Found 2 airdrops:*")
	assert.Contains(t, text, `zkSync \(Era\)`)
	assert.Contains(t, text, "[Open](https://x.test/lz)")
	assert.Contains(t, text, `Skipped: Feed \(transport\_error\)`)
}

func TestTelegramWriterChunks(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusOK, `{"ok":true}`))
	defer srv.Close()

	tw := NewTelegramWriter("T", "1")
	tw.apiBase = srv.URL

	res := model.ScanResult{}
	for i := 0; i < 100; i++ {
		res.Airdrops = append(res.Airdrops, model.Airdrop{
			Name:   strings.Repeat("n", 60),
			Source: "S",
			Link:   "https://x.test/" + strings.Repeat("p", 40),
		})
	}
	require.NoError(t, tw.WriteResult(context.Background(), res))
	require.Greater(t, len(c.bodies), 1)
	for _, b := range c.bodies {
		assert.LessOrEqual(t, len(b["text"].(string)), telegramLimit)
	}
}

func TestWritersBoundOversizedEntries(t *testing.T) {
	huge := strings.Repeat("é", 6000)
	res := model.ScanResult{Airdrops: []model.Airdrop{{Name: huge, Value: huge, Source: "S"}}}

	t.Run("telegram", func(t *testing.T) {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusOK, `{"ok":true}`))
		defer srv.Close()
		tw := NewTelegramWriter("T", "1")
		tw.apiBase = srv.URL

		require.NoError(t, tw.WriteResult(context.Background(), res))
		require.NoError(t, tw.WriteText(context.Background(), huge))
		require.NotEmpty(t, c.bodies)
		for _, b := range c.bodies {
			text := b["text"].(string)
			assert.LessOrEqual(t, len(text), telegramLimit)
			assert.True(t, utf8.ValidString(text))
		}
		assert.Contains(t, c.bodies[0]["text"].(string), "…")
	})

	t.Run("discord", func(t *testing.T) {
		c := &capture{}
		srv := httptest.NewServer(c.handler(http.StatusNoContent, ""))
		defer srv.Close()
		dw := NewDiscordWriter(srv.URL)

		require.NoError(t, dw.WriteResult(context.Background(), res))
		require.NoError(t, dw.WriteText(context.Background(), huge))
		require.NotEmpty(t, c.bodies)
		for _, b := range c.bodies {
			text := b["content"].(string)
			assert.LessOrEqual(t, len(text), discordLimit)
			assert.True(t, utf8.ValidString(text))
		}
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab…", truncate("abcdefgh", 5))
	assert.Equal(t, "ab…", truncate(`ab\cdefgh`, 6))
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestTelegramWriterAPIError(t *testing.T) {
	srv := httptest.NewServer((&capture{}).handler(http.StatusBadRequest, `{"ok":false,"description":"chat not found"}`))
	defer srv.Close()

	tw := NewTelegramWriter("T", "1")
	tw.apiBase = srv.URL

	err := tw.WriteText(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestDiscordWriter(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler(http.StatusNoContent, ""))
	defer srv.Close()

	dw := NewDiscordWriter(srv.URL + "/hook")
	require.NoError(t, dw.WriteResult(context.Background(), sampleResult()))
	require.Len(t, c.bodies, 1)

	content := c.bodies[0]["content"].(string)
	assert.Contains(t, content, "**Found 2 airdrops:**")
	assert.Contains(t, content, "**1. LayerZero**")
	assert.Contains(t, content, "> <https://x.test/zk>")

	require.NoError(t, dw.WriteText(context.Background(), "do the tasks"))
	require.Len(t, c.bodies, 2)
	assert.Equal(t, "do the tasks", c.bodies[1]["content"])
}

func TestDiscordWriterAPIError(t *testing.T) {
	srv := httptest.NewServer((&capture{}).handler(http.StatusNotFound, `{"message":"Unknown Webhook"}`))
	defer srv.Close()

	err := NewDiscordWriter(srv.URL).WriteResult(context.Background(), model.ScanResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown Webhook")
}

func TestSnapshotWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_results.json")
	sw := NewSnapshotWriter(path)

	require.NoError(t, sw.WriteResult(context.Background(), sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 2, snap.TotalFound)
	assert.Len(t, snap.Airdrops, 2)
	assert.True(t, snap.ScanTime.Equal(sampleResult().ScanTime))

	// overwritten, and an empty result still writes an empty list
	require.NoError(t, sw.WriteResult(context.Background(), model.ScanResult{}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"airdrops": []`)
	assert.Contains(t, string(data), `"total_found": 0`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")

	assert.NoError(t, sw.WriteText(context.Background(), "ignored"))
}

func TestSnapshotWriterBadDir(t *testing.T) {
	sw := NewSnapshotWriter(filepath.Join(t.TempDir(), "missing", "out.json"))
	assert.Error(t, sw.WriteResult(context.Background(), sampleResult()))
}

type failingWriter struct{ err error }

func (f failingWriter) WriteResult(context.Context, model.ScanResult) error { return f.err }
func (f failingWriter) WriteText(context.Context, string) error             { return f.err }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	m := Multi{failingWriter{err: boom}, NewConsolePrinter(&buf)}

	err := m.WriteResult(context.Background(), sampleResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failingWriter")
	assert.Contains(t, buf.String(), "LayerZero", "later writers still run")

	buf.Reset()
	assert.ErrorIs(t, m.WriteText(context.Background(), "hello"), boom)
	assert.Equal(t, "hello\n", buf.String())

	assert.NoError(t, Multi{}.WriteResult(context.Background(), sampleResult()))
}
