package discord

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []webhookPayload
}

func (r *webhookRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.payloads = append(r.payloads, p)
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (r *webhookRecorder) embeds() []embed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []embed
	for _, p := range r.payloads {
		out = append(out, p.Embeds...)
	}
	return out
}

func newTestNotifier(t *testing.T, url, fallbackURL string) (*Notifier, *[]time.Duration) {
	t.Helper()
	n := NewNotifier(url, fallbackURL, time.UTC, testLogger())
	n.limiter = rate.NewLimiter(rate.Inf, 1)
	n.now = func() time.Time {
		return time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
	}
	sleeps := &[]time.Duration{}
	n.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return n, sleeps
}

func TestPublishSingleChunk(t *testing.T) {
	t.Parallel()

	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n, _ := newTestNotifier(t, srv.URL, "")

	if err := n.Publish(context.Background(), "today's tips", "🐕 Greyhound Racing Tips"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeds := rec.embeds()
	if len(embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(embeds))
	}
	if embeds[0].Title != "🐕 Greyhound Racing Tips" {
		t.Errorf("unexpected title: %q", embeds[0].Title)
	}
	if embeds[0].Color != colorGreen {
		t.Errorf("unexpected color: %#x", embeds[0].Color)
	}
	if embeds[0].Footer == nil || embeds[0].Footer.Text != "Generated on January 15, 2026 at 09:00 AWST" {
		t.Errorf("unexpected footer: %+v", embeds[0].Footer)
	}
}

func TestPublishChunksLongBody(t *testing.T) {
	t.Parallel()

	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n, _ := newTestNotifier(t, srv.URL, "")

	body := strings.Repeat("x", maxEmbedLength*2+100)
	if err := n.Publish(context.Background(), body, "title"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeds := rec.embeds()
	if len(embeds) != 3 {
		t.Fatalf("expected 3 embeds, got %d", len(embeds))
	}

	var rebuilt strings.Builder
	for i, e := range embeds {
		rebuilt.WriteString(e.Description)
		if i > 0 && e.Title != "" {
			t.Errorf("follow-up chunk %d should be untitled", i)
		}
	}
	if rebuilt.String() != body {
		t.Fatal("concatenated chunks do not reproduce the body")
	}
}

func TestPublishEmptyBodySendsNothing(t *testing.T) {
	t.Parallel()

	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n, _ := newTestNotifier(t, srv.URL, "")

	if err := n.Publish(context.Background(), "", "title"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(rec.embeds()); got != 0 {
		t.Fatalf("empty body must not produce embeds, got %d", got)
	}
	if chunks := chunkText("", maxEmbedLength); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %q", chunks)
	}
}

func TestChunkTextMultibyte(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("🐕", 10)
	chunks := chunkText(body, 3)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != body {
		t.Fatal("chunks must reassemble the original text")
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c, "🐕") {
			t.Fatalf("chunk %d split inside a rune: %q", i, c)
		}
	}
}

func TestPublishPerSelection(t *testing.T) {
	t.Parallel()

	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n, sleeps := newTestNotifier(t, srv.URL, "")

	body := `🐕 **GREYHOUND SELECTIONS FOR Thursday, 15 January 2026:**

**🏆 PREMIUM SELECTIONS (1.5 Units)**

🐕 **Swift Shadow** | Race 6 | Richmond
💰 **Stake:** 1.5 Units | **Bet Type:** Win

🐕 **Night Runner** | Race 3 | Mandurah
💰 **Stake:** 1.0 Units | **Bet Type:** Win

⚠️ **DISCLAIMER**: Check current odds with your bookmaker before placing bets. Gamble responsibly.`

	if err := n.PublishPerSelection(context.Background(), body, "🐕 Daily Tips"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeds := rec.embeds()
	// header + 2 selections + disclaimer
	if len(embeds) != 4 {
		t.Fatalf("expected 4 embeds, got %d", len(embeds))
	}
	if embeds[0].Title != "🐕 Daily Tips" {
		t.Errorf("header should carry the title, got %q", embeds[0].Title)
	}
	if !strings.Contains(embeds[1].Description, "Swift Shadow") {
		t.Errorf("first selection missing: %q", embeds[1].Description)
	}
	if !strings.Contains(embeds[2].Description, "Night Runner") {
		t.Errorf("second selection missing: %q", embeds[2].Description)
	}
	if embeds[3].Color != colorOrange {
		t.Errorf("disclaimer should be orange, got %#x", embeds[3].Color)
	}

	want := []time.Duration{tipDelay, tipDelay, disclaimerDelay}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %d pacing sleeps, got %v", len(want), *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d: got %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestPublishPerSelectionFallsBackWithoutBlocks(t *testing.T) {
	t.Parallel()

	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	n, _ := newTestNotifier(t, srv.URL, "")

	err := n.PublishPerSelection(context.Background(), "plain prose without any selections", "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embeds := rec.embeds()
	if len(embeds) != 1 {
		t.Fatalf("expected fallback single message, got %d embeds", len(embeds))
	}
}

func TestAlertPrefersFallbackWebhook(t *testing.T) {
	t.Parallel()

	primary := &webhookRecorder{}
	primarySrv := httptest.NewServer(primary.handler())
	defer primarySrv.Close()

	fallback := &webhookRecorder{}
	fallbackSrv := httptest.NewServer(fallback.handler())
	defer fallbackSrv.Close()

	n, _ := newTestNotifier(t, primarySrv.URL, fallbackSrv.URL)

	if err := n.Alert(context.Background(), "generation failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(primary.embeds()) != 0 {
		t.Fatal("alert must not hit the primary webhook when a fallback exists")
	}
	embeds := fallback.embeds()
	if len(embeds) != 1 {
		t.Fatalf("expected 1 alert embed, got %d", len(embeds))
	}
	if embeds[0].Color != colorRed {
		t.Errorf("alert should be red, got %#x", embeds[0].Color)
	}
}

func TestPublishReportsWebhookErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n, _ := newTestNotifier(t, srv.URL, "")

	err := n.Publish(context.Background(), "body", "title")
	if err == nil {
		t.Fatal("expected an error for a rejected webhook")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("status code not surfaced: %v", err)
	}
}
