package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"GreyhoundTips/internal/ports"
)

const (
	maxEmbedLength = 4096

	colorGreen  = 0x00ff00
	colorRed    = 0xff0000
	colorOrange = 0xff9900

	tipDelay        = 3 * time.Second
	disclaimerDelay = 1 * time.Second
)

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Notifier delivers reports to a Discord webhook, with an optional second
// webhook for operator alerts.
type Notifier struct {
	webhookURL  string
	fallbackURL string
	display     *time.Location
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

var _ ports.Notifier = (*Notifier)(nil)
var _ ports.Alerter = (*Notifier)(nil)

func NewNotifier(webhookURL, fallbackURL string, display *time.Location, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL:  webhookURL,
		fallbackURL: fallbackURL,
		display:     display,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		logger:      logger.With("component", "discord"),
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Publish sends body as a titled embed, continuing overflow in untitled
// follow-up embeds. Chunk boundaries are positional.
func (n *Notifier) Publish(ctx context.Context, body, title string) error {
	chunks := chunkText(body, maxEmbedLength)

	for i, chunk := range chunks {
		e := embed{Description: chunk, Color: colorGreen}
		if i == 0 {
			e.Title = title
			e.Footer = n.footer()
		}
		if err := n.send(ctx, n.webhookURL, e); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	n.logger.Info("report published", "chunks", len(chunks), "length", len(body))
	return nil
}

// PublishPerSelection splits a report into its header, individual selection
// blocks and the disclaimer, delivering each as its own message so readers
// can react to single tips. Falls back to a single publish when the text
// does not parse into blocks.
func (n *Notifier) PublishPerSelection(ctx context.Context, body, title string) error {
	header, selections, disclaimerText := splitReport(body)

	if len(selections) == 0 {
		n.logger.Warn("no selection blocks found, delivering as single message")
		return n.Publish(ctx, body, title)
	}

	first := embed{Title: title, Description: clip(header), Color: colorGreen, Footer: n.footer()}
	if err := n.send(ctx, n.webhookURL, first); err != nil {
		return fmt.Errorf("send report header: %w", err)
	}

	for i, sel := range selections {
		n.sleep(tipDelay)
		e := embed{Description: clip(sel), Color: colorGreen}
		if err := n.send(ctx, n.webhookURL, e); err != nil {
			return fmt.Errorf("send selection %d/%d: %w", i+1, len(selections), err)
		}
	}

	if disclaimerText != "" {
		n.sleep(disclaimerDelay)
		e := embed{Description: clip(disclaimerText), Color: colorOrange}
		if err := n.send(ctx, n.webhookURL, e); err != nil {
			return fmt.Errorf("send disclaimer: %w", err)
		}
	}

	n.logger.Info("report published per selection", "selections", len(selections))
	return nil
}

// Alert notifies the operator about a failure, preferring the fallback
// webhook when one is configured.
func (n *Notifier) Alert(ctx context.Context, message string) error {
	url := n.fallbackURL
	if url == "" {
		url = n.webhookURL
	}

	e := embed{
		Title:       "⚠️ Greyhound Bot - Technical Issue",
		Description: clip(message),
		Color:       colorRed,
		Footer:      n.footer(),
	}
	if err := n.send(ctx, url, e); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

func (n *Notifier) footer() *embedFooter {
	ts := n.now().In(n.display).Format("January 02, 2006 at 15:04 AWST")
	return &embedFooter{Text: "Generated on " + ts}
}

func (n *Notifier) send(ctx context.Context, url string, e embed) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// chunkText slices text into rune-safe positional chunks of at most max.
func chunkText(text string, max int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	for len(runes) > max {
		chunks = append(chunks, string(runes[:max]))
		runes = runes[max:]
	}
	return append(chunks, string(runes))
}

func clip(text string) string {
	runes := []rune(text)
	if len(runes) > maxEmbedLength {
		return string(runes[:maxEmbedLength])
	}
	return text
}

// splitReport separates a report into everything before the first selection
// block, the selection blocks themselves and the trailing disclaimer.
func splitReport(body string) (header string, selections []string, disclaimerText string) {
	var headerLines []string
	var current []string
	var disclaimerLines []string
	inDisclaimer := false

	flush := func() {
		if len(current) > 0 {
			selections = append(selections, strings.TrimRight(strings.Join(current, "\n"), "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case inDisclaimer:
			disclaimerLines = append(disclaimerLines, line)
		case strings.HasPrefix(trimmed, "⚠️ **DISCLAIMER"):
			flush()
			inDisclaimer = true
			disclaimerLines = append(disclaimerLines, line)
		case strings.HasPrefix(trimmed, "🐕") && strings.Contains(line, "Race"):
			flush()
			current = []string{line}
		case len(current) > 0:
			current = append(current, line)
		default:
			headerLines = append(headerLines, line)
		}
	}
	flush()

	header = strings.TrimRight(strings.Join(headerLines, "\n"), "\n")
	disclaimerText = strings.Join(disclaimerLines, "\n")
	return header, selections, disclaimerText
}
