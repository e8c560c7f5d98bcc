package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"GreyhoundTips/internal/ports"
)

const defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// Sentinel errors let the retry layer tell failure classes apart.
var (
	ErrTimeout       = errors.New("completion timed out")
	ErrEmptyResponse = errors.New("completion returned no content")
)

// StatusError reports a non-200 answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion API returned status %d: %s", e.Code, e.Body)
}

// Client talks to the Gemini API two ways: a raw REST call that enables
// search grounding (the SDK has no stable switch for it yet) and the genai
// SDK for plain generation.
type Client struct {
	apiKey     string
	model      string
	timeout    time.Duration
	apiBase    string
	httpClient *http.Client
	sdk        *genai.Client
	logger     *slog.Logger
}

var _ ports.Completer = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: timeout},
		sdk:        sdk,
		logger:     logger.With("component", "gemini"),
	}, nil
}

type generateRequest struct {
	Contents         []restContent    `json:"contents"`
	Tools            []map[string]any `json:"tools,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// CompleteWithSearch runs a search-grounded generation. The date line rides
// as a second part so the model cannot lose the anchor inside a long prompt.
func (c *Client) CompleteWithSearch(ctx context.Context, prompt, dateISO string) (string, error) {
	reqBody := generateRequest{
		Contents: []restContent{{
			Role: "user",
			Parts: []restPart{
				{Text: prompt},
				{Text: "DATE_AU=" + dateISO},
			},
		}},
		Tools: []map[string]any{{"google_search": map[string]any{}}},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopP:            0.8,
			TopK:            30,
			MaxOutputTokens: 8192,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.apiBase, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return "", fmt.Errorf("call completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	texts := make([]string, 0, len(parsed.Candidates[0].Content.Parts))
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	if len(texts) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("search-grounded completion succeeded", "parts", len(texts))
	return strings.Join(texts, "\n"), nil
}

// Complete runs a plain generation without search grounding.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.sdk.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(0.2)),
			TopP:            genai.Ptr(float32(0.8)),
			TopK:            genai.Ptr(float32(30)),
			MaxOutputTokens: 8192,
		})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return sb.String(), nil
}
