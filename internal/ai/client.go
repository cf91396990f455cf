// Package ai wraps the Gemini text-completion REST endpoint behind a
// degrading client: the chat keeps working without a key or with the
// upstream down, the assistant just answers with a fixed apology.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-flash-preview"

	// Fixed degradation replies, surfaced to the user as normal bot text.
	replyNotConfigured = "Пожалуйста, настройте API_KEY в среде, чтобы общаться со Spark AI."
	replyEmpty         = "Извините, я не могу ответить прямо сейчас."
	replyError         = "Произошла ошибка при соединении с нейросетью."
)

// Turn is one entry of the conversation history sent to the model.
// Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

// Client calls the generateContent endpoint. The zero value is usable
// and answers every prompt with the not-configured reply.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a Client with a 10 second request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey: strings.TrimSpace(apiKey),
		Model:  defaultModel,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateResponse produces the assistant reply for prompt given the
// conversation so far. It never returns an error: every failure mode
// degrades to a fixed reply so the bot chat stays functional.
func (c *Client) GenerateResponse(ctx context.Context, history []Turn, prompt string) string {
	if c == nil || c.APIKey == "" {
		return replyNotConfigured
	}

	var b strings.Builder
	b.WriteString("You are Spark AI, an intelligent and helpful assistant inside the Spark Chat messenger.\n")
	b.WriteString("Be concise, friendly, and helpful.\n\nConversation History:\n")
	for _, t := range history {
		speaker := "Spark AI"
		if t.Role == "user" {
			speaker = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	fmt.Fprintf(&b, "\nUser: %s\nSpark AI:", prompt)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: b.String()}}}},
	})
	if err != nil {
		log.Error().Err(err).Msg("ai: marshal request")
		return replyError
	}

	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", base, model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("ai: build request")
		return replyError
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("ai: request failed")
		return replyError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("ai: upstream error")
		return replyError
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Warn().Err(err).Msg("ai: decode response")
		return replyError
	}
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return replyEmpty
}
