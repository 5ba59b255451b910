package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kaptinlin/jsonrepair"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-70b-8192"

	DefaultTemperature = 0.6
)

const systemPrompt = `You are ElderCare, a health companion for older adults living with diabetes and other chronic conditions.
Use plain words and short sentences, one idea per sentence.
Be warm, patient and encouraging. Keep each answer to three or four sentences.
If something sounds like an emergency, tell the user to say "emergency" or call their emergency contact right away.
For medical questions, suggest checking with their doctor or nurse.
Ask at most one simple question at a time.`

// Config for an OpenAI-compatible chat completions endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout time.Duration
	// Temperature nil means DefaultTemperature; zero is a valid setting.
	Temperature *float64
	MaxTokens   int
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	http        *resty.Client
	model       string
	temperature float64
	maxTokens   int
	now         func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 350
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	return &Client{
		http:        client,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
		now:         time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) messages(req Request) []chatMessage {
	msgs := []chatMessage{{Role: "system", Content: systemPrompt}}
	profile := strings.TrimSpace(req.Profile)
	if profile != "" {
		profile += "\n"
	}
	profile += "Current date and time: " + c.now().Format("Monday, January 2, 2006, 15:04")
	msgs = append(msgs, chatMessage{Role: "system", Content: profile})
	for _, t := range req.Turns {
		msgs = append(msgs, chatMessage{Role: string(t.Role), Content: t.Text})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Text})
}

// Complete sends the conversation and returns the model's reply.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    c.messages(req),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        0.9,
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", classify(ctx, err)
	}
	if resp.IsError() {
		slog.Warn("gateway returned error status", "status", resp.StatusCode())
		return "", &Error{Kind: KindStatus, Status: resp.StatusCode()}
	}

	text, err := decode(resp.Body())
	if err != nil {
		return "", &Error{Kind: KindMalformed, Err: err}
	}
	slog.Debug("gateway reply", "duration_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text, nil
}

// decode extracts the first choice. Bodies that are not valid JSON get one
// repair attempt before they are rejected.
func decode(raw []byte) (string, error) {
	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(string(raw))
		if repairErr != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if err := json.Unmarshal([]byte(fixed), &out); err != nil {
			return "", fmt.Errorf("decode repaired response: %w", err)
		}
	}
	if len(out.Choices) == 0 {
		return "", errors.New("response has no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("response is empty")
	}
	return text, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
