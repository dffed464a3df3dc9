package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/intervox-ai/intervox/internal/api"
	"github.com/intervox-ai/intervox/internal/config"
	"github.com/intervox-ai/intervox/internal/metrics"
)

// TokenLedger is the slice of the usage ledger the generator needs: a token
// quota gate before each call and usage accounting after it.
type TokenLedger interface {
	CheckTokenQuota(ctx context.Context, userID string) error
	RecordTokenUsage(ctx context.Context, userID string, tokens int, endpoint string) error
}

// Client talks to an OpenAI-compatible chat-completions API. Each public
// method issues at most one API call per invocation.
type Client struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
	ledger     TokenLedger
	cache      *QuestionCache
}

// NewClient creates a generator client. ledger and cache may be nil; token
// accounting and question caching are then skipped.
func NewClient(cfg config.OpenAIConfig, ledger TokenLedger, cache *QuestionCache) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		ledger:     ledger,
		cache:      cache,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Question generates one interview question for the role and difficulty,
// serving from the shared cache when a fresh entry exists.
func (c *Client) Question(ctx context.Context, userID, role, difficulty string) (string, error) {
	if err := c.checkTokens(ctx, userID); err != nil {
		return "", err
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, role, difficulty); err != nil {
			slog.Warn("question cache read failed", "error", err)
		} else if cached != "" {
			return cached, nil
		}
	}

	prompt := fmt.Sprintf("Generate one %s interview question for %s. Return only the question.", difficulty, role)
	text, err := c.chat(ctx, userID, "/openai/question", chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You generate concise technical interview questions."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}

	if c.cache != nil && text != "" {
		if err := c.cache.Set(ctx, role, difficulty, text); err != nil {
			slog.Warn("question cache write failed", "error", err)
		}
	}
	return text, nil
}

// Followup generates the next question from the previous exchange.
func (c *Client) Followup(ctx context.Context, userID, previousQuestion, answer, role, difficulty string) (string, error) {
	if err := c.checkTokens(ctx, userID); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Based on this question and answer, generate a follow-up interview question.\n\n"+
			"Role: %s\nDifficulty: %s\nQuestion: %s\nAnswer: %s\n\nReturn only the question.",
		role, difficulty, previousQuestion, answer)
	return c.chat(ctx, userID, "/openai/followup", chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You generate strict, role-relevant interview questions."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   150,
	})
}

// Evaluate scores a candidate answer against its question.
func (c *Client) Evaluate(ctx context.Context, userID, question, answer string) (*Evaluation, error) {
	if err := c.checkTokens(ctx, userID); err != nil {
		return nil, err
	}

	raw, err := c.chat(ctx, userID, "/openai/evaluate", chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a strict senior interviewer."},
			{Role: "user", Content: evaluationPrompt(question, answer)},
		},
		Temperature:    0.3,
		MaxTokens:      400,
		ResponseFormat: map[string]any{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	eval, err := parseEvaluation(raw, answer)
	if err != nil {
		return nil, api.NewGenerationError(err)
	}
	return eval, nil
}

func (c *Client) checkTokens(ctx context.Context, userID string) error {
	if c.ledger == nil || userID == "" {
		return nil
	}
	return c.ledger.CheckTokenQuota(ctx, userID)
}

// chat issues one chat-completions call, records token usage and returns the
// trimmed first-choice text.
func (c *Client) chat(ctx context.Context, userID, endpoint string, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", api.NewGenerationError(fmt.Errorf("marshaling chat request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", api.NewGenerationError(fmt.Errorf("building chat request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	metrics.GenerationCallsTotal.WithLabelValues(endpoint).Inc()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(endpoint).Inc()
		return "", api.NewGenerationError(fmt.Errorf("calling chat completions: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(endpoint).Inc()
		return "", api.NewGenerationError(fmt.Errorf("reading chat response: %w", err))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(endpoint).Inc()
		return "", api.NewGenerationError(fmt.Errorf("decoding chat response: %w", err))
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		metrics.GenerationFailuresTotal.WithLabelValues(endpoint).Inc()
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", api.NewGenerationError(fmt.Errorf("chat completions status %d: %s", resp.StatusCode, msg))
	}
	if len(parsed.Choices) == 0 {
		metrics.GenerationFailuresTotal.WithLabelValues(endpoint).Inc()
		return "", api.NewGenerationError(fmt.Errorf("chat completions returned no choices"))
	}

	if c.ledger != nil && userID != "" && parsed.Usage.TotalTokens > 0 {
		if err := c.ledger.RecordTokenUsage(ctx, userID, parsed.Usage.TotalTokens, endpoint); err != nil {
			slog.Warn("recording token usage failed", "error", err, "endpoint", endpoint)
		}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
