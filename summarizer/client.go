package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/rubyist/circuitbreaker"

	"github.com/funnelmon/funnelmon/models"
)

const (
	DefaultBreakerConsecutiveFailureCount = 3
	defaultMaxCompletionTokens            = 10000
	fallbackConfidence                    = 0.7
)

// SummarizerError distinguishes narrative generation failures from store
// failures; callers show partial results (alerts without a narrative)
// instead of failing the whole request.
type SummarizerError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *SummarizerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("summarizer: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("summarizer: %s: %v", e.Op, e.Err)
}

func (e *SummarizerError) Unwrap() error {
	return e.Err
}

type Config struct {
	URL                            string        `yaml:"url" json:"url"`
	APIKey                         string        `yaml:"api_key" json:"api_key"`
	MaxCompletionTokens            int           `yaml:"max_completion_tokens" json:"max_completion_tokens"`
	RequestTimeout                 time.Duration `yaml:"request_timeout" json:"request_timeout"`
	BreakerConsecutiveFailureCount int64         `yaml:"breaker_consecutive_failure_count" json:"breaker_consecutive_failure_count"`
}

// Client turns an anomaly context into a structured narrative by calling a
// chat-completions endpoint. Calls run through a consecutive-failure circuit
// breaker so a dead endpoint degrades to fast failures.
type Client struct {
	logger     lager.Logger
	conf       Config
	httpClient *http.Client
	breaker    *circuit.Breaker
}

func NewClient(logger lager.Logger, conf Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	failureCount := conf.BreakerConsecutiveFailureCount
	if failureCount <= 0 {
		failureCount = DefaultBreakerConsecutiveFailureCount
	}
	return &Client{
		logger:     logger.Session("summarizer"),
		conf:       conf,
		httpClient: httpClient,
		breaker:    circuit.NewConsecutiveBreaker(failureCount),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages            []chatMessage `json:"messages"`
	Temperature         float64       `json:"temperature"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Analyze(ctx context.Context, anomalyContext models.AnomalyContext) (*models.AnomalyAnalysis, error) {
	var analysis *models.AnomalyAnalysis
	err := c.breaker.Call(func() error {
		var callErr error
		analysis, callErr = c.analyze(ctx, anomalyContext)
		return callErr
	}, 0)
	if err == circuit.ErrBreakerOpen {
		c.logger.Info("breaker-open")
		return nil, &SummarizerError{Op: "analyze", Err: err}
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func (c *Client) analyze(ctx context.Context, anomalyContext models.AnomalyContext) (*models.AnomalyAnalysis, error) {
	if c.conf.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.conf.RequestTimeout)
		defer cancel()
	}

	maxTokens := c.conf.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxCompletionTokens
	}
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(anomalyContext)},
		},
		Temperature:         1,
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return nil, &SummarizerError{Op: "marshal-request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &SummarizerError{Op: "build-request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.conf.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed-to-call-summarizer", err)
		return nil, &SummarizerError{Op: "call", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("summarizer-returned-error-status", nil, lager.Data{"statusCode": resp.StatusCode})
		return nil, &SummarizerError{Op: "call", StatusCode: resp.StatusCode}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &SummarizerError{Op: "decode-response", Err: err}
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, &SummarizerError{Op: "decode-response", Err: fmt.Errorf("empty completion")}
	}

	analysis := parseAnalysis(chat.Choices[0].Message.Content, anomalyContext.AnomalyTime)
	return analysis, nil
}

var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseAnalysis never fails: structured JSON is preferred, fenced or bare,
// and anything else decomposes into a plain-text analysis.
func parseAnalysis(content string, anomalyTime string) *models.AnomalyAnalysis {
	jsonContent := content
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil {
		jsonContent = m[1]
	}

	var analysis models.AnomalyAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonContent)), &analysis); err == nil {
		if analysis.Confidence <= 0 {
			analysis.Confidence = fallbackConfidence
		}
		if analysis.Timeline == "" {
			analysis.Timeline = anomalyTime
		}
		return &analysis
	}

	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	return &models.AnomalyAnalysis{
		Summary:         strings.TrimSpace(firstLine),
		RootCause:       content,
		AffectedSystems: []string{},
		Timeline:        anomalyTime,
		Recommendations: []string{},
		Confidence:      fallbackConfidence,
	}
}
