package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/keshon/server-chatter/internal/logging"
	"github.com/keshon/server-chatter/pkg/retrylimit"
)

// DefaultAPIURL is the hosted DialoGPT-large inference endpoint.
const DefaultAPIURL = "https://api-inference.huggingface.co/models/microsoft/DialoGPT-large"

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 * 1024
)

// Generator produces reply text for a request. Errors are classified with
// ClassifyFailure; callers never show them to users.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures a Client.
type Options struct {
	URL         string
	Token       string
	Timeout     time.Duration // hard cap per Generate call, limiter wait included
	RPS         float64       // initial requests/second for the adaptive limiter
	MaxAttempts int           // 1 = no retries
	HTTPClient  *http.Client
}

// Client talks to a text-generation inference API over HTTP with bearer auth.
type Client struct {
	url     string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
	log     zerolog.Logger
}

// NewClient builds a Client. Zero options take defaults.
func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxAttempts
	initial := rate.Limit(opts.RPS)
	return &Client{
		url:     opts.URL,
		token:   opts.Token,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		limiter: retrylimit.NewAdaptiveLimiter(initial, 1, initial*4, 1, 0.5),
		retry:   retry,
		log:     logging.Component("ai"),
	}
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

// Generate posts the request and returns the parsed assistant reply.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req.Payload())
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	var reply string
	err = retrylimit.WithRetryConfig(ctx, func() error {
		text, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		reply, err = ParseReply(text)
		if err != nil {
			return &retrylimit.FatalError{Err: err}
		}
		return nil
	}, c.limiter, c.retry)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		c.log.Warn().Err(err).Str("kind", string(ClassifyFailure(err))).Msg("generation failed")
		return "", err
	}
	return reply, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post generation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(respBody)}
	}

	var parsed []generated
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if json.Valid(respBody) {
			// well-formed but not a list of generations
			return "", nil
		}
		return "", &retrylimit.FatalError{Err: fmt.Errorf("unmarshal generation response: %w body=%s", err, truncate(respBody))}
	}
	if len(parsed) == 0 {
		return "", nil
	}
	return parsed[0].GeneratedText, nil
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}
