package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/ratelimit"
)

// DefaultBaseURL is the Google Sheets API endpoint.
const DefaultBaseURL = "https://sheets.googleapis.com"

// maxBody bounds the response size read from the API.
const maxBody = 8 << 20

// ClientConfig configures the Sheets API client.
type ClientConfig struct {
	BaseURL           string
	SpreadsheetID     string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Client reads subject ranges through the Sheets v4 values endpoint.
type Client struct {
	http          *http.Client
	baseURL       string
	spreadsheetID string
	apiKey        string
	limiter       *ratelimit.Limiter
}

// NewClient creates a Sheets API client.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:          &http.Client{Timeout: timeout},
		baseURL:       base,
		spreadsheetID: cfg.SpreadsheetID,
		apiKey:        cfg.APIKey,
		limiter:       ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
	}
}

// Fetch implements Source.
func (c *Client) Fetch(ctx context.Context, subject models.Subject) ([][]string, error) {
	if !subject.Valid() {
		return nil, fmt.Errorf("sheets: %w: %q", apperr.ErrUnknownSubject, subject)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &apperr.NetworkError{Op: "rate limit wait", Cause: err}
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		c.baseURL,
		url.PathEscape(c.spreadsheetID),
		url.PathEscape(subject.SheetRange()),
		url.QueryEscape(c.apiKey))

	data, err := get(ctx, c.http, endpoint)
	if err != nil {
		return nil, err
	}
	vr, err := DecodeValueRange(data)
	if err != nil {
		return nil, err
	}
	return vr.Values, nil
}

// get performs a GET and classifies failures as NetworkError.
func get(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html")
	req.Header.Set("User-Agent", "bilimsoz")

	resp, err := client.Do(req)
	if err != nil {
		// Cancellation by the caller is final; anything else may be transient.
		retryable := !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		return nil, &apperr.NetworkError{Op: "GET " + redact(req.URL), Cause: err, Retryable: retryable}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &apperr.NetworkError{
			Op:        "GET " + redact(req.URL),
			Status:    resp.StatusCode,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &apperr.NetworkError{Op: "read body", Cause: err, Retryable: true}
	}
	return data, nil
}

// redact strips the query string so API keys never reach the logs.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
