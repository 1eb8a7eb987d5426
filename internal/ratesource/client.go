// Package ratesource fetches live gold and silver sell prices.
package ratesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tinytelemetry/goldrates/internal/clock"
	"github.com/tinytelemetry/goldrates/internal/model"
)

const (
	maxBodyBytes = 1 << 20
	userAgent    = "goldrates/1.0"
)

// Client fetches the rates envelope from a single endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	clock      clock.Clock
	logger     *zap.Logger
}

var _ model.RateFetcher = (*Client)(nil)

// NewClient creates a fetcher. A non-positive timeout uses model.DefaultFetchTimeout.
func NewClient(endpoint string, timeout time.Duration, clk clock.Clock, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = model.DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = model.DefaultFetchTimeout
	}
	if clk == nil {
		clk = clock.System
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clk,
		logger:     logger,
	}
}

// Fetch performs exactly one request. Every failure is folded into the outcome.
func (c *Client) Fetch(ctx context.Context) model.FetchOutcome {
	start := c.clock.Now()
	snap, err := c.fetch(ctx)
	if err != nil {
		return model.Failure(err)
	}
	c.logger.Debug("rates fetched",
		zap.String("gold", snap.GoldSell),
		zap.String("silver", snap.SilverSell),
		zap.Duration("took", c.clock.Now().Sub(start)))
	return model.Success(snap)
}

func (c *Client) fetch(ctx context.Context) (model.RateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return model.RateSnapshot{}, transportErr("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RateSnapshot{}, transportErr("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return model.RateSnapshot{}, &FetchError{
			Kind:       BadStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return model.RateSnapshot{}, transportErr("reading body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return model.RateSnapshot{}, malformedErr("body exceeds %d bytes", maxBodyBytes)
	}
	return ParseEnvelope(body, c.clock.Now())
}

// ParseEnvelope extracts the gold and silver-future sell prices from a
// response body. Values are kept verbatim.
func ParseEnvelope(body []byte, capturedAt time.Time) (model.RateSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return model.RateSnapshot{}, malformedErr("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return model.RateSnapshot{}, malformedErr("top-level value is %s, want object", root.Type)
	}

	gold, err := sellPrice(root, "gold")
	if err != nil {
		return model.RateSnapshot{}, err
	}
	silver, err := sellPrice(root, "silverfuture")
	if err != nil {
		return model.RateSnapshot{}, err
	}
	return model.RateSnapshot{GoldSell: gold, SilverSell: silver, CapturedAt: capturedAt}, nil
}

func sellPrice(root gjson.Result, section string) (string, error) {
	obj := root.Get(section)
	if !obj.Exists() {
		return "", malformedErr("missing %q", section)
	}
	if !obj.IsObject() {
		return "", malformedErr("%q is not an object", section)
	}

	sell := obj.Get("sell")
	var v string
	switch sell.Type {
	case gjson.String:
		v = sell.Str
	case gjson.Number:
		v = sell.Raw
	default:
		if !sell.Exists() {
			return "", malformedErr("missing %s.sell", section)
		}
		return "", malformedErr("%s.sell has unsupported type %s", section, sell.Type)
	}

	v = strings.TrimSpace(v)
	if v == "" {
		return "", malformedErr("empty %s.sell", section)
	}
	return v, nil
}
