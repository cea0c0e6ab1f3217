package senior

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"otc-analytics/internal/normalize"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotConfigured is returned when URL or credentials are missing.
	ErrNotConfigured = errors.New("webservice credentials not configured")
	// ErrAuth is returned for 401/403 answers.
	ErrAuth = errors.New("webservice authentication failed")
	// ErrRateLimited is returned for 429 answers.
	ErrRateLimited = errors.New("webservice rate limit exceeded")
)

type soapClient struct {
	cfg         Config
	httpClient  *http.Client
	lastRequest time.Time
	throttleMu  sync.Mutex

	// Session Cache
	cache      map[string]*cacheEntry
	cacheMutex sync.Mutex
}

type cacheEntry struct {
	rows       []normalize.Row
	expiration time.Time
}

// NewSOAPClient creates a client that posts timeline envelopes over HTTP.
func NewSOAPClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &soapClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: make(map[string]*cacheEntry),
	}
}

func (c *soapClient) getFromCache(key string) ([]normalize.Row, bool) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		log.Debug().Str("key", key).Msg("Cache miss")
		return nil, false
	}
	if time.Now().After(entry.expiration) {
		delete(c.cache, key)
		return nil, false
	}
	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.rows, true
}

func (c *soapClient) addToCache(key string, rows []normalize.Row) {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	c.cache[key] = &cacheEntry{
		rows:       rows,
		expiration: time.Now().Add(c.cfg.CacheTTL),
	}
	log.Debug().Str("key", key).Dur("ttl", c.cfg.CacheTTL).Msg("Added to cache")
}

func (c *soapClient) throttle(ctx context.Context) error {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling webservice request")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func (c *soapClient) Timeline(ctx context.Context, date time.Time) ([]normalize.Row, error) {
	if !c.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	cacheKey := "timeline:" + date.Format(DateLayout)
	if rows, ok := c.getFromCache(cacheKey); ok {
		return rows, nil
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	body, err := Envelope(c.cfg, date)
	if err != nil {
		return nil, err
	}

	log.Info().Str("date", date.Format(DateLayout)).Msg("Requesting timeline from webservice")
	log.Debug().Str("url", c.cfg.URL).Msg("Webservice request details")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("SOAPAction", "#POST")
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webservice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// SOAP faults arrive as 500 with a readable body
		if resp.StatusCode == http.StatusInternalServerError {
			if _, ferr := Decode(io.LimitReader(resp.Body, 1<<20)); errors.Is(ferr, ErrFault) {
				return nil, ferr
			}
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w (%d): check WEBSERVICE_USER and WEBSERVICE_PASSWORD", ErrAuth, resp.StatusCode)
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				return nil, fmt.Errorf("%w (429): retry after %s seconds", ErrRateLimited, retryAfter)
			}
			return nil, fmt.Errorf("%w (429)", ErrRateLimited)
		default:
			return nil, fmt.Errorf("webservice returned status %d", resp.StatusCode)
		}
	}

	rows, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode webservice response: %w", err)
	}

	log.Info().Int("rows", len(rows)).Msg("Timeline received")
	c.addToCache(cacheKey, rows)
	return rows, nil
}
