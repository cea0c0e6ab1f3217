package senior

import (
	"context"
	"time"

	"otc-analytics/internal/normalize"
)

// Client fetches the order timeline from the ERP webservice.
type Client interface {
	// Timeline returns the raw rows of every order line touched on date.
	Timeline(ctx context.Context, date time.Time) ([]normalize.Row, error)
}

// Config holds the connection settings of the timeline webservice.
type Config struct {
	URL      string
	User     string
	Password string

	// Encryption is forwarded as-is; the backend only accepts 0 (plain text).
	Encryption int

	// Performance Settings
	Timeout      time.Duration
	RequestDelay time.Duration
	CacheTTL     time.Duration
}

// Configured reports whether the credentials needed for a request are present.
func (c Config) Configured() bool {
	return c.URL != "" && c.User != "" && c.Password != ""
}

// NewClient creates a timeline client for the provided configuration.
func NewClient(cfg Config) Client {
	return NewSOAPClient(cfg)
}
