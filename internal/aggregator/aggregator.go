// Package aggregator fetches the opaque wallet-activity document from the
// upstream data aggregator. The document shape is not interpreted here; the
// features package owns extraction.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chainproof/walletscore/internal/retry"
)

var (
	// ErrNotConfigured indicates no aggregator URL was set.
	ErrNotConfigured = errors.New("aggregator: no upstream configured")
	// ErrUnavailable indicates the upstream could not be reached.
	ErrUnavailable = errors.New("aggregator: upstream unavailable")
)

// maxDocumentSize bounds the activity document (4MB).
const maxDocumentSize = 4 << 20

// Client fetches wallet-activity documents.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates an aggregator client. baseURL may be empty, in which case
// Fetch returns ErrNotConfigured and the caller scores from empty features.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Fetch retrieves the raw activity document for a wallet, retrying transient
// failures with backoff.
func (c *Client) Fetch(ctx context.Context, walletAddress string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var doc []byte
	err := retry.Do(ctx, 3, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/wallets/"+walletAddress, nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			// Unknown wallet: let extraction default everything to zero.
			doc = []byte("{}")
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		doc, err = io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
