package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gridstake/gridstake/pkg/log"
)

// HTTPClient submits transfers to a ledger endpoint as JSON over HTTP.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, req Request) (*Ack, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to submit transfer: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	ack := &Ack{}
	if err := json.NewDecoder(resp.Body).Decode(ack); err != nil {
		return nil, fmt.Errorf("failed to decode ack: %v", err)
	}
	return ack, nil
}

// LogClient acknowledges every transfer without moving anything. It is
// the default for local runs without a ledger.
type LogClient struct{}

func NewLogClient() *LogClient {
	return &LogClient{}
}

func (c *LogClient) Submit(ctx context.Context, req Request) (*Ack, error) {
	log.Info("Transfer %s: %d %s to %s (%s)", req.ID, req.Amount, req.Token, req.Recipient, req.Purpose)
	return &Ack{RequestID: req.ID, Status: AckSuccess}, nil
}
