package wallpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StateTimeout          = 5 * time.Second
	DefaultCommandTimeout = 10 * time.Second
)

// Client talks to the HTTP API of a single wall panel.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	commandTimeout time.Duration
	logger         log.FieldLogger
}

func NewClient(baseURL string, logger log.FieldLogger) *Client {
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		commandTimeout: DefaultCommandTimeout,
		logger:         logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchState reads the current device state. A non-200 answer is returned
// as an error payload; only connectivity and decoding failures produce an
// error.
func (c *Client) FetchState(ctx context.Context) (Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, StateTimeout)
	defer cancel()

	url := c.baseURL + "state"
	c.logger.Debugf("Loading state from %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// SendCommand posts a single command to the device.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (Payload, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	url := c.baseURL + "command"
	c.logger.Debugf("Sending %s to %s", body, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (Payload, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return errorPayload(resp.StatusCode), nil
	}

	payload := Payload{}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			// empty body
			return Payload{}, nil
		}
		return nil, fmt.Errorf("failed to decode response from %s: %w", req.URL, err)
	}
	return payload, nil
}
