package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"sdnlabel/internal/logger"
)

var log = logger.With("controller")

const (
	flowsPath    = "/wm/core/switch/all/flow/json"
	switchesPath = "/wm/core/controller/switches/json"
	summaryPath  = "/wm/core/controller/summary/json"

	maxBody = 64 << 20
)

// ErrNoSwitches is returned when the controller never reports a connected
// switch within the readiness budget.
var ErrNoSwitches = errors.New("no switches connected to controller")

// StatusError reports a non-2xx controller response.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("controller %s returned HTTP %d", e.Path, e.Status)
}

// Config configures the Floodlight REST client.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxFailures uint32
	Cooldown    time.Duration
}

// Switch is one entry of the connected-switches listing.
type Switch struct {
	DPID        string `json:"switchDPID"`
	InetAddress string `json:"inetAddress"`
}

// Client talks to the Floodlight REST API.
type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a controller client. Snapshot fetches go through a
// circuit breaker so a dead controller is not hammered every interval.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("controller url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}

	c := &Client{
		base: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "floodlight",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	})
	return c, nil
}

// FetchFlows returns the raw flow-table snapshot of every switch.
func (c *Client) FetchFlows(ctx context.Context) ([]byte, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, flowsPath)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

// Switches lists the switches currently connected to the controller.
func (c *Client) Switches(ctx context.Context) ([]Switch, error) {
	body, err := c.get(ctx, switchesPath)
	if err != nil {
		return nil, err
	}
	var out []Switch
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode switches: %w", err)
	}
	return out, nil
}

// Summary returns the controller summary, used as a health check.
func (c *Client) Summary(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.get(ctx, summaryPath)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return out, nil
}

// WaitForSwitches polls the switch listing until at least one switch is
// connected, the attempts run out, or ctx ends.
func (c *Client) WaitForSwitches(ctx context.Context, attempts int, interval time.Duration) ([]Switch, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		switches, err := c.Switches(ctx)
		if err == nil && len(switches) > 0 {
			log.Infof("%d switch(es) connected, first %s", len(switches), switches[0].DPID)
			return switches, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSwitches, lastErr)
	}
	return nil, ErrNoSwitches
}

// BreakerState reports the snapshot breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &StatusError{Path: path, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}
