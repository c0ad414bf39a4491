package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// RequestTimeout bounds one request/response round trip.
	RequestTimeout = 10 * time.Second
	// ConnectTimeout bounds establishing the TCP connection.
	ConnectTimeout = 5 * time.Second
)

// RetryConfig controls how transient request failures are retried.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig retries up to five times with exponential backoff,
// starting at one second and capped at thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Client talks to one WLED device over its HTTP/JSON API.
type Client struct {
	host       string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	log        *log.Entry
}

// NewClient creates a client for the device at host (hostname or IP,
// no scheme).
func NewClient(host string) *Client {
	return &Client{
		host:    host,
		baseURL: fmt.Sprintf("http://%s", host),
		httpClient: &http.Client{
			Timeout: RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: ConnectTimeout,
				}).DialContext,
			},
		},
		retry: DefaultRetryConfig(),
		log:   log.WithField("wled", host),
	}
}

// SetRetryConfig replaces the retry behaviour. Intended for tests and for
// callers that want a single attempt.
func (c *Client) SetRetryConfig(retry RetryConfig) {
	c.retry = retry
}

// Host returns the hostname or IP this client talks to.
func (c *Client) Host() string {
	return c.host
}

// GetState fetches /json/state.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	var state State
	if err := c.getJSON(ctx, "/json/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetInfo fetches /json/info.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.getJSON(ctx, "/json/info", &info); err != nil {
		return nil, err
	}
	if info.Name == "" {
		c.log.Warn("Device info has no name set")
	}
	return &info, nil
}

// GetFullState fetches /json, which combines state, info and the effect and
// palette name tables in one response.
func (c *Client) GetFullState(ctx context.Context) (*FullState, error) {
	var full FullState
	if err := c.getJSON(ctx, "/json", &full); err != nil {
		return nil, err
	}
	if len(full.Effects) == 0 {
		c.log.Warn("Full state response has no effects section")
	}
	if len(full.Palettes) == 0 {
		c.log.Warn("Full state response has no palettes section")
	}
	return &full, nil
}

// GetEffects fetches the effect name table from /json/eff.
func (c *Client) GetEffects(ctx context.Context) ([]string, error) {
	var effects []string
	if err := c.getJSON(ctx, "/json/eff", &effects); err != nil {
		return nil, err
	}
	return effects, nil
}

// GetPalettes fetches the palette name table from /json/pal.
func (c *Client) GetPalettes(ctx context.Context) ([]string, error) {
	var palettes []string
	if err := c.getJSON(ctx, "/json/pal", &palettes); err != nil {
		return nil, err
	}
	return palettes, nil
}

// GetPresets fetches and parses /presets.json. Note the path: presets live
// outside the /json API base.
func (c *Client) GetPresets(ctx context.Context) (*Presets, error) {
	body, err := c.request(ctx, http.MethodGet, "/presets.json", nil)
	if err != nil {
		return nil, err
	}
	presets, err := ParsePresets(body)
	if err != nil {
		return nil, &InvalidJSONError{Host: c.host, Err: err}
	}
	return presets, nil
}

// SetState posts a partial state update to /json/state. An empty update is
// rejected before anything is sent.
func (c *Client) SetState(ctx context.Context, update StateUpdate) error {
	if update.IsZero() {
		return ErrEmptyUpdate
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encoding state update: %w", err)
	}
	_, err = c.request(ctx, http.MethodPost, "/json/state", payload)
	return err
}

// TurnOnOptions are the optional parameters for TurnOn.
type TurnOnOptions struct {
	Brightness *int
	Transition *int
	Preset     *int
}

// TurnOn switches the light on, optionally setting brightness, transition
// time (in 100ms units) and a preset in the same command.
func (c *Client) TurnOn(ctx context.Context, opts TurnOnOptions) error {
	update := StateUpdate{
		On:         boolPtr(true),
		Brightness: opts.Brightness,
		Transition: opts.Transition,
		Preset:     opts.Preset,
	}
	return c.SetState(ctx, update)
}

// TurnOff switches the light off with an optional transition time.
func (c *Client) TurnOff(ctx context.Context, transition *int) error {
	return c.SetState(ctx, StateUpdate{On: boolPtr(false), Transition: transition})
}

// SetBrightness sets the master brightness, 0-255.
func (c *Client) SetBrightness(ctx context.Context, brightness int) error {
	if brightness < 0 || brightness > 255 {
		return fmt.Errorf("brightness %d out of range 0-255", brightness)
	}
	return c.SetState(ctx, StateUpdate{Brightness: intPtr(brightness)})
}

// SetPreset activates a stored preset slot.
func (c *Client) SetPreset(ctx context.Context, id int) error {
	return c.SetState(ctx, StateUpdate{Preset: intPtr(id)})
}

// ActivatePlaylist starts a stored playlist.
func (c *Client) ActivatePlaylist(ctx context.Context, id int) error {
	if id < 0 {
		return fmt.Errorf("playlist id %d is negative", id)
	}
	return c.SetState(ctx, StateUpdate{Playlist: intPtr(id)})
}

// EffectOptions are the optional parameters for SetEffect.
type EffectOptions struct {
	Speed     *int
	Intensity *int
	Palette   *int
}

// SetEffect activates an effect by index on the first segment, optionally
// with speed, intensity and palette.
func (c *Client) SetEffect(ctx context.Context, effect int, opts EffectOptions) error {
	seg := SegmentUpdate{
		Effect:    intPtr(effect),
		Speed:     opts.Speed,
		Intensity: opts.Intensity,
		Palette:   opts.Palette,
	}
	return c.SetState(ctx, StateUpdate{Segments: []SegmentUpdate{seg}})
}

// SetColor sets the primary color of the first segment.
func (c *Client) SetColor(ctx context.Context, r, g, b int) error {
	seg := SegmentUpdate{Colors: [][]int{{r, g, b}}}
	return c.SetState(ctx, StateUpdate{Segments: []SegmentUpdate{seg}})
}

// Ping probes the device by fetching its info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetInfo(ctx)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &InvalidJSONError{Host: c.host, Err: err}
	}
	return nil
}

// request performs one HTTP exchange with retries. GET and POST share this
// path: WLED state posts are idempotent, so retrying them is safe.
func (c *Client) request(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	delay := c.retry.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warnf("Retrying %s %s (attempt %d/%d) after error: %v", method, path, attempt, c.retry.MaxRetries, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &TimeoutError{Host: c.host, Err: ctx.Err()}
			}
			delay = time.Duration(float64(delay) * c.retry.Multiplier)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		body, err := c.doRequest(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Host: c.host, Err: err}
		}
		return nil, &ConnectionError{Host: c.host, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			c.log.WithError(err).Warn("Response close failed")
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Host: c.host, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &InvalidResponseError{Host: c.host, StatusCode: resp.StatusCode, Reason: "endpoint not found"}
	case resp.StatusCode >= 500:
		return nil, &ConnectionError{Host: c.host, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &InvalidResponseError{Host: c.host, StatusCode: resp.StatusCode, Reason: "unexpected status"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Host: c.host, Err: err}
	}
	if len(body) == 0 {
		return nil, &InvalidResponseError{Host: c.host, Reason: "empty response body"}
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
