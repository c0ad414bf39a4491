package wled

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPollInterval is how often the device state is polled.
	DefaultPollInterval = 60 * time.Second
	// DefaultPresetsInterval is how often the preset, effect and palette
	// tables are refreshed. They change rarely.
	DefaultPresetsInterval = 1 * time.Hour
	// DefaultMaxFailedPolls is the number of consecutive poll failures
	// after which a device is marked unavailable.
	DefaultMaxFailedPolls = 3
)

// ConnectionState classifies the health of the link to a device.
type ConnectionState string

const (
	ConnectionStateUnknown      ConnectionState = "unknown"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateError        ConnectionState = "error"
)

// Snapshot is the coordinator's cached view of a device, handed to update
// callbacks and returned by Data.
type Snapshot struct {
	Full    *FullState
	Presets *Presets

	Available       bool
	ConnectionState ConnectionState
	FailedPolls     int
	LastSuccess     time.Time
	LastError       error
	LastErrorTime   time.Time
}

// Coordinator polls one device on a fixed interval, caches the last good
// result and pushes updates to registered callbacks. One poll is in flight
// at a time.
type Coordinator struct {
	client *Client
	log    *log.Entry

	PollInterval    time.Duration
	PresetsInterval time.Duration
	MaxFailedPolls  int

	// pollMu keeps one poll in flight at a time, mu guards the cached
	// state. Separate so reads never wait on a slow device.
	pollMu sync.Mutex

	mu             sync.Mutex
	full           *FullState
	presets        *Presets
	presetsFetched time.Time
	failedPolls    int
	lastSuccess    time.Time
	lastError      error
	lastErrorTime  time.Time
	connState      ConnectionState
	available      bool

	onUpdate       func(Snapshot)
	onAvailability func(bool)
}

// NewCoordinator creates a coordinator for client with the default
// intervals.
func NewCoordinator(client *Client) *Coordinator {
	return &Coordinator{
		client:          client,
		log:             log.WithField("wled", client.Host()),
		PollInterval:    DefaultPollInterval,
		PresetsInterval: DefaultPresetsInterval,
		MaxFailedPolls:  DefaultMaxFailedPolls,
		connState:       ConnectionStateUnknown,
	}
}

// OnUpdate registers the callback invoked with a fresh snapshot after every
// successful poll, push merge or command refresh.
func (c *Coordinator) OnUpdate(cb func(Snapshot)) {
	c.onUpdate = cb
}

// OnAvailability registers the callback invoked when the device crosses the
// available/unavailable boundary.
func (c *Coordinator) OnAvailability(cb func(bool)) {
	c.onAvailability = cb
}

// Data returns the current cached snapshot.
func (c *Coordinator) Data() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (c *Coordinator) Run(ctx context.Context) {
	c.Refresh(ctx)

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Coordinator stopped")
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh performs one poll cycle now.
func (c *Coordinator) Refresh(ctx context.Context) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	full, err := c.client.GetFullState(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pollFailedLocked(err)
		return
	}

	// Presets change rarely; refresh them on their own schedule and never
	// let a presets failure fail the poll.
	var presets *Presets
	if time.Since(c.presetsFetched) >= c.PresetsInterval {
		presets, err = c.client.GetPresets(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Presets refresh failed, keeping previous presets")
			presets = nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.full = full
	c.failedPolls = 0
	c.lastSuccess = time.Now()
	c.setConnStateLocked(ConnectionStateConnected)
	if presets != nil {
		c.presets = presets
		c.presetsFetched = time.Now()
	}

	c.setAvailableLocked(true)
	c.notifyLocked()
}

// SendCommand runs a client command and, on success, refreshes immediately
// so entity state converges with the device.
func (c *Coordinator) SendCommand(ctx context.Context, cmd func(context.Context, *Client) error) error {
	if err := cmd(ctx, c.client); err != nil {
		return err
	}
	c.Refresh(ctx)
	return nil
}

// ApplyPush merges a device-pushed state into the cache and notifies. Push
// updates say nothing about polling health, so counters are untouched.
func (c *Coordinator) ApplyPush(state State, info *Info) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.full == nil {
		return
	}
	c.full.State = state
	if info != nil {
		c.full.Info = *info
	}
	c.notifyLocked()
}

func (c *Coordinator) pollFailedLocked(err error) {
	c.failedPolls++
	c.lastError = err
	c.lastErrorTime = time.Now()

	var authErr *AuthError
	if errors.As(err, &authErr) {
		// Cached data must not mask an auth problem.
		c.full = nil
		c.setConnStateLocked(ConnectionStateError)
	} else if isTransportError(err) {
		c.setConnStateLocked(ConnectionStateDisconnected)
	} else {
		c.setConnStateLocked(ConnectionStateError)
	}

	c.log.WithError(err).Warnf("Poll failed (%d consecutive)", c.failedPolls)

	if c.failedPolls >= c.MaxFailedPolls {
		c.setAvailableLocked(false)
	}
}

func isTransportError(err error) bool {
	var connErr *ConnectionError
	var timeoutErr *TimeoutError
	return errors.As(err, &connErr) || errors.As(err, &timeoutErr)
}

func (c *Coordinator) setConnStateLocked(state ConnectionState) {
	if c.connState == state {
		return
	}
	c.log.Infof("Connection state %s -> %s", c.connState, state)
	c.connState = state
}

func (c *Coordinator) setAvailableLocked(available bool) {
	if c.available == available {
		return
	}
	c.available = available
	if available {
		c.log.Info("Device available")
	} else {
		c.log.Warnf("Device unavailable after %d failed polls", c.failedPolls)
	}
	if c.onAvailability != nil {
		c.onAvailability(available)
	}
}

func (c *Coordinator) notifyLocked() {
	if c.onUpdate != nil {
		c.onUpdate(c.snapshotLocked())
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Full:            c.full,
		Presets:         c.presets,
		Available:       c.available,
		ConnectionState: c.connState,
		FailedPolls:     c.failedPolls,
		LastSuccess:     c.lastSuccess,
		LastError:       c.lastError,
		LastErrorTime:   c.lastErrorTime,
	}
}
