package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// DefaultCheckInterval is how often the probe re-verifies a healthy link.
const DefaultCheckInterval = 5 * time.Second

// Probe verifies reachability by dialing a websocket endpoint. While the
// dial succeeds it publishes online every CheckInterval; after a failure it
// publishes offline and retries on the Retryer's schedule.
type Probe struct {
	*Manual

	endpoint      string
	dialer        *websocket.Dialer
	retryer       Retryer
	checkInterval time.Duration
	log           zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// ProbeOption adjusts a Probe.
type ProbeOption func(*Probe)

// WithCheckInterval sets the healthy-link re-check interval.
func WithCheckInterval(d time.Duration) ProbeOption {
	return func(p *Probe) { p.checkInterval = d }
}

// WithRetryer replaces the failure backoff schedule.
func WithRetryer(r Retryer) ProbeOption {
	return func(p *Probe) { p.retryer = r }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ProbeOption {
	return func(p *Probe) { p.dialer = d }
}

// WithProbeLogger sets the probe's logger.
func WithProbeLogger(log zerolog.Logger) ProbeOption {
	return func(p *Probe) { p.log = log }
}

// NewProbe returns a probe for the websocket endpoint. The probe is idle
// until Start is called.
func NewProbe(endpoint string, opts ...ProbeOption) *Probe {
	p := &Probe{
		Manual:        NewManual(),
		endpoint:      endpoint,
		dialer:        websocket.DefaultDialer,
		retryer:       NewExponentialBackoffRetryer(),
		checkInterval: DefaultCheckInterval,
		log:           zerolog.Nop(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the probe loop. Subsequent calls are no-ops.
func (p *Probe) Start(ctx context.Context) {
	p.once.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)
	})
}

// Stop terminates the probe loop and waits for it to exit. The notifier keeps
// its last observed state.
func (p *Probe) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Probe) loop(ctx context.Context) {
	defer close(p.done)

	attempt := 0
	for {
		err := p.check(ctx)
		if err == nil {
			p.retryer.Reset()
			attempt = 0
			p.SetOnline(true)
			if !sleep(ctx, p.checkInterval) {
				return
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}

		p.log.Debug().Err(err).Str("endpoint", p.endpoint).Msg("connectivity probe failed")
		p.SetOnline(false)

		delay, retry := p.retryer.NextDelay(attempt, err)
		if !retry {
			p.log.Warn().Str("endpoint", p.endpoint).Msg("connectivity probe gave up")
			return
		}
		attempt++
		if !sleep(ctx, delay) {
			return
		}
	}
}

func (p *Probe) check(ctx context.Context) error {
	conn, resp, err := p.dialer.DialContext(ctx, p.endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}
	return conn.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
