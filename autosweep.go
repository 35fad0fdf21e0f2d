package lineup

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoSweeper = (*client)(nil)

// AutoSweeper provides controls for the periodic expiry sweep.
type AutoSweeper interface {
	// AutoSweepOn begins periodic expiry sweeps
	AutoSweepOn() error

	// AutoSweepOff stops periodic expiry sweeps
	AutoSweepOff() error
}

// AutoSweepOn begins periodic expiry sweeps.
func (c *client) AutoSweepOn() error {
	interval := c.options.autoSweepInterval
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "autoSweepInterval",
			Value:   interval,
			Message: "sweep interval must be positive",
		}
	}

	// Stop any running loop first
	if err := c.AutoSweepOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Recreate stopCh since it was closed in AutoSweepOff
	c.stopCh = make(chan struct{})
	c.sweepTicker = time.NewTicker(interval)

	ctx, cancel := context.WithCancel(context.Background())
	c.sweepCancel = cancel

	go c.sweepLoop(ctx, c.sweepTicker, c.stopCh)

	logging.Debug().Dur("interval", interval).Msg("Auto-sweep started")
	return nil
}

// sweepLoop runs Sweep on every tick until ctx ends or stop is closed.
func (c *client) sweepLoop(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, constants.SweepTimeout)
			_, err := c.Sweep(sweepCtx)
			cancel()

			if err != nil {
				if stderrors.Is(err, context.Canceled) {
					return
				}
				logging.Error().Err(err).Msg("Auto-sweep failed")
			}
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// AutoSweepOff stops periodic expiry sweeps. It is safe to call more than
// once.
func (c *client) AutoSweepOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sweepTicker != nil {
		c.sweepTicker.Stop()
		c.sweepTicker = nil
	}
	if c.sweepCancel != nil {
		c.sweepCancel()
		c.sweepCancel = nil
	}
	select {
	case <-c.stopCh:
		// Already closed
	default:
		close(c.stopCh)
	}
	return nil
}
