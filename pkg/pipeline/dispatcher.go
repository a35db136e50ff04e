package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tinyland-inc/keyclaw/pkg/bus"
	"github.com/tinyland-inc/keyclaw/pkg/filters"
	"github.com/tinyland-inc/keyclaw/pkg/logger"
)

// ErrNoHandlers is returned when a dispatcher is built with zero filters.
// A watcher with nothing to watch has no useful work to do.
var ErrNoHandlers = errors.New("no channel filters registered")

// Pinger issues a no-op protocol call to keep the messaging session alive.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dispatcher bridges the inbound event stream to the registered filters.
// Filters run synchronously on the dispatcher goroutine; matched
// extractions spawn pipeline runs that are not awaited.
type Dispatcher struct {
	bus       *bus.EventBus
	filters   []filters.Filter
	runner    *Runner
	pinger    Pinger
	keepalive time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(eb *bus.EventBus, fs []filters.Filter, runner *Runner, pinger Pinger, keepalive time.Duration) (*Dispatcher, error) {
	if len(fs) == 0 {
		return nil, ErrNoHandlers
	}
	if keepalive <= 0 {
		keepalive = time.Second
	}
	return &Dispatcher{
		bus:       eb,
		filters:   fs,
		runner:    runner,
		pinger:    pinger,
		keepalive: keepalive,
	}, nil
}

// Run consumes events until ctx is canceled or the bus closes, then waits
// for in-flight pipeline runs to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	stop := make(chan struct{})
	if d.pinger != nil {
		d.wg.Add(1)
		go d.keepaliveLoop(ctx, stop)
	}

	for {
		ev, ok := d.bus.Consume(ctx)
		if !ok {
			break
		}
		d.dispatch(ctx, ev)
	}

	close(stop)
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, ev bus.InboundEvent) {
	for _, f := range d.filters {
		ex, ok := f.Examine(ev)
		if !ok {
			continue
		}
		logger.DebugCF("dispatcher", "Filter matched", map[string]any{
			"channel": f.ChannelID(),
			"kind":    string(ex.Kind),
		})
		d.wg.Add(1)
		go func(ex filters.Extraction) {
			defer d.wg.Done()
			d.runner.Run(ctx, ex)
		}(ex)
	}
}

// keepaliveLoop pings on a fixed interval. Messages arrive via push; the
// ping only prevents idle disconnects.
func (d *Dispatcher) keepaliveLoop(ctx context.Context, stop <-chan struct{}) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := d.pinger.Ping(ctx); err != nil && ctx.Err() == nil {
				logger.WarnCF("dispatcher", "Keepalive ping failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}
