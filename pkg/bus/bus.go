package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed EventBus.
var ErrBusClosed = errors.New("event bus closed")

// EventBus carries inbound updates from the messaging session to the
// dispatcher. Delivery order matches publish order.
type EventBus struct {
	inbound chan InboundEvent
	done    chan struct{}
	closed  atomic.Bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		inbound: make(chan InboundEvent, 100),
		done:    make(chan struct{}),
	}
}

func (eb *EventBus) Publish(ctx context.Context, ev InboundEvent) error {
	if eb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case eb.inbound <- ev:
		return nil
	case <-eb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the next inbound event. Events accepted by Publish
// before Close are still delivered; Consume reports closed only once
// the buffer is empty.
func (eb *EventBus) Consume(ctx context.Context) (InboundEvent, bool) {
	// Buffered events take priority over shutdown.
	select {
	case ev := <-eb.inbound:
		return ev, true
	default:
	}

	select {
	case ev := <-eb.inbound:
		return ev, true
	case <-eb.done:
		select {
		case ev := <-eb.inbound:
			return ev, true
		default:
			return InboundEvent{}, false
		}
	case <-ctx.Done():
		return InboundEvent{}, false
	}
}

func (eb *EventBus) Close() {
	if eb.closed.CompareAndSwap(false, true) {
		close(eb.done)
	}
}
