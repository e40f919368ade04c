package bus

import "context"

// MessageBus carries inbound events from channels to the gateway.
type MessageBus struct {
	Inbound chan InboundEvent
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound: make(chan InboundEvent, bufSize),
	}
}

// Publish enqueues ev, giving up when ctx ends.
func (b *MessageBus) Publish(ctx context.Context, ev InboundEvent) error {
	select {
	case b.Inbound <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
