package consumer

import "context"

// MessageHandler processes one raw broker payload. Returning true means
// the message is durably processed and may be acked; false means
// processing failed but, per spec.md's codified "ack and record failure
// in state" policy, the message is still acked — failures surface
// through whatever request-scoped state the handler itself writes.
type MessageHandler interface {
	Handle(ctx context.Context, payload []byte) bool
}

// MessageHandlerFunc adapts a function to a MessageHandler.
type MessageHandlerFunc func(ctx context.Context, payload []byte) bool

func (f MessageHandlerFunc) Handle(ctx context.Context, payload []byte) bool {
	return f(ctx, payload)
}
