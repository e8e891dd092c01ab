package ingest

import "context"

// Handler receives one message. It runs on the transport's delivery goroutine.
type Handler func(topic string, payload []byte)

// Transport is a broker connection. Subscriptions made before a reconnect
// must survive it.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler Handler) error
	Close() error
}
