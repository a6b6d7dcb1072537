package infrastructure

import "context"

// Server is anything the App can run: HTTP server, NATS handler, worker.
// Start blocks until the server stops or ctx is cancelled.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
