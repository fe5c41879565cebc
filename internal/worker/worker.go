package worker

import "context"

// Worker is a long-running process of the host application, such as the
// HTTP server. Run blocks until ctx is cancelled (return nil or
// context.Canceled) or a fatal error occurs (return it).
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}
