package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	r "github.com/redis/go-redis/v9"
)

// Observer receives connection lifecycle events. Implementations must be
// safe for concurrent use; events fire from whichever goroutine dials or
// runs a command.
type Observer interface {
	OnConnect(ctx context.Context, addr string)
	OnError(ctx context.Context, err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Connect func(ctx context.Context, addr string)
	Error   func(ctx context.Context, err error)
}

func (f ObserverFuncs) OnConnect(ctx context.Context, addr string) {
	if f.Connect != nil {
		f.Connect(ctx, addr)
	}
}

func (f ObserverFuncs) OnError(ctx context.Context, err error) {
	if f.Error != nil {
		f.Error(ctx, err)
	}
}

// Observers fans events out to each observer in order.
type Observers []Observer

func (o Observers) OnConnect(ctx context.Context, addr string) {
	for _, observer := range o {
		observer.OnConnect(ctx, addr)
	}
}

func (o Observers) OnError(ctx context.Context, err error) {
	for _, observer := range o {
		observer.OnError(ctx, err)
	}
}

// dialErrors remembers the last dial failure so the command that surfaces
// the same error is not reported a second time.
type dialErrors struct {
	last atomic.Pointer[error]
}

func (d *dialErrors) record(err error) {
	d.last.Store(&err)
}

func (d *dialErrors) seen(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	last := d.last.Load()
	return last != nil && errors.Is(err, *last)
}

// lifecycleHook reports dial results and connection-level command errors.
type lifecycleHook struct {
	observer Observer
	dial     bool
	process  bool
	// label replaces the dialed address; failover clients dial "FailoverClient".
	label  string
	dialed *dialErrors
}

var _ r.Hook = (*lifecycleHook)(nil)

func (h *lifecycleHook) DialHook(next r.DialHook) r.DialHook {
	if !h.dial {
		return next
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		name := addr
		if h.label != "" {
			name = h.label
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.dialed.record(err)
			h.observer.OnError(ctx, fmt.Errorf("dial %s: %w", name, err))
			return nil, err
		}
		h.observer.OnConnect(ctx, name)
		return conn, nil
	}
}

func (h *lifecycleHook) report(ctx context.Context, err error) {
	if !IsConnectionError(err) || h.dialed.seen(err) {
		return
	}
	h.observer.OnError(ctx, err)
}

func (h *lifecycleHook) ProcessHook(next r.ProcessHook) r.ProcessHook {
	if !h.process {
		return next
	}
	return func(ctx context.Context, cmd r.Cmder) error {
		err := next(ctx, cmd)
		h.report(ctx, err)
		return err
	}
}

func (h *lifecycleHook) ProcessPipelineHook(next r.ProcessPipelineHook) r.ProcessPipelineHook {
	if !h.process {
		return next
	}
	return func(ctx context.Context, cmds []r.Cmder) error {
		err := next(ctx, cmds)
		h.report(ctx, err)
		return err
	}
}

// IsConnectionError reports whether err concerns the connection rather than
// a command: network failures, closed clients and authentication replies.
// Missing keys, aborted transactions, cancelled contexts and ordinary server
// error replies are not connection errors.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, r.Nil) || errors.Is(err, r.TxFailedErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var reply r.Error
	if errors.As(err, &reply) {
		msg := reply.Error()
		return strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") ||
			strings.HasPrefix(msg, "CLUSTERDOWN") || strings.HasPrefix(msg, "MASTERDOWN")
	}
	return true
}
