package base

import (
	"context"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/cenkalti/backoff/v4"
	"time"
)

// startReconnect starts the reconnection loop unless one is already active,
// Close was requested or reconnection is disabled.
func (m *connManager) startReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing || m.reconnectCancel != nil || m.config.Transport.Reconnect.MaxAttempts <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectGen++
	m.reconnectCancel = cancel
	m.wg.Add(1)
	go m.reconnectLoop(ctx, m.reconnectGen)
}

// reconnectPolicy returns the backoff used between reconnection attempts:
// a fixed interval, bounded by the maximum number of attempts and the context.
func (m *connManager) reconnectPolicy(ctx context.Context) backoff.BackOff {
	conf := m.config.Transport.Reconnect
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(conf.Interval), uint64(conf.MaxAttempts)),
		ctx,
	)
}

// reconnectLoop waits one interval before every attempt. It stops on the first
// successful connect, when the context is canceled, or after the last attempt failed,
// in which case the manager is marked unreachable until the next explicit connect.
func (m *connManager) reconnectLoop(ctx context.Context, gen uint64) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		if m.reconnectGen == gen && m.reconnectCancel != nil {
			m.reconnectCancel()
			m.reconnectCancel = nil
		}
		m.mu.Unlock()
	}()

	maxAttempts := m.config.Transport.Reconnect.MaxAttempts
	policy := m.reconnectPolicy(ctx)

	for {
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			if ctx.Err() != nil {
				return
			}
			m.mu.Lock()
			m.unreachable = true
			m.mu.Unlock()
			Logger.Errorf("Giving up after %d reconnection attempts: %v (%s)", maxAttempts, common.ErrUnreachable, m.config.Endpoint)
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.state == transport.Connected {
			m.mu.Unlock()
			return
		}
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()

		m.metrics.reconnectAttempt()
		Logger.Infof("Reconnecting to %s (%d/%d)", m.config.Endpoint, attempt, maxAttempts)

		if err := m.connect(ctx, true); err == nil {
			return
		}
	}
}
