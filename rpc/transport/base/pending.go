package base

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Completion Handle
// --------------------------------------------------------------------------

// pendingCall is the completion handle of one dispatched request (implements transport.ICallHandle)
type pendingCall struct {
	id       string
	command  string
	issuedAt time.Time
	deadline time.Time

	once   sync.Once
	done   chan struct{}
	result json.RawMessage
	err    error

	timerMu sync.Mutex
	timer   *time.Timer
	stopped bool // set once the call left the table, no timer may be armed afterwards
}

func (p *pendingCall) ID() string            { return p.id }
func (p *pendingCall) Command() string       { return p.command }
func (p *pendingCall) Done() <-chan struct{} { return p.done }

func (p *pendingCall) Result() (json.RawMessage, error) {
	<-p.done
	return p.result, p.err
}

// complete sets the outcome of the call. Only the first completion has an effect.
func (p *pendingCall) complete(result json.RawMessage, err error) bool {
	completed := false
	p.once.Do(func() {
		p.result = result
		p.err = err
		completed = true
		close(p.done)
	})
	return completed
}

// armTimer starts the deadline timer unless the call already left the table
func (p *pendingCall) armTimer(timeout time.Duration, expire func()) {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	if p.stopped {
		return
	}
	p.timer = time.AfterFunc(timeout, expire)
}

// stopTimer stops the deadline timer of the call and prevents it from being armed later
func (p *pendingCall) stopTimer() {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// --------------------------------------------------------------------------
// Pending Request Table
// --------------------------------------------------------------------------

// pendingTable maps correlation ids to the completion handles of the waiting callers.
// It is the only owner of the handles: every handle is completed exactly once, by the
// table, when it is removed. The map shards its locks internally, so registering or
// resolving one id never blocks on unrelated ids.
type pendingTable struct {
	calls *xsync.MapOf[string, *pendingCall]

	// onExpire is called after a call expired (used for metrics), may be nil
	onExpire func(call *pendingCall)
}

// newPendingTable creates an empty table
func newPendingTable() *pendingTable {
	return &pendingTable{
		calls: xsync.NewMapOf[string, *pendingCall](),
	}
}

// Register adds a new pending call that expires after timeout.
// It fails with common.ErrDuplicateID if the id is already pending.
func (t *pendingTable) Register(id, command string, timeout time.Duration) (*pendingCall, error) {
	now := time.Now()
	call := &pendingCall{
		id:       id,
		command:  command,
		issuedAt: now,
		deadline: now.Add(timeout),
		done:     make(chan struct{}),
	}

	if _, loaded := t.calls.LoadOrStore(id, call); loaded {
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicateID, id)
	}

	// The timer is armed after the entry is visible, so Expire always finds it.
	// If the call was resolved in between, no timer is armed at all.
	call.armTimer(timeout, func() {
		t.Expire(id)
	})

	return call, nil
}

// Resolve completes the call with the given id successfully.
// It returns false if no call with this id is pending (unsolicited or late response).
func (t *pendingTable) Resolve(id string, result json.RawMessage) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	return call.complete(result, nil)
}

// Reject completes the call with the given id with an error.
// It returns false if no call with this id is pending.
func (t *pendingTable) Reject(id string, err error) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	return call.complete(nil, err)
}

// RejectRemote completes the call with the error message reported by the remote host.
// It returns false if no call with this id is pending.
func (t *pendingTable) RejectRemote(id string, message string) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	return call.complete(nil, &common.CommandRejectedError{
		ID:      call.id,
		Command: call.command,
		Message: message,
	})
}

// Expire completes the call with the given id with a timeout error.
// It returns false if the call already completed.
func (t *pendingTable) Expire(id string) bool {
	call, ok := t.remove(id)
	if !ok {
		return false
	}
	completed := call.complete(nil, &common.TimeoutError{
		ID:      call.id,
		Command: call.command,
		Timeout: call.deadline.Sub(call.issuedAt),
	})
	if completed && t.onExpire != nil {
		t.onExpire(call)
	}
	return completed
}

// DrainAll completes every pending call with err and removes it from the table.
// It returns the number of calls that were drained.
func (t *pendingTable) DrainAll(err error) int {
	var ids []string
	t.calls.Range(func(id string, _ *pendingCall) bool {
		ids = append(ids, id)
		return true
	})

	drained := 0
	for _, id := range ids {
		if t.Reject(id, err) {
			drained++
		}
	}
	return drained
}

// Len returns the number of pending calls
func (t *pendingTable) Len() int {
	return t.calls.Size()
}

// Single returns the id of the only pending call, ok is false if there is none or more than one
func (t *pendingTable) Single() (id string, ok bool) {
	count := 0
	t.calls.Range(func(key string, _ *pendingCall) bool {
		id = key
		count++
		return count < 2
	})
	return id, count == 1
}

// remove deletes the entry with the given id and stops its deadline timer
func (t *pendingTable) remove(id string) (*pendingCall, bool) {
	call, ok := t.calls.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	call.stopTimer()
	return call, true
}
