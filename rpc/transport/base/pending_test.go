package base

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestPendingResolve tests the basic register and resolve cycle
func TestPendingResolve(t *testing.T) {
	table := newPendingTable()

	call, err := table.Register("1", "get_levels", time.Minute)
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 pending call, got %d", table.Len())
	}

	if !table.Resolve("1", json.RawMessage(`[]`)) {
		t.Fatalf("Resolve should find the pending call")
	}

	result, err := call.Result()
	if err != nil || string(result) != "[]" {
		t.Errorf("Expected result [], got %s (%v)", result, err)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d", table.Len())
	}

	// a second response for the same id is unsolicited
	if table.Resolve("1", json.RawMessage(`[]`)) {
		t.Errorf("Second resolve should not find a call")
	}
}

// TestPendingTimerAfterResolve tests that a call resolved before its timer is armed never gets one
func TestPendingTimerAfterResolve(t *testing.T) {
	table := newPendingTable()

	call, err := table.Register("1", "get_levels", time.Minute)
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if !table.Resolve("1", json.RawMessage(`[]`)) {
		t.Fatalf("Resolve should find the pending call")
	}

	// arming after the call left the table, as Register does when Resolve wins the race
	call.armTimer(time.Minute, func() { t.Errorf("Timer of a resolved call fired") })

	call.timerMu.Lock()
	defer call.timerMu.Unlock()
	if call.timer != nil {
		t.Errorf("No timer may be armed for a resolved call")
	}
}

// TestPendingResolvedCallsStopTimers tests that fast responses leave no running timers behind
func TestPendingResolvedCallsStopTimers(t *testing.T) {
	table := newPendingTable()

	var wg sync.WaitGroup
	calls := make([]*pendingCall, 200)
	for i := range calls {
		id := fmt.Sprint(i)
		call, err := table.Register(id, "get_levels", time.Minute)
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		calls[i] = call
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Resolve(id, json.RawMessage(`null`))
		}()
	}
	wg.Wait()

	for _, call := range calls {
		call.timerMu.Lock()
		if call.timer != nil || !call.stopped {
			t.Errorf("Call %s still has a deadline timer", call.id)
		}
		call.timerMu.Unlock()
	}
}

// TestPendingDuplicateID tests that an id can not be registered twice
func TestPendingDuplicateID(t *testing.T) {
	table := newPendingTable()

	if _, err := table.Register("1", "get_levels", time.Minute); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if _, err := table.Register("1", "get_views", time.Minute); !errors.Is(err, common.ErrDuplicateID) {
		t.Errorf("Expected ErrDuplicateID, got %v", err)
	}
}

// TestPendingExpire tests that the deadline completes the call with a timeout
func TestPendingExpire(t *testing.T) {
	table := newPendingTable()

	var expired atomic.Int32
	table.onExpire = func(call *pendingCall) { expired.Add(1) }

	call, err := table.Register("1", "get_elements", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	select {
	case <-call.Done():
	case <-time.After(time.Second):
		t.Fatalf("Call did not expire")
	}

	_, err = call.Result()
	var timeoutErr *common.TimeoutError
	if !errors.Is(err, common.ErrTimeout) || !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected a timeout error, got %v", err)
	}
	if timeoutErr.Command != "get_elements" || timeoutErr.ID != "1" {
		t.Errorf("Unexpected timeout error: %+v", timeoutErr)
	}
	if expired.Load() != 1 {
		t.Errorf("Expected onExpire to be called once, got %d", expired.Load())
	}

	// the late response is dropped
	if table.Resolve("1", json.RawMessage(`{}`)) {
		t.Errorf("Late response should not find a call")
	}
}

// TestPendingRejectRemote tests the error response of the host
func TestPendingRejectRemote(t *testing.T) {
	table := newPendingTable()

	call, _ := table.Register("5", "get_element_info", time.Minute)
	if !table.RejectRemote("5", "Element not found") {
		t.Fatalf("RejectRemote should find the pending call")
	}

	_, err := call.Result()
	var rejected *common.CommandRejectedError
	if !errors.As(err, &rejected) || !errors.Is(err, common.ErrCommandRejected) {
		t.Fatalf("Expected a rejected error, got %v", err)
	}
	if rejected.Message != "Element not found" || rejected.Command != "get_element_info" {
		t.Errorf("Unexpected rejected error: %+v", rejected)
	}
}

// TestPendingDrainAll tests that every pending call is completed exactly once
func TestPendingDrainAll(t *testing.T) {
	table := newPendingTable()

	calls := make([]*pendingCall, 10)
	for i := range calls {
		call, err := table.Register(fmt.Sprint(i), "get_levels", time.Minute)
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		calls[i] = call
	}

	// one call is resolved before the drain
	table.Resolve("0", json.RawMessage(`1`))

	if n := table.DrainAll(common.ErrConnectionLost); n != 9 {
		t.Errorf("Expected 9 drained calls, got %d", n)
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d", table.Len())
	}

	for i, call := range calls {
		_, err := call.Result()
		if i == 0 && err != nil {
			t.Errorf("Resolved call should keep its result, got %v", err)
		}
		if i > 0 && !errors.Is(err, common.ErrConnectionLost) {
			t.Errorf("Call %d: expected ErrConnectionLost, got %v", i, err)
		}
	}
}

// TestPendingSingle tests the lookup used in serial mode
func TestPendingSingle(t *testing.T) {
	table := newPendingTable()

	if _, ok := table.Single(); ok {
		t.Errorf("Empty table should not have a single call")
	}

	table.Register("1", "get_levels", time.Minute)
	if id, ok := table.Single(); !ok || id != "1" {
		t.Errorf("Expected single call 1, got %q %v", id, ok)
	}

	table.Register("2", "get_levels", time.Minute)
	if _, ok := table.Single(); ok {
		t.Errorf("Table with two calls should not have a single call")
	}
}

// TestPendingConcurrent resolves and expires calls from many goroutines at once
func TestPendingConcurrent(t *testing.T) {
	table := newPendingTable()

	const workers = 16
	const callsPerWorker = 200

	var wg sync.WaitGroup
	var completed atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < callsPerWorker; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				call, err := table.Register(id, "get_levels", time.Millisecond*time.Duration(1+i%3))
				if err != nil {
					t.Errorf("Failed to register %s: %v", id, err)
					return
				}

				// race the response against the deadline
				table.Resolve(id, json.RawMessage(`null`))
				<-call.Done()
				completed.Add(1)
			}
		}(w)
	}
	wg.Wait()

	if completed.Load() != workers*callsPerWorker {
		t.Errorf("Expected %d completed calls, got %d", workers*callsPerWorker, completed.Load())
	}
	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %d", table.Len())
	}
}
