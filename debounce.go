package simpstore

import (
	"context"
	"sync"
	"time"
)

// saveTask is the single scheduled write owned by a persisted store. Each
// schedule replaces the pending payload and re-arms the timer. Writes run
// one at a time and a write older than the last completed one is dropped, so
// the newest payload always wins.
type saveTask struct {
	delay time.Duration
	write func(ctx context.Context, payload []byte) error

	mu      sync.Mutex
	timer   *time.Timer
	payload []byte
	seq     uint64
	armed   bool

	writeMu sync.Mutex
	written uint64
}

func newSaveTask(delay time.Duration, write func(context.Context, []byte) error) *saveTask {
	return &saveTask{delay: delay, write: write}
}

// schedule cancels any pending write and arms a new one for payload.
func (t *saveTask) schedule(payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	t.payload = payload
	t.armed = true
	t.timer = time.AfterFunc(t.delay, func() {
		t.fire(seq)
	})
}

func (t *saveTask) fire(seq uint64) {
	payload, ok := t.take(seq)
	if !ok {
		return
	}
	_ = t.run(context.Background(), seq, payload)
}

// take claims the pending payload if it still belongs to seq.
func (t *saveTask) take(seq uint64) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed || t.seq != seq {
		return nil, false
	}
	t.armed = false
	t.timer = nil
	payload := t.payload
	t.payload = nil
	return payload, true
}

func (t *saveTask) run(ctx context.Context, seq uint64, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if seq <= t.written {
		return nil
	}
	t.written = seq
	return t.write(ctx, payload)
}

// pending reports whether a write is armed.
func (t *saveTask) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// cancel drops the armed write. It reports whether one was pending.
func (t *saveTask) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = nil
	t.payload = nil
	t.armed = false
	return true
}

// flush runs the armed write now, or waits for an in-flight one.
func (t *saveTask) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		t.writeMu.Lock()
		t.writeMu.Unlock()
		return nil
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	seq := t.seq
	t.mu.Unlock()

	payload, ok := t.take(seq)
	if !ok {
		return nil
	}
	return t.run(ctx, seq, payload)
}
