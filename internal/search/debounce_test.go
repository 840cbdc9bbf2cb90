package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) record(_ uint64, v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(40*time.Millisecond, rec.record)

	for _, v := range []string{"d", "du", "dun", "dune"} {
		d.Trigger(v)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"dune"}, rec.snapshot())
	assert.Equal(t, "dune", d.Value())
}

func TestDebouncerSeparateBursts(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(10*time.Millisecond, rec.record)

	d.Trigger("alien")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 2*time.Millisecond)
	d.Trigger("aliens")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 2*time.Millisecond)

	assert.Equal(t, []string{"alien", "aliens"}, rec.snapshot())
}

func TestDebouncerCancel(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)

	d.Trigger("heat")
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, "", d.Value())
}

func TestDebouncerIsLatest(t *testing.T) {
	var got uint64
	done := make(chan struct{})
	d := NewDebouncer(5*time.Millisecond, func(seq uint64, _ string) {
		got = seq
		close(done)
	})

	d.Trigger("x")
	<-done
	assert.True(t, d.IsLatest(got))

	d.Trigger("y")
	assert.False(t, d.IsLatest(got))
	d.Cancel()
}
