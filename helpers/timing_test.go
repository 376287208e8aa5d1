package helpers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceRunsLastCallOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []int
	)
	d := Debounce(40*time.Millisecond, func(v int) {
		mu.Lock()
		calls = append(calls, v)
		mu.Unlock()
	})

	for i := 1; i <= 5; i++ {
		d.Call(i)
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	assert.Empty(t, calls, "nothing should run inside the window")
	mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, calls)
}

func TestDebounceStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	d := Debounce(20*time.Millisecond, func(string) { ran <- struct{}{} })
	d.Call("x")
	assert.True(t, d.Stop())
	assert.False(t, d.Stop())

	select {
	case <-ran:
		t.Fatal("stopped call ran")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestThrottle(t *testing.T) {
	count := 0
	th := Throttle(time.Hour, func(int) { count++ })
	assert.True(t, th(1))
	assert.False(t, th(2))
	assert.False(t, th(3))
	assert.Equal(t, 1, count)
}
