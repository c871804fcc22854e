package progress_test

import (
	"errors"
	"testing"

	"github.com/lvillar/pdfcompose/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(events *[]progress.Event) progress.Func {
	return func(e progress.Event) {
		*events = append(*events, e)
	}
}

func TestReporterMonotonic(t *testing.T) {
	var events []progress.Event
	r := progress.NewReporter(collect(&events))

	r.Update(10, "loading")
	r.Update(5, "going backwards")
	r.Step(25, 60, 1, 3, "page 1")
	r.Update(150, "too far")
	r.Complete("done")

	require.Len(t, events, 5)
	assert.Equal(t, 10, events[0].Progress)
	assert.Equal(t, 10, events[1].Progress)
	assert.Equal(t, 45, events[2].Progress)
	assert.Equal(t, 99, events[3].Progress)
	assert.Equal(t, progress.Event{Progress: 100, Status: progress.Complete, Message: "done"}, events[4])

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress)
	}
}

func TestReporterFailResetsProgress(t *testing.T) {
	var events []progress.Event
	r := progress.NewReporter(collect(&events))

	r.Update(80, "serializing")
	r.Fail(errors.New("boom"))
	r.Update(90, "ignored")
	r.Complete("ignored")

	require.Len(t, events, 2)
	assert.Equal(t, progress.Event{Progress: 0, Status: progress.Error, Message: "boom"}, events[1])
	assert.True(t, r.Done())
}

func TestNilFunc(t *testing.T) {
	r := progress.NewReporter(nil)
	r.Update(50, "nobody listening")
	r.Complete("ok")
	assert.True(t, r.Done())
	assert.Nil(t, progress.Monotonic(nil))
}

func TestChannelDropsOnlyProcessingEvents(t *testing.T) {
	ch := make(chan progress.Event, 1)
	fn := progress.Channel(ch)

	// The buffer is full after the first event, so the second is dropped
	// without blocking.
	fn(progress.Event{Progress: 10, Status: progress.Processing})
	fn(progress.Event{Progress: 20, Status: progress.Processing})
	require.Len(t, ch, 1)

	// A terminal event waits for room instead of being dropped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(progress.Event{Progress: 100, Status: progress.Complete})
	}()

	first := <-ch
	last := <-ch
	<-done

	assert.Equal(t, 10, first.Progress)
	assert.Equal(t, progress.Complete, last.Status)
	assert.Empty(t, ch)
}

func TestMonotonicGuard(t *testing.T) {
	var events []progress.Event
	fn := progress.Monotonic(collect(&events))

	fn(progress.Event{Progress: 40, Status: progress.Processing})
	fn(progress.Event{Progress: 5, Status: progress.Processing})
	fn(progress.Event{Progress: 60, Status: progress.Processing})
	fn(progress.Event{Progress: 100, Status: progress.Complete})
	fn(progress.Event{Progress: 0, Status: progress.Error})

	require.Len(t, events, 3)
	assert.Equal(t, []int{40, 60, 100}, []int{events[0].Progress, events[1].Progress, events[2].Progress})
}
