package capture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Line(t *testing.T) {
	ts := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)
	ev := Event{Speaker: "Анна", Text: "начнем со статуса", Timestamp: ts}

	assert.Equal(t, "[14:30:05] Анна: начнем со статуса", ev.Line())
}

func TestBuffer_AddDeduplicates(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	assert.True(t, b.Add(Event{Speaker: "Анна", Text: "привет всем"}))
	assert.False(t, b.Add(Event{Speaker: "Анна", Text: "привет всем"}))
	// Same text under different attribution is still a duplicate.
	assert.False(t, b.Add(Event{Speaker: "Борис", Text: "привет всем"}))
	assert.True(t, b.Add(Event{Speaker: "Борис", Text: "привет"}))

	assert.Equal(t, 2, b.Len())
}

func TestBuffer_AddIgnoresEmptyText(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	assert.False(t, b.Add(Event{Speaker: "Анна", Text: ""}))
	assert.False(t, b.Add(Event{Speaker: "Анна", Text: "   "}))
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_FlushBySize(t *testing.T) {
	b := NewBuffer(time.Hour, 3)
	now := time.Now()

	b.Add(Event{Speaker: "Анна", Text: "раз"})
	b.Add(Event{Speaker: "Анна", Text: "два"})
	assert.False(t, b.ShouldFlush(now))

	b.Add(Event{Speaker: "Анна", Text: "три"})
	assert.True(t, b.ShouldFlush(now))
}

func TestBuffer_FlushByAge(t *testing.T) {
	b := NewBuffer(5*time.Minute, 100)

	b.Add(Event{Speaker: "Анна", Text: "единственная реплика"})

	assert.False(t, b.ShouldFlush(time.Now()))
	assert.True(t, b.ShouldFlush(time.Now().Add(5*time.Minute)))
}

func TestBuffer_EmptyNeverFlushes(t *testing.T) {
	b := NewBuffer(time.Nanosecond, 1)

	assert.False(t, b.ShouldFlush(time.Now().Add(time.Hour)))

	_, ok := b.Flush(time.Now())
	assert.False(t, ok)
}

func TestBuffer_FlushDrainsAndFormats(t *testing.T) {
	b := NewBuffer(time.Minute, 10)
	first := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Second)

	b.Add(Event{Speaker: "Анна", Text: "начнем", Timestamp: first})
	b.Add(Event{Speaker: "Борис", Text: "я готов", Timestamp: second})

	chunk, ok := b.Flush(time.Now())
	require.True(t, ok)

	assert.Equal(t, "[10:00:00] Анна: начнем\n[10:00:03] Борис: я готов", chunk.Text)
	assert.Equal(t, 2, chunk.Events)
	assert.Equal(t, first, chunk.Start)
	assert.Equal(t, second, chunk.End)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_DedupSurvivesFlush(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	b.Add(Event{Speaker: "Анна", Text: "решение принято"})
	_, ok := b.Flush(time.Now())
	require.True(t, ok)

	assert.False(t, b.Add(Event{Speaker: "Анна", Text: "решение принято"}))
}

func TestBuffer_AgeCountsFromLastFlush(t *testing.T) {
	b := NewBuffer(5*time.Minute, 100)
	start := time.Now()

	b.Add(Event{Speaker: "Анна", Text: "реплика один"})
	_, ok := b.Flush(start)
	require.True(t, ok)

	b.Add(Event{Speaker: "Анна", Text: "реплика два"})
	assert.False(t, b.ShouldFlush(start.Add(4*time.Minute)))
	assert.True(t, b.ShouldFlush(start.Add(5*time.Minute)))
}

func TestBuffer_AddAssignsTimestamp(t *testing.T) {
	b := NewBuffer(time.Minute, 10)
	b.Add(Event{Speaker: "Анна", Text: "без времени"})

	chunk, ok := b.Flush(time.Now())
	require.True(t, ok)
	assert.False(t, chunk.Start.IsZero())
}

func TestPushSource(t *testing.T) {
	s := NewPushSource()

	assert.NoError(t, s.Join(context.Background()))
	assert.NoError(t, s.WaitAdmission(context.Background()))

	assert.True(t, s.Push(Event{Speaker: "Анна", Text: "раз"}))
	ev := <-s.Events()
	assert.Equal(t, "раз", ev.Text)

	require.NoError(t, s.Close())
	assert.False(t, s.Push(Event{Speaker: "Анна", Text: "после закрытия"}))

	_, open := <-s.Events()
	assert.False(t, open)

	// Closing twice is safe.
	assert.NoError(t, s.Close())
}

func TestPushSource_DropsWhenFull(t *testing.T) {
	s := NewPushSource()
	defer s.Close()

	for i := 0; i < defaultPushCapacity; i++ {
		require.True(t, s.Push(Event{Speaker: "Анна", Text: fmt.Sprintf("реплика %d", i)}))
	}
	assert.False(t, s.Push(Event{Speaker: "Анна", Text: "лишняя"}))
}
