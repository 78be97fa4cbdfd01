package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-risk-server/internal/domain"
)

func recordForDay(day int) domain.SymptomLogRecord {
	date := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return domain.SymptomLogRecord{
		Date:          domain.CalendarDay(date),
		FlareLikely:   day%2 == 0,
		AbdominalPain: day % 11,
		Bloating:      (day * 3) % 11,
	}
}

func TestRollingLog_EvictsOldest(t *testing.T) {
	log := NewRollingLog(DefaultWindow)

	for i := 0; i < 30; i++ {
		log.Append(recordForDay(i))
	}
	require.Equal(t, 30, log.Len())
	first := log.Records()[0]

	log.Append(recordForDay(30))

	records := log.Records()
	assert.Len(t, records, 30)
	assert.NotEqual(t, first, records[0])
	assert.Equal(t, recordForDay(1), records[0])
	assert.Equal(t, recordForDay(30), records[29])
}

func TestRollingLog_NeverExceedsWindow(t *testing.T) {
	log := NewRollingLog(5)
	for i := 0; i < 100; i++ {
		log.Append(recordForDay(i))
		assert.LessOrEqual(t, log.Len(), 5)
	}
	assert.Equal(t, recordForDay(95), log.Records()[0])
}

func TestRollingLog_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewRollingLog(0).Window())
	assert.Equal(t, DefaultWindow, NewRollingLog(-3).Window())
}

func TestRollingLog_RecordsIsCopy(t *testing.T) {
	log := NewRollingLog(3)
	log.Append(recordForDay(0))

	records := log.Records()
	records[0].AbdominalPain = 99

	assert.Equal(t, recordForDay(0), log.Records()[0])
}

func TestRollingLog_Subscribe(t *testing.T) {
	log := NewRollingLog(3)
	log.Append(recordForDay(0))

	snapshot, updates, cancel := log.Subscribe(4)
	defer cancel()

	assert.Equal(t, []domain.SymptomLogRecord{recordForDay(0)}, snapshot)

	log.Append(recordForDay(1))
	select {
	case got := <-updates:
		assert.Equal(t, recordForDay(1), got)
	case <-time.After(time.Second):
		t.Fatal("expected an update")
	}

	cancel()
	_, open := <-updates
	assert.False(t, open, "channel should be closed after cancel")
	cancel()
}

func TestRollingLog_SlowSubscriberDoesNotBlock(t *testing.T) {
	log := NewRollingLog(10)
	_, updates, cancel := log.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			log.Append(recordForDay(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Append blocked on a full subscriber")
	}
	assert.Equal(t, recordForDay(0), <-updates)
}

func TestRollingLog_Close(t *testing.T) {
	log := NewRollingLog(3)
	_, updates, cancel := log.Subscribe(1)
	defer cancel()

	log.Close()
	_, open := <-updates
	assert.False(t, open)

	_, late, _ := log.Subscribe(1)
	_, open = <-late
	assert.False(t, open, "subscribing to a closed log yields a closed channel")
}

func TestTrendOf(t *testing.T) {
	records := []domain.SymptomLogRecord{
		{Date: "2025-03-01", FlareLikely: true, AbdominalPain: 7, Bloating: 5},
		{Date: "2025-03-02", FlareLikely: false, AbdominalPain: 2, Bloating: 0},
		{Date: "2025-03-03", FlareLikely: false, AbdominalPain: 0, Bloating: 2},
		{Date: "2025-03-04", FlareLikely: true, AbdominalPain: 10, Bloating: 10},
	}

	trend := TrendOf(records)

	assert.Equal(t, []string{"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04"}, trend.Dates)
	assert.Equal(t, []int{7, 2, 0, 10}, trend.AbdominalPain)
	assert.Equal(t, []int{5, 0, 2, 10}, trend.Bloating)
	assert.Equal(t, []int{1, 0, 0, 1}, trend.Flare)
	assert.InDelta(t, 0.5, trend.FlareRate, 1e-9)

	empty := TrendOf(nil)
	assert.Empty(t, empty.Dates)
	assert.Zero(t, empty.FlareRate)
}

func TestSessionRegistry(t *testing.T) {
	registry, err := NewSessionRegistry(2, 5)
	require.NoError(t, err)

	a := registry.Log("a")
	assert.Same(t, a, registry.Log("a"))
	assert.Equal(t, 5, a.Window())

	_, ok := registry.Lookup("missing")
	assert.False(t, ok)

	_, updates, cancel := a.Subscribe(1)
	defer cancel()

	registry.Log("b")
	registry.Log("c")

	assert.Equal(t, 2, registry.Len())
	_, ok = registry.Lookup("a")
	assert.False(t, ok, "least recently used session should be evicted")

	_, open := <-updates
	assert.False(t, open, "evicted session should end its subscriptions")
}

func TestSessionRegistry_WindowAboveLimit(t *testing.T) {
	_, err := NewSessionRegistry(4, 50)
	assert.Error(t, err)

	log := NewRollingLog(50)
	assert.Equal(t, DefaultWindow, log.Window())
	for i := 0; i < 50; i++ {
		log.Append(domain.SymptomLogRecord{Date: "2025-03-15"})
	}
	assert.Equal(t, 30, log.Len())
}

func TestSessionRegistry_Remove(t *testing.T) {
	registry, err := NewSessionRegistry(0, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		registry.Log(fmt.Sprintf("s-%d", i))
	}
	registry.Remove("s-1")

	assert.Equal(t, 2, registry.Len())
	_, ok := registry.Lookup("s-1")
	assert.False(t, ok)
}
