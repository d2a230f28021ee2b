package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minglr/internal/domain/entity"
)

const (
	testFreshWindow = 10 * time.Minute
	testMaxAge      = 60 * time.Minute
)

// testClock drives the store's notion of time from the test.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestStore() (*Store, *testClock) {
	clock := &testClock{current: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(testFreshWindow, testMaxAge)
	s.now = clock.now
	return s, clock
}

func TestStoreSetAndGet(t *testing.T) {
	s, _ := newTestStore()

	s.Set("conv-1", []entity.Message{msg("m2", 1), msg("m1", 2)}, true, "m1")

	entry, ok := s.Get("conv-1")
	require.True(t, ok)
	assert.Equal(t, []string{"m2", "m1"}, ids(entry.Messages))
	assert.True(t, entry.HasMore)

	_, ok = s.Get("conv-missing")
	assert.False(t, ok)
}

func TestStoreSetDeduplicates(t *testing.T) {
	s, _ := newTestStore()

	s.Set("conv-1", []entity.Message{msg("m1", 1), msg("m1", 1), msg("m2", 0)}, false, "")

	entry, _ := s.Get("conv-1")
	assert.Equal(t, []string{"m2", "m1"}, ids(entry.Messages))
}

func TestStoreStaleness(t *testing.T) {
	s, clock := newTestStore()

	t.Run("missing entry is stale", func(t *testing.T) {
		assert.True(t, s.IsStale("conv-1"))
	})

	s.Set("conv-1", []entity.Message{msg("m1", 0)}, false, "")

	t.Run("fresh right after set", func(t *testing.T) {
		assert.False(t, s.IsStale("conv-1"))
	})

	t.Run("exactly at the window is still fresh", func(t *testing.T) {
		clock.advance(testFreshWindow)
		assert.False(t, s.IsStale("conv-1"))
	})

	t.Run("past the window is stale", func(t *testing.T) {
		clock.advance(time.Nanosecond)
		assert.True(t, s.IsStale("conv-1"))
	})
}

func TestStoreMergeFetched(t *testing.T) {
	t.Run("refresh batch overlaps cached head", func(t *testing.T) {
		s, _ := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m3", 1), msg("m2", 2), msg("m1", 3)}, true, "m1")

		ok := s.MergeFetched("conv-1", []entity.Message{msg("m4", 0), msg("m3", 1)})
		require.True(t, ok)

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m4", "m3", "m2", "m1"}, ids(entry.Messages))
	})

	t.Run("resets freshness", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 0)}, false, "")

		clock.advance(testFreshWindow + time.Minute)
		require.True(t, s.IsStale("conv-1"))

		s.MergeFetched("conv-1", []entity.Message{msg("m2", 0)})
		assert.False(t, s.IsStale("conv-1"))
	})

	t.Run("empty batch does not reset freshness", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 0)}, false, "")

		clock.advance(testFreshWindow + time.Minute)
		ok := s.MergeFetched("conv-1", nil)
		require.True(t, ok)
		assert.True(t, s.IsStale("conv-1"))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m1"}, ids(entry.Messages))
	})

	t.Run("returns false for missing entry", func(t *testing.T) {
		s, _ := newTestStore()
		assert.False(t, s.MergeFetched("conv-1", []entity.Message{msg("m1", 0)}))
	})
}

func TestStoreMergeFetchedIfCurrent(t *testing.T) {
	s, _ := newTestStore()
	s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")

	t.Run("applies under the current token", func(t *testing.T) {
		token := s.Token("conv-1")
		assert.True(t, s.MergeFetchedIfCurrent("conv-1", token, []entity.Message{msg("m2", 0)}))
	})

	t.Run("discards after a wholesale replace", func(t *testing.T) {
		token := s.Token("conv-1")
		s.Set("conv-1", []entity.Message{msg("m3", 0)}, false, "")

		assert.False(t, s.MergeFetchedIfCurrent("conv-1", token, []entity.Message{msg("m9", 0)}))
		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m3"}, ids(entry.Messages))
	})

	t.Run("discards after eviction", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 0)}, false, "")
		token := s.Token("conv-1")

		clock.advance(testMaxAge + time.Minute)
		require.Equal(t, 1, s.Sweep())

		assert.False(t, s.MergeFetchedIfCurrent("conv-1", token, []entity.Message{msg("m2", 0)}))
		_, ok := s.Get("conv-1")
		assert.False(t, ok)
	})
}

func TestStoreAppend(t *testing.T) {
	t.Run("older page lands at the tail", func(t *testing.T) {
		s, _ := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m4", 1), msg("m3", 2)}, true, "m3")

		s.Append("conv-1", []entity.Message{msg("m2", 3), msg("m1", 4)}, false, "m1")

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m4", "m3", "m2", "m1"}, ids(entry.Messages))
		assert.False(t, entry.HasMore)
	})

	t.Run("pagination preserves freshness clock", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m2", 1)}, true, "m2")

		clock.advance(testFreshWindow + time.Minute)
		s.Append("conv-1", []entity.Message{msg("m1", 2)}, false, "m1")

		assert.True(t, s.IsStale("conv-1"))
	})

	t.Run("recreates an evicted entry with zero freshness", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m2", 1)}, true, "m2")

		clock.advance(testMaxAge + time.Minute)
		require.Equal(t, 1, s.Sweep())

		s.Append("conv-1", []entity.Message{msg("m1", 2)}, false, "m1")

		entry, ok := s.Get("conv-1")
		require.True(t, ok)
		assert.Equal(t, []string{"m1"}, ids(entry.Messages))
		assert.True(t, s.IsStale("conv-1"))
	})
}

func TestStorePrependLive(t *testing.T) {
	t.Run("new message lands at the head", func(t *testing.T) {
		s, _ := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")

		s.PrependLive("conv-1", msg("m2", 0))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m2", "m1"}, ids(entry.Messages))
	})

	t.Run("duplicate id is ignored", func(t *testing.T) {
		s, _ := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")

		s.PrependLive("conv-1", msg("m1", 1))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m1"}, ids(entry.Messages))
	})

	t.Run("unknown conversation gets an entry with unknown history", func(t *testing.T) {
		s, _ := newTestStore()

		s.PrependLive("conv-1", msg("m1", 0))

		entry, ok := s.Get("conv-1")
		require.True(t, ok)
		assert.True(t, entry.HasMore)
		assert.True(t, s.IsStale("conv-1"))
	})
}

func TestStoreReplaceMessage(t *testing.T) {
	t.Run("keeps position and replaces in place", func(t *testing.T) {
		s, _ := newTestStore()
		provisional := msg(entity.NewProvisionalID(), 0)
		s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")
		s.PrependLive("conv-1", provisional)

		s.ReplaceMessage("conv-1", provisional.ID, msg("m2", 0))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m2", "m1"}, ids(entry.Messages))
	})

	t.Run("drops provisional when confirmed already arrived", func(t *testing.T) {
		s, _ := newTestStore()
		provisional := msg(entity.NewProvisionalID(), 0)
		s.Set("conv-1", nil, false, "")
		s.PrependLive("conv-1", provisional)
		s.PrependLive("conv-1", msg("m2", 0))

		s.ReplaceMessage("conv-1", provisional.ID, msg("m2", 0))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m2"}, ids(entry.Messages))
	})

	t.Run("no-op when provisional already gone", func(t *testing.T) {
		s, _ := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")

		s.ReplaceMessage("conv-1", "local-unknown", msg("m2", 0))

		entry, _ := s.Get("conv-1")
		assert.Equal(t, []string{"m1"}, ids(entry.Messages))
	})
}

func TestStoreRemoveMessage(t *testing.T) {
	s, _ := newTestStore()
	provisional := msg(entity.NewProvisionalID(), 0)
	s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")
	s.PrependLive("conv-1", provisional)

	s.RemoveMessage("conv-1", provisional.ID)

	entry, _ := s.Get("conv-1")
	assert.Equal(t, []string{"m1"}, ids(entry.Messages))
}

func TestStoreMarkAllReadFromOther(t *testing.T) {
	readAt := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)

	t.Run("marks only the local user's unread messages", func(t *testing.T) {
		s, _ := newTestStore()
		mine := msg("m2", 1)
		mine.SenderID = "me"
		theirs := msg("m1", 2)
		theirs.SenderID = "them"
		s.Set("conv-1", []entity.Message{mine, theirs}, false, "")

		marked := s.MarkAllReadFromOther("conv-1", "me", readAt)
		assert.Equal(t, 1, marked)

		entry, _ := s.Get("conv-1")
		assert.NotNil(t, entry.Messages[0].ReadAt)
		assert.Nil(t, entry.Messages[1].ReadAt)
	})

	t.Run("read state is monotonic", func(t *testing.T) {
		s, _ := newTestStore()
		earlier := readAt.Add(-time.Hour)
		mine := msg("m1", 1)
		mine.SenderID = "me"
		mine.ReadAt = &earlier
		s.Set("conv-1", []entity.Message{mine}, false, "")

		marked := s.MarkAllReadFromOther("conv-1", "me", readAt)
		assert.Equal(t, 0, marked)

		entry, _ := s.Get("conv-1")
		assert.True(t, entry.Messages[0].ReadAt.Equal(earlier))
	})

	t.Run("missing conversation marks nothing", func(t *testing.T) {
		s, _ := newTestStore()
		assert.Equal(t, 0, s.MarkAllReadFromOther("conv-1", "me", readAt))
	})
}

func TestStoreSweep(t *testing.T) {
	t.Run("evicts by access time not fetch time", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-idle", []entity.Message{msg("m1", 0)}, false, "")
		s.Set("conv-busy", []entity.Message{msg("m2", 0)}, false, "")

		// Keep conv-busy accessed while both grow stale by fetch time.
		clock.advance(testMaxAge / 2)
		s.Get("conv-busy")
		clock.advance(testMaxAge/2 + time.Minute)

		assert.Equal(t, 1, s.Sweep())

		_, ok := s.Get("conv-idle")
		assert.False(t, ok)
		_, ok = s.Get("conv-busy")
		assert.True(t, ok)
	})

	t.Run("exactly at max age survives", func(t *testing.T) {
		s, clock := newTestStore()
		s.Set("conv-1", []entity.Message{msg("m1", 0)}, false, "")

		clock.advance(testMaxAge)
		assert.Equal(t, 0, s.Sweep())
	})
}

func TestStoreActiveChat(t *testing.T) {
	s, _ := newTestStore()

	_, ok := s.ActiveChat()
	assert.False(t, ok)

	s.SetActiveChat("conv-1", entity.Participant{ID: "them", Name: "Alex"})
	active, ok := s.ActiveChat()
	require.True(t, ok)
	assert.Equal(t, "conv-1", active.ConversationID)

	s.SetActiveChat("conv-2", entity.Participant{ID: "other"})
	active, _ = s.ActiveChat()
	assert.Equal(t, "conv-2", active.ConversationID)

	s.ClearActiveChat()
	_, ok = s.ActiveChat()
	assert.False(t, ok)
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s, _ := newTestStore()
	s.Set("conv-1", []entity.Message{msg("m1", 1)}, false, "")

	before, _ := s.Get("conv-1")
	s.PrependLive("conv-1", msg("m2", 0))

	assert.Equal(t, []string{"m1"}, ids(before.Messages))

	after, _ := s.Get("conv-1")
	assert.Equal(t, []string{"m2", "m1"}, ids(after.Messages))
}
