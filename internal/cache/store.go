package cache

import (
	"sync"
	"time"

	"minglr/internal/domain/entity"
	"minglr/pkg/metrics"
)

// Entry holds one conversation's cached messages plus the metadata the
// staleness policy and eviction sweep key off. Messages are newest first.
type Entry struct {
	Messages     []entity.Message
	LastFetched  time.Time
	LastAccessed time.Time
	HasMore      bool
	Cursor       string
}

// ActiveChat marks the conversation currently open in the UI, with the
// participant snapshot used for header rendering and read-receipt targeting.
type ActiveChat struct {
	ConversationID string
	Participant    entity.Participant
}

// Store owns every cache entry. All mutations replace the entry's message
// slice wholesale, so a snapshot returned by Get stays stable while later
// writes install new entries. Generation tokens let async callers detect that
// an entry was replaced or evicted while their fetch was in flight.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	generations map[string]uint64
	active      *ActiveChat
	freshWindow time.Duration
	maxAge      time.Duration
	now         func() time.Time
}

func NewStore(freshWindow, maxAge time.Duration) *Store {
	return &Store{
		entries:     make(map[string]*Entry),
		generations: make(map[string]uint64),
		freshWindow: freshWindow,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

// Stale reports whether an entry needs a background refresh. Pure function:
// callers decide what to do with the answer. Elapsed time exactly equal to
// the fresh window counts as fresh.
func Stale(e *Entry, now time.Time, freshWindow time.Duration) bool {
	if e == nil {
		return true
	}
	return now.Sub(e.LastFetched) > freshWindow
}

// Get returns a snapshot of the entry and touches its access time. It never
// fetches.
func (s *Store) Get(conversationID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		metrics.CacheMisses.Inc()
		return Entry{}, false
	}
	e.LastAccessed = s.now()
	metrics.CacheHits.Inc()
	return *e, true
}

// IsStale reports whether the conversation's history should be refetched.
// Absence is always stale.
func (s *Store) IsStale(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stale(s.entries[conversationID], s.now(), s.freshWindow)
}

// Token returns the conversation's current generation. Results of an async
// fetch started under an older token must not be applied.
func (s *Store) Token(conversationID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[conversationID]
}

// Set replaces the entry wholesale after a full or initial fetch and resets
// both freshness and access time. The generation is bumped so refreshes
// started against the previous entry are discarded.
func (s *Store) Set(conversationID string, messages []entity.Message, hasMore bool, cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deduped := mergeMessages(nil, messages)
	s.entries[conversationID] = &Entry{
		Messages:     deduped,
		LastFetched:  now,
		LastAccessed: now,
		HasMore:      hasMore,
		Cursor:       cursor,
	}
	s.generations[conversationID]++
	metrics.MessagesMerged.Add(float64(len(deduped)))
}

// MergeFetched folds a refresh batch into the existing entry and resets
// freshness. An empty batch is a no-op and does not bump LastFetched. Returns
// false when no entry exists; callers should Set instead.
func (s *Store) MergeFetched(conversationID string, batch []entity.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeFetchedLocked(conversationID, batch)
}

// MergeFetchedIfCurrent applies a refresh only if the generation captured at
// fetch start is still current, dropping results that raced an eviction or a
// wholesale replace.
func (s *Store) MergeFetchedIfCurrent(conversationID string, token uint64, batch []entity.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[conversationID] != token {
		return false
	}
	return s.mergeFetchedLocked(conversationID, batch)
}

func (s *Store) mergeFetchedLocked(conversationID string, batch []entity.Message) bool {
	e, ok := s.entries[conversationID]
	if !ok {
		return false
	}
	now := s.now()
	e.LastAccessed = now
	if len(batch) == 0 {
		return true
	}
	e.Messages = mergeMessages(e.Messages, batch)
	e.LastFetched = now
	metrics.MessagesMerged.Add(float64(len(batch)))
	return true
}

// Append merges a page of strictly older messages onto the tail. Pagination
// does not count as a freshness refresh, so LastFetched is preserved. If the
// entry was evicted while the page was in flight it is recreated with zero
// freshness, forcing a head refetch on next open.
func (s *Store) Append(conversationID string, older []entity.Message, hasMore bool, cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[conversationID]
	if !ok {
		s.entries[conversationID] = &Entry{
			Messages:     mergeMessages(nil, older),
			LastAccessed: now,
			HasMore:      hasMore,
			Cursor:       cursor,
		}
		return
	}
	e.Messages = mergeMessages(e.Messages, older)
	e.LastAccessed = now
	e.HasMore = hasMore
	e.Cursor = cursor
	metrics.MessagesMerged.Add(float64(len(older)))
}

// PrependLive inserts a single message at the newest position. Used for
// socket-pushed messages and optimistic sends. Duplicate ids are ignored.
// A push for an unknown conversation creates an entry with HasMore=true,
// since its history is unknown.
func (s *Store) PrependLive(conversationID string, message entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[conversationID]
	if !ok {
		s.entries[conversationID] = &Entry{
			Messages:     []entity.Message{message},
			LastAccessed: now,
			HasMore:      true,
		}
		return
	}
	e.LastAccessed = now
	for _, m := range e.Messages {
		if m.ID == message.ID {
			return
		}
	}
	next := make([]entity.Message, 0, len(e.Messages)+1)
	next = append(next, message)
	next = append(next, e.Messages...)
	e.Messages = next
}

// ReplaceMessage swaps a provisional message for its confirmed copy in place,
// keeping its position. No-op if oldID is absent. If the confirmed id already
// arrived through the socket, the provisional entry is simply dropped so the
// list never holds both copies.
func (s *Store) ReplaceMessage(conversationID, oldID string, confirmed entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		return
	}
	e.LastAccessed = s.now()

	oldIdx := -1
	confirmedPresent := false
	for i, m := range e.Messages {
		if m.ID == oldID {
			oldIdx = i
		}
		if m.ID == confirmed.ID {
			confirmedPresent = true
		}
	}
	if oldIdx < 0 {
		return
	}

	next := make([]entity.Message, len(e.Messages))
	copy(next, e.Messages)
	if confirmedPresent {
		next = append(next[:oldIdx], next[oldIdx+1:]...)
	} else {
		next[oldIdx] = confirmed
	}
	e.Messages = next
}

// RemoveMessage drops a message by id, rolling back a failed optimistic send.
func (s *Store) RemoveMessage(conversationID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		return
	}
	e.LastAccessed = s.now()

	next := make([]entity.Message, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.ID != messageID {
			next = append(next, m)
		}
	}
	e.Messages = next
}

// MarkAllReadFromOther applies a remote read receipt: every unread message
// authored by senderID (the local user - only outbound messages receive the
// other participant's read mark) gets ReadAt set. Read state is monotonic;
// messages already read are never touched.
func (s *Store) MarkAllReadFromOther(conversationID, senderID string, readAt time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		return 0
	}
	e.LastAccessed = s.now()

	next := make([]entity.Message, len(e.Messages))
	copy(next, e.Messages)
	marked := 0
	for i := range next {
		if next[i].SenderID == senderID && next[i].ReadAt == nil {
			t := readAt
			next[i].ReadAt = &t
			marked++
		}
	}
	if marked > 0 {
		e.Messages = next
	}
	return marked
}

// Sweep evicts every entry not accessed within the max age. The caller owns
// the schedule; this does no network work. Returns the number of evictions.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, e := range s.entries {
		if now.Sub(e.LastAccessed) > s.maxAge {
			delete(s.entries, id)
			s.generations[id]++
			evicted++
		}
	}
	if evicted > 0 {
		metrics.Evictions.Add(float64(evicted))
	}
	return evicted
}

// SetActiveChat marks the conversation currently open in the UI. At most one
// conversation is active at a time.
func (s *Store) SetActiveChat(conversationID string, participant entity.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &ActiveChat{ConversationID: conversationID, Participant: participant}
}

// ClearActiveChat clears the marker unconditionally.
func (s *Store) ClearActiveChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// ActiveChat returns the current marker, if any.
func (s *Store) ActiveChat() (ActiveChat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActiveChat{}, false
	}
	return *s.active, true
}

// Len returns the number of cached conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Conversations returns the ids of all cached conversations.
func (s *Store) Conversations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
