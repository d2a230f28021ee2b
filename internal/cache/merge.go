package cache

import (
	"sort"

	"minglr/internal/domain/entity"
)

// mergeMessages combines an existing newest-first list with an incoming batch
// into a new list that is the union by id, sorted newest-first with ties kept
// in insertion order. On an id collision the incoming copy wins for ReadAt,
// the only field that changes after creation; immutable fields are assumed
// identical between copies. Provisional ids are never folded into confirmed
// ones here - that substitution happens only through ReplaceMessage.
func mergeMessages(existing, incoming []entity.Message) []entity.Message {
	if len(incoming) == 0 {
		return existing
	}

	merged := make([]entity.Message, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.ID] = i
	}

	for _, in := range incoming {
		if i, ok := index[in.ID]; ok {
			merged[i].ReadAt = in.ReadAt
			continue
		}
		index[in.ID] = len(merged)
		merged = append(merged, in)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged
}
