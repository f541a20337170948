package sqldb

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/repokit/pkg/schema"
)

// chunks yields consecutive slices of s holding at most n elements.
func chunks[T any](s []T, n int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for start := 0; start < len(s); start += n {
			if !yield(s[start:min(start+n, len(s))]) {
				return
			}
		}
	}
}

func anySlice(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// distinct drops repeated ids, keeping first occurrences in order.
func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// missing returns the ids absent from found, in request order.
func missing[R schema.Model](ids []uuid.UUID, found []R) []uuid.UUID {
	have := make(map[uuid.UUID]bool, len(found))
	for _, m := range found {
		have[m.ModelID()] = true
	}
	var out []uuid.UUID
	for _, id := range ids {
		if !have[id] {
			out = append(out, id)
		}
	}
	return out
}

// inOrder arranges models to follow ids; repeated ids repeat their model.
func inOrder[R schema.Model](ids []uuid.UUID, models []R) ([]R, error) {
	byID := make(map[uuid.UUID]R, len(models))
	for _, m := range models {
		byID[m.ModelID()] = m
	}
	out := make([]R, len(ids))
	for i, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("model %s vanished inside its unit of work", id)
		}
		out[i] = m
	}
	return out, nil
}
