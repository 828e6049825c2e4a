package grid

import "github.com/gusesba/renova-web/internal/remote"

// Expansion is the set of expanded rows. Toggle keeps it to at most one
// entry.
type Expansion map[string]bool

// Toggle returns the expansion after the user clicks row id: the row opens
// alone, or everything closes when it was the open one.
func (e Expansion) Toggle(id string) Expansion {
	if e[id] {
		return Expansion{}
	}
	return Expansion{id: true}
}

// ID returns the expanded row, or "".
func (e Expansion) ID() string {
	for id, open := range e {
		if open {
			return id
		}
	}
	return ""
}

// nextSort advances key through none, asc and desc. Any other column's sort
// is replaced.
func nextSort(cur *remote.Sort, key string) *remote.Sort {
	switch {
	case cur == nil || cur.Field != key:
		return &remote.Sort{Field: key, Direction: remote.Asc}
	case cur.Direction == remote.Asc:
		return &remote.Sort{Field: key, Direction: remote.Desc}
	default:
		return nil
	}
}
