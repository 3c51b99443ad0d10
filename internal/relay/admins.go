package relay

import "sort"

// AdminSet is the immutable set of administrator identifiers.
type AdminSet struct {
	ids   map[int64]struct{}
	order []int64
}

// NewAdminSet builds a set from ids, dropping duplicates and non-positive values.
func NewAdminSet(ids ...int64) AdminSet {
	set := AdminSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := set.ids[id]; dup {
			continue
		}
		set.ids[id] = struct{}{}
		set.order = append(set.order, id)
	}
	sort.Slice(set.order, func(i, j int) bool { return set.order[i] < set.order[j] })
	return set
}

// Contains reports whether id is an administrator.
func (a AdminSet) Contains(id int64) bool {
	_, ok := a.ids[id]
	return ok
}

// IDs returns the administrators in ascending order.
func (a AdminSet) IDs() []int64 {
	return append([]int64(nil), a.order...)
}

// Len returns the number of administrators.
func (a AdminSet) Len() int {
	return len(a.order)
}
