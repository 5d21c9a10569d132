package brushd

import "golang.org/x/exp/constraints"

// A slotList stores values in a contiguous slice addressed by stable integer
// handles. Freed slots are recycled by later allocations.
//
// Pointers returned by Get are only valid until the next Alloc.
type slotList[ID constraints.Integer, T any] struct {
	items []T
	alive []bool
	free  []ID
	count int
}

func (s *slotList[ID, T]) Alloc(x T) ID {
	s.count++
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		s.items[id] = x
		s.alive[id] = true
		return id
	}
	s.items = append(s.items, x)
	s.alive = append(s.alive, true)
	return ID(len(s.items) - 1)
}

func (s *slotList[ID, T]) Free(id ID) {
	if !s.Alive(id) {
		panic("double free of slot")
	}
	var zero T
	s.items[id] = zero
	s.alive[id] = false
	s.free = append(s.free, id)
	s.count--
}

func (s *slotList[ID, T]) Get(id ID) *T {
	if !s.Alive(id) {
		panic("access to freed slot")
	}
	return &s.items[id]
}

func (s *slotList[ID, T]) Alive(id ID) bool {
	return id >= 0 && int(id) < len(s.alive) && s.alive[id]
}

func (s *slotList[ID, T]) Len() int {
	return s.count
}

// IDs lists the live handles in increasing order.
//
// The result is a snapshot, so it is safe to free slots while iterating it.
func (s *slotList[ID, T]) IDs() []ID {
	res := make([]ID, 0, s.count)
	for i, a := range s.alive {
		if a {
			res = append(res, ID(i))
		}
	}
	return res
}

func (s *slotList[ID, T]) Clear() {
	s.items = s.items[:0]
	s.alive = s.alive[:0]
	s.free = s.free[:0]
	s.count = 0
}

func (s *slotList[ID, T]) Clone() slotList[ID, T] {
	return slotList[ID, T]{
		items: append([]T{}, s.items...),
		alive: append([]bool{}, s.alive...),
		free:  append([]ID{}, s.free...),
		count: s.count,
	}
}
