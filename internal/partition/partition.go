// Package partition maps an ordered participant set onto a bounded number of
// near-equal rooms.
//
// The layout matches the ledger contract's own group assignment bit for bit:
// the first NumLargeGroups rooms hold GroupMinSize+1 members each and are
// filled first, in ordinal order; the remaining NumShortGroups rooms hold
// GroupMinSize members each. Any independent verifier computing room indices
// from the same (n, k) must arrive at the same answer, so none of the
// formulae here may change.
package partition

import "fmt"

// Allocation describes how n participants are spread over k rooms.
// It is an immutable value; all methods are pure.
type Allocation struct {
	participants int
	rooms        int
}

// New returns the allocation of n participants over k rooms.
//
// Panics if k < 1 or n < 0. Both are programming errors: callers validate
// their inputs before allocating.
func New(n, k int) Allocation {
	if k < 1 {
		panic(fmt.Sprintf("partition: room count must be >= 1, got %d", k))
	}
	if n < 0 {
		panic(fmt.Sprintf("partition: participant count must be >= 0, got %d", n))
	}
	return Allocation{participants: n, rooms: k}
}

// Participants returns n.
func (a Allocation) Participants() int { return a.participants }

// Rooms returns k.
func (a Allocation) Rooms() int { return a.rooms }

// GroupMaxSize is ceil(n / k).
func (a Allocation) GroupMaxSize() int {
	return (a.participants + a.rooms - 1) / a.rooms
}

// NumShortGroups is the number of rooms one member smaller than GroupMaxSize.
func (a Allocation) NumShortGroups() int {
	return a.GroupMaxSize()*a.rooms - a.participants
}

// NumLargeGroups is the number of rooms of size GroupMaxSize.
func (a Allocation) NumLargeGroups() int {
	return a.rooms - a.NumShortGroups()
}

// GroupMinSize is GroupMaxSize - 1.
func (a Allocation) GroupMinSize() int {
	return a.GroupMaxSize() - 1
}

// RoomIndexFor returns the room index in [0, k) for the participant with the
// given 0-based ordinal.
//
// Panics if ordinal is outside [0, n).
func (a Allocation) RoomIndexFor(ordinal int) int {
	if ordinal < 0 || ordinal >= a.participants {
		panic(fmt.Sprintf("partition: ordinal %d outside [0, %d)", ordinal, a.participants))
	}

	numLarge := a.NumLargeGroups()
	minSize := a.GroupMinSize()

	membersInLarge := (minSize + 1) * numLarge
	if ordinal < membersInLarge {
		return ordinal / (minSize + 1)
	}
	return numLarge + (ordinal-membersInLarge)/minSize
}

// Sizes returns the member count of every room, indexed by room.
func (a Allocation) Sizes() []int {
	sizes := make([]int, a.rooms)
	for i := 0; i < a.rooms; i++ {
		if i < a.NumLargeGroups() {
			sizes[i] = a.GroupMaxSize()
		} else {
			sizes[i] = a.GroupMinSize()
		}
	}
	return sizes
}

// RoomIndexFor is shorthand for New(n, k).RoomIndexFor(ordinal).
func RoomIndexFor(ordinal, n, k int) int {
	return New(n, k).RoomIndexFor(ordinal)
}
