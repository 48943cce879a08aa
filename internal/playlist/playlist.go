// Package playlist implements the ordered, repeatable, shuffleable media
// sequence driven by the player orchestration layer.
//
// A Playlist is not synchronized; the owning player context accesses it
// under the orchestrator lock.
package playlist

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Item is one media entry of a playlist.
type Item struct {
	ID       uuid.UUID
	Locator  string
	MimeType string
	Title    string
}

// Playlist holds an ordered list of media entries, the current position
// and the play/repeat policy.
//
// The stored item order (insertion order) never changes except through
// explicit mutations. Under Shuffle, traversal resolves through a lazily
// computed permutation of storage indices; the permutation lives for one
// "shuffle session" and is regenerated when membership changes wholesale
// (Clear, AddAll) or when shuffle is switched on.
type Playlist struct {
	items  []Item
	played []bool
	index  int // storage index of the current item, -1 if none

	playMode   PlayMode
	repeatMode RepeatMode

	order []int // shuffle session permutation, nil outside a session

	onChanged func()
}

// New creates an empty playlist in Continuous/RepeatNone mode.
func New() *Playlist {
	return &Playlist{index: -1}
}

// SetOnChanged installs a hook invoked after every content or mode
// mutation. Traversal (MoveAndGet*) does not fire it.
func (p *Playlist) SetOnChanged(fn func()) {
	p.onChanged = fn
}

func (p *Playlist) notify() {
	if p.onChanged != nil {
		p.onChanged()
	}
}

// Len returns the number of entries.
func (p *Playlist) Len() int { return len(p.items) }

// IsEmpty returns true if the playlist has no entries.
func (p *Playlist) IsEmpty() bool { return len(p.items) == 0 }

// Items returns a copy of the entries in storage order.
func (p *Playlist) Items() []Item {
	result := make([]Item, len(p.items))
	copy(result, p.items)
	return result
}

// ItemListIndex returns the storage index of the current item, -1 if none.
func (p *Playlist) ItemListIndex() int { return p.index }

// Current returns the current item, or nil if none.
func (p *Playlist) Current() *Item {
	if p.index < 0 || p.index >= len(p.items) {
		return nil
	}
	item := p.items[p.index]
	return &item
}

// ItemAt resolves a play-order position to an item. Under Shuffle the
// position goes through the session permutation, not the storage order.
// Returns nil if out of bounds.
func (p *Playlist) ItemAt(pos int) *Item {
	if pos < 0 || pos >= len(p.items) {
		return nil
	}
	idx := pos
	if p.playMode == Shuffle {
		p.ensureOrder()
		idx = p.order[pos]
	}
	item := p.items[idx]
	return &item
}

// PlayMode returns the current play mode.
func (p *Playlist) PlayMode() PlayMode { return p.playMode }

// SetPlayMode switches the play mode. Enabling Shuffle starts a fresh
// shuffle session.
func (p *Playlist) SetPlayMode(mode PlayMode) {
	if p.playMode == mode {
		return
	}
	p.playMode = mode
	p.order = nil
	p.notify()
}

// RepeatMode returns the current repeat mode.
func (p *Playlist) RepeatMode() RepeatMode { return p.repeatMode }

// SetRepeatMode switches the repeat mode.
func (p *Playlist) SetRepeatMode(mode RepeatMode) {
	if p.repeatMode == mode {
		return
	}
	p.repeatMode = mode
	p.notify()
}

// AllPlayed returns true iff every entry has been played and the repeat
// mode is RepeatNone.
func (p *Playlist) AllPlayed() bool {
	if p.repeatMode != RepeatNone || len(p.items) == 0 {
		return false
	}
	for _, done := range p.played {
		if !done {
			return false
		}
	}
	return true
}

// ResetStatus clears all played flags without altering order or the
// current index. Used when a finished playlist is replayed.
func (p *Playlist) ResetStatus() {
	for i := range p.played {
		p.played[i] = false
	}
}

// ensureOrder makes sure a shuffle session permutation exists.
func (p *Playlist) ensureOrder() {
	if p.order != nil && len(p.order) == len(p.items) {
		return
	}
	p.order = rand.Perm(len(p.items))
}

// playOrder returns the traversal sequence: the session permutation under
// Shuffle, the identity order otherwise.
func (p *Playlist) playOrder() []int {
	if p.playMode == Shuffle {
		p.ensureOrder()
		return p.order
	}
	seq := make([]int, len(p.items))
	for i := range seq {
		seq[i] = i
	}
	return seq
}

func (p *Playlist) orderPos(seq []int, storageIndex int) int {
	for pos, idx := range seq {
		if idx == storageIndex {
			return pos
		}
	}
	return -1
}

func (p *Playlist) deliver(storageIndex int) *Item {
	p.index = storageIndex
	p.played[storageIndex] = true
	item := p.items[storageIndex]
	return &item
}

// MoveAndGetNext advances to the next entry of the play order and returns
// it. Returns nil past the end under RepeatNone. Under RepeatOne the
// current entry is returned again and the index never moves.
func (p *Playlist) MoveAndGetNext() *Item {
	if len(p.items) == 0 {
		return nil
	}
	if p.repeatMode == RepeatOne && p.index >= 0 {
		return p.deliver(p.index)
	}
	seq := p.playOrder()
	pos := p.orderPos(seq, p.index) // -1 when nothing was active yet
	pos++
	if pos >= len(seq) {
		if p.repeatMode != RepeatAll {
			return nil
		}
		pos = 0
	}
	return p.deliver(seq[pos])
}

// MoveAndGetPrevious steps back in the play order and returns the entry.
// Returns nil before the start under RepeatNone, wraps to the last entry
// under RepeatAll. Under RepeatOne the current entry is returned again.
func (p *Playlist) MoveAndGetPrevious() *Item {
	if len(p.items) == 0 || p.index < 0 {
		return nil
	}
	if p.repeatMode == RepeatOne {
		return p.deliver(p.index)
	}
	seq := p.playOrder()
	pos := p.orderPos(seq, p.index) - 1
	if pos < 0 {
		if p.repeatMode != RepeatAll {
			return nil
		}
		pos = len(seq) - 1
	}
	return p.deliver(seq[pos])
}

// MoveTo makes the entry at the given storage index current and returns
// it. Returns nil if the index is out of bounds.
func (p *Playlist) MoveTo(storageIndex int) *Item {
	if storageIndex < 0 || storageIndex >= len(p.items) {
		return nil
	}
	return p.deliver(storageIndex)
}

// Add appends entries, keeping the current item and any running shuffle
// session intact: new storage indices are woven into the unvisited part of
// the permutation.
func (p *Playlist) Add(items ...Item) {
	if len(items) == 0 {
		return
	}
	first := len(p.items)
	p.items = append(p.items, items...)
	p.played = append(p.played, make([]bool, len(items))...)
	if p.order != nil {
		curPos := p.orderPos(p.order, p.index)
		for idx := first; idx < len(p.items); idx++ {
			lo := curPos + 1
			at := lo + rand.IntN(len(p.order)-lo+1)
			p.order = append(p.order[:at], append([]int{idx}, p.order[at:]...)...)
		}
	}
	p.notify()
}

// AddAll replaces the whole content with the given entries and resets the
// current index and any shuffle session.
func (p *Playlist) AddAll(items []Item) {
	p.items = append([]Item(nil), items...)
	p.played = make([]bool, len(items))
	p.index = -1
	p.order = nil
	p.notify()
}

// Clear removes all entries and resets position, flags and shuffle
// session.
func (p *Playlist) Clear() {
	p.items = nil
	p.played = nil
	p.index = -1
	p.order = nil
	p.notify()
}

// Remove deletes the entry at the given storage index. The current item
// is preserved when possible; removing the current item moves the index
// to -1 semantics-free: the next MoveAndGetNext continues from the start
// of the remaining order.
func (p *Playlist) Remove(storageIndex int) bool {
	if storageIndex < 0 || storageIndex >= len(p.items) {
		return false
	}
	p.items = append(p.items[:storageIndex], p.items[storageIndex+1:]...)
	p.played = append(p.played[:storageIndex], p.played[storageIndex+1:]...)

	switch {
	case p.index == storageIndex:
		p.index = -1
	case p.index > storageIndex:
		p.index--
	}

	if p.order != nil {
		keep := p.order[:0]
		for _, idx := range p.order {
			if idx == storageIndex {
				continue
			}
			if idx > storageIndex {
				idx--
			}
			keep = append(keep, idx)
		}
		p.order = keep
	}
	p.notify()
	return true
}

// RemoveRange deletes entries in [from, to) by storage index.
func (p *Playlist) RemoveRange(from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(p.items) {
		to = len(p.items)
	}
	for i := to - 1; i >= from; i-- {
		p.Remove(i)
	}
}

// Swap exchanges two entries by storage index. The current item follows
// its entry.
func (p *Playlist) Swap(i, j int) bool {
	if i < 0 || i >= len(p.items) || j < 0 || j >= len(p.items) {
		return false
	}
	if i == j {
		return true
	}
	p.items[i], p.items[j] = p.items[j], p.items[i]
	p.played[i], p.played[j] = p.played[j], p.played[i]
	switch p.index {
	case i:
		p.index = j
	case j:
		p.index = i
	}
	if p.order != nil {
		for pos, idx := range p.order {
			switch idx {
			case i:
				p.order[pos] = j
			case j:
				p.order[pos] = i
			}
		}
	}
	p.notify()
	return true
}

// Insert places an entry at the given storage index, shifting later
// entries. The current item is preserved.
func (p *Playlist) Insert(storageIndex int, item Item) bool {
	if storageIndex < 0 || storageIndex > len(p.items) {
		return false
	}
	p.items = append(p.items[:storageIndex], append([]Item{item}, p.items[storageIndex:]...)...)
	p.played = append(p.played[:storageIndex], append([]bool{false}, p.played[storageIndex:]...)...)
	if p.index >= storageIndex {
		p.index++
	}
	if p.order != nil {
		for pos, idx := range p.order {
			if idx >= storageIndex {
				p.order[pos] = idx + 1
			}
		}
		curPos := p.orderPos(p.order, p.index)
		lo := curPos + 1
		at := lo + rand.IntN(len(p.order)-lo+1)
		p.order = append(p.order[:at], append([]int{storageIndex}, p.order[at:]...)...)
	}
	p.notify()
	return true
}
