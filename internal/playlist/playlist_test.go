package playlist

import (
	"fmt"
	"testing"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Locator: fmt.Sprintf("/track%d.mp3", i), Title: fmt.Sprintf("Track %d", i)}
	}
	return items
}

func TestNew(t *testing.T) {
	p := New()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if p.ItemListIndex() != -1 {
		t.Errorf("ItemListIndex() = %d, want -1", p.ItemListIndex())
	}
	if p.Current() != nil {
		t.Error("Current() should be nil on empty playlist")
	}
	if p.PlayMode() != Continuous {
		t.Errorf("PlayMode() = %v, want Continuous", p.PlayMode())
	}
	if p.RepeatMode() != RepeatNone {
		t.Errorf("RepeatMode() = %v, want RepeatNone", p.RepeatMode())
	}
}

func TestMoveAndGetNext_Sequential(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))

	for i := 0; i < 3; i++ {
		item := p.MoveAndGetNext()
		if item == nil {
			t.Fatalf("MoveAndGetNext() #%d = nil, want item", i)
		}
		if item.Title != fmt.Sprintf("Track %d", i) {
			t.Errorf("item.Title = %q, want Track %d", item.Title, i)
		}
		if p.ItemListIndex() != i {
			t.Errorf("ItemListIndex() = %d, want %d", p.ItemListIndex(), i)
		}
	}
}

func TestMoveAndGetNext_ExhaustionSetsAllPlayed(t *testing.T) {
	p := New()
	p.AddAll(makeItems(4))

	for i := 0; i < 4; i++ {
		if p.MoveAndGetNext() == nil {
			t.Fatalf("MoveAndGetNext() #%d = nil before exhaustion", i)
		}
		if i < 3 && p.AllPlayed() {
			t.Errorf("AllPlayed() = true after %d of 4 items", i+1)
		}
	}

	if p.MoveAndGetNext() != nil {
		t.Error("MoveAndGetNext() past the end should return nil under RepeatNone")
	}
	if !p.AllPlayed() {
		t.Error("AllPlayed() = false after playing every item")
	}
}

func TestMoveAndGetNext_RepeatAll_Wraps(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.SetRepeatMode(RepeatAll)

	for i := 0; i < 3; i++ {
		p.MoveAndGetNext()
	}

	item := p.MoveAndGetNext()
	if item == nil {
		t.Fatal("MoveAndGetNext() should wrap under RepeatAll")
	}
	if p.ItemListIndex() != 0 {
		t.Errorf("ItemListIndex() = %d, want 0 after wrap", p.ItemListIndex())
	}
	if p.AllPlayed() {
		t.Error("AllPlayed() should stay false under RepeatAll")
	}
}

func TestMoveAndGetNext_RepeatOne_IndexFixed(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.SetRepeatMode(RepeatOne)

	first := p.MoveAndGetNext()
	if first == nil {
		t.Fatal("first MoveAndGetNext() = nil")
	}
	for i := 0; i < 5; i++ {
		item := p.MoveAndGetNext()
		if item == nil {
			t.Fatal("MoveAndGetNext() = nil under RepeatOne")
		}
		if item.Locator != first.Locator {
			t.Errorf("item = %q, want %q (RepeatOne must not advance)", item.Locator, first.Locator)
		}
		if p.ItemListIndex() != 0 {
			t.Errorf("ItemListIndex() = %d, want 0", p.ItemListIndex())
		}
	}
}

func TestMoveAndGetPrevious(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))

	if p.MoveAndGetPrevious() != nil {
		t.Error("MoveAndGetPrevious() before any playback should be nil")
	}

	p.MoveAndGetNext()
	p.MoveAndGetNext()

	item := p.MoveAndGetPrevious()
	if item == nil || p.ItemListIndex() != 0 {
		t.Fatalf("MoveAndGetPrevious() index = %d, want 0", p.ItemListIndex())
	}

	if p.MoveAndGetPrevious() != nil {
		t.Error("MoveAndGetPrevious() before the start should be nil under RepeatNone")
	}
}

func TestMoveAndGetPrevious_RepeatAll_WrapsToEnd(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.SetRepeatMode(RepeatAll)

	p.MoveAndGetNext() // index 0

	item := p.MoveAndGetPrevious()
	if item == nil {
		t.Fatal("MoveAndGetPrevious() should wrap under RepeatAll")
	}
	if p.ItemListIndex() != 2 {
		t.Errorf("ItemListIndex() = %d, want 2 after wrap", p.ItemListIndex())
	}
}

func TestShuffle_PermutationCoversAllItems(t *testing.T) {
	p := New()
	p.AddAll(makeItems(10))
	p.SetPlayMode(Shuffle)

	seen := make(map[string]int)
	for {
		item := p.MoveAndGetNext()
		if item == nil {
			break
		}
		seen[item.Locator]++
		if len(seen) > 10 {
			t.Fatal("shuffle traversal did not terminate")
		}
	}

	if len(seen) != 10 {
		t.Fatalf("shuffle played %d distinct items, want 10", len(seen))
	}
	for loc, n := range seen {
		if n != 1 {
			t.Errorf("item %s played %d times, want 1", loc, n)
		}
	}
	if !p.AllPlayed() {
		t.Error("AllPlayed() = false after a full shuffle pass")
	}
}

func TestShuffle_SessionStableAcrossTraversal(t *testing.T) {
	p := New()
	p.AddAll(makeItems(6))
	p.SetPlayMode(Shuffle)

	// Walk forward then backward; the same permutation must be used.
	var forward []string
	for i := 0; i < 4; i++ {
		forward = append(forward, p.MoveAndGetNext().Locator)
	}
	for i := 2; i >= 0; i-- {
		item := p.MoveAndGetPrevious()
		if item.Locator != forward[i] {
			t.Errorf("backward walk got %q, want %q", item.Locator, forward[i])
		}
	}
}

func TestShuffle_AddAllStartsNewSession(t *testing.T) {
	p := New()
	p.AddAll(makeItems(5))
	p.SetPlayMode(Shuffle)
	p.MoveAndGetNext()

	p.AddAll(makeItems(5))
	if p.ItemListIndex() != -1 {
		t.Errorf("ItemListIndex() = %d, want -1 after AddAll", p.ItemListIndex())
	}

	seen := make(map[string]bool)
	for {
		item := p.MoveAndGetNext()
		if item == nil {
			break
		}
		seen[item.Locator] = true
	}
	if len(seen) != 5 {
		t.Errorf("new session played %d distinct items, want 5", len(seen))
	}
}

func TestShuffle_AddKeepsCurrentItem(t *testing.T) {
	p := New()
	p.AddAll(makeItems(4))
	p.SetPlayMode(Shuffle)

	current := p.MoveAndGetNext()
	p.Add(Item{Locator: "/late.mp3"})

	if got := p.Current(); got == nil || got.Locator != current.Locator {
		t.Errorf("Current() changed after Add: got %v, want %q", got, current.Locator)
	}

	// The added item must still be reachable in the remaining traversal.
	found := false
	for {
		item := p.MoveAndGetNext()
		if item == nil {
			break
		}
		if item.Locator == "/late.mp3" {
			found = true
		}
	}
	if !found {
		t.Error("added item never delivered in the running shuffle session")
	}
}

func TestResetStatus(t *testing.T) {
	p := New()
	p.AddAll(makeItems(2))
	p.MoveAndGetNext()
	p.MoveAndGetNext()

	if !p.AllPlayed() {
		t.Fatal("AllPlayed() = false, setup broken")
	}

	idx := p.ItemListIndex()
	p.ResetStatus()

	if p.AllPlayed() {
		t.Error("AllPlayed() = true after ResetStatus")
	}
	if p.ItemListIndex() != idx {
		t.Errorf("ItemListIndex() = %d, want %d (ResetStatus must not move)", p.ItemListIndex(), idx)
	}
}

func TestRemove_BeforeCurrent_ReindexesCurrent(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveTo(2)

	p.Remove(0)

	if p.ItemListIndex() != 1 {
		t.Errorf("ItemListIndex() = %d, want 1", p.ItemListIndex())
	}
	if got := p.Current(); got == nil || got.Title != "Track 2" {
		t.Errorf("Current() = %v, want Track 2", got)
	}
}

func TestRemove_AfterCurrent_NoOpOnIndex(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveTo(0)

	p.Remove(2)

	if p.ItemListIndex() != 0 {
		t.Errorf("ItemListIndex() = %d, want 0", p.ItemListIndex())
	}
}

func TestRemove_Current(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveTo(1)

	p.Remove(1)

	if p.ItemListIndex() != -1 {
		t.Errorf("ItemListIndex() = %d, want -1", p.ItemListIndex())
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestRemove_OutOfBounds(t *testing.T) {
	p := New()
	p.AddAll(makeItems(1))

	if p.Remove(5) {
		t.Error("Remove(5) should return false")
	}
	if p.Remove(-1) {
		t.Error("Remove(-1) should return false")
	}
}

func TestRemoveRange(t *testing.T) {
	p := New()
	p.AddAll(makeItems(5))
	p.MoveTo(4)

	p.RemoveRange(1, 3)

	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	if got := p.Current(); got == nil || got.Title != "Track 4" {
		t.Errorf("Current() = %v, want Track 4", got)
	}
}

func TestSwap_CurrentFollowsItem(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveTo(0)

	p.Swap(0, 2)

	if p.ItemListIndex() != 2 {
		t.Errorf("ItemListIndex() = %d, want 2", p.ItemListIndex())
	}
	if got := p.Current(); got == nil || got.Title != "Track 0" {
		t.Errorf("Current() = %v, want Track 0", got)
	}
}

func TestInsert_ShiftsCurrent(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveTo(1)

	p.Insert(0, Item{Locator: "/new.mp3", Title: "New"})

	if p.ItemListIndex() != 2 {
		t.Errorf("ItemListIndex() = %d, want 2", p.ItemListIndex())
	}
	if got := p.Current(); got == nil || got.Title != "Track 1" {
		t.Errorf("Current() = %v, want Track 1", got)
	}
	if items := p.Items(); items[0].Title != "New" {
		t.Errorf("items[0].Title = %q, want New", items[0].Title)
	}
}

func TestItemAt_ContinuousIsStorageOrder(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))

	for i := 0; i < 3; i++ {
		item := p.ItemAt(i)
		if item == nil || item.Title != fmt.Sprintf("Track %d", i) {
			t.Errorf("ItemAt(%d) = %v, want Track %d", i, item, i)
		}
	}
	if p.ItemAt(3) != nil {
		t.Error("ItemAt(3) should be nil")
	}
}

func TestItemAt_ShuffleResolvesThroughPermutation(t *testing.T) {
	p := New()
	p.AddAll(makeItems(8))
	p.SetPlayMode(Shuffle)

	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		item := p.ItemAt(i)
		if item == nil {
			t.Fatalf("ItemAt(%d) = nil", i)
		}
		seen[item.Locator] = true
	}
	if len(seen) != 8 {
		t.Errorf("ItemAt positions covered %d distinct items, want 8", len(seen))
	}
}

func TestOnChanged_FiredOnMutationsNotTraversal(t *testing.T) {
	p := New()
	calls := 0
	p.SetOnChanged(func() { calls++ })

	p.AddAll(makeItems(3)) // 1
	p.MoveAndGetNext()
	p.MoveAndGetNext()
	if calls != 1 {
		t.Errorf("calls = %d after traversal, want 1", calls)
	}

	p.Add(Item{Locator: "/x.mp3"}) // 2
	p.SetRepeatMode(RepeatAll)     // 3
	p.SetPlayMode(Shuffle)         // 4
	p.Remove(0)                    // 5
	p.Clear()                      // 6
	if calls != 6 {
		t.Errorf("calls = %d, want 6", calls)
	}
}

func TestClear(t *testing.T) {
	p := New()
	p.AddAll(makeItems(3))
	p.MoveAndGetNext()

	p.Clear()

	if !p.IsEmpty() {
		t.Error("IsEmpty() = false after Clear")
	}
	if p.ItemListIndex() != -1 {
		t.Errorf("ItemListIndex() = %d, want -1", p.ItemListIndex())
	}
	if p.MoveAndGetNext() != nil {
		t.Error("MoveAndGetNext() on cleared playlist should be nil")
	}
}
