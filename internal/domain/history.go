package domain

import "slices"

// minHistoryLength keeps room for the current state plus one undo step.
const minHistoryLength = 2

// History is a linear undo/redo log of text snapshots. states[0] starts as
// the empty string and states is never empty. Everything after cursor is
// redo future and is discarded by the next Commit.
//
// History is not safe for concurrent use; callers go through Session.Do.
type History struct {
	states     []string
	cursor     int
	maxLength  int
	generation uint64
}

// NewHistory returns a History holding only the initial empty state.
// maxLength <= 0 means unlimited; positive values below 2 are raised to 2.
func NewHistory(maxLength int) *History {
	if maxLength < 0 {
		maxLength = 0
	}
	if maxLength > 0 && maxLength < minHistoryLength {
		maxLength = minHistoryLength
	}
	return &History{
		states:    []string{""},
		maxLength: maxLength,
	}
}

// Commit drops the redo tail, appends text and moves the cursor onto it.
func (h *History) Commit(text string) View {
	clear(h.states[h.cursor+1:])
	h.states = append(h.states[:h.cursor+1], text)
	h.cursor = len(h.states) - 1
	h.evict()
	return h.View()
}

func (h *History) Undo() (View, error) {
	if h.cursor == 0 {
		return h.View(), &NoHistoryError{Direction: DirectionUndo}
	}
	h.cursor--
	return h.View(), nil
}

func (h *History) Redo() (View, error) {
	if h.cursor == len(h.states)-1 {
		return h.View(), &NoHistoryError{Direction: DirectionRedo}
	}
	h.cursor++
	return h.View(), nil
}

// Reset empties the history in place. It is idempotent apart from the
// generation counter, which moves on every call.
func (h *History) Reset() View {
	clear(h.states)
	h.states = append(h.states[:0], "")
	h.cursor = 0
	h.generation++
	return h.View()
}

func (h *History) Current() string {
	return h.states[h.cursor]
}

func (h *History) View() View {
	return View{
		Text:     h.states[h.cursor],
		Position: h.cursor,
		Length:   len(h.states),
	}
}

func (h *History) Len() int {
	return len(h.states)
}

// Generation counts resets. In-flight transforms compare it to detect a
// reset that happened while the external call was outstanding.
func (h *History) Generation() uint64 {
	return h.generation
}

// evict trims the oldest snapshots once maxLength is exceeded. It only runs
// right after a commit, so the cursor sits on the last state and survives.
func (h *History) evict() {
	if h.maxLength == 0 || len(h.states) <= h.maxLength {
		return
	}
	drop := len(h.states) - h.maxLength
	h.states = slices.Delete(h.states, 0, drop)
	h.cursor -= drop
}
