// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

// HistoryCap is the number of undo snapshots kept per session.
const HistoryCap = 10

// History is a bounded undo/redo stack of raw HTML snapshots. The oldest
// snapshot is evicted first once the cap is reached.
type History struct {
	past   []string
	future []string
	cap    int
}

// NewHistory returns an empty history bounded to limit entries. A limit
// below one uses HistoryCap.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = HistoryCap
	}
	return &History{cap: limit}
}

// Push records current as an undo point and discards the redo branch.
func (h *History) Push(current string) {
	h.past = append(h.past, current)
	if len(h.past) > h.cap {
		h.past = h.past[len(h.past)-h.cap:]
	}
	h.future = nil
}

// Undo returns the previous snapshot and moves current onto the redo stack.
// ok is false when there is nothing to undo.
func (h *History) Undo(current string) (prev string, ok bool) {
	if len(h.past) == 0 {
		return "", false
	}
	prev = h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return prev, true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current string) (next string, ok bool) {
	if len(h.future) == 0 {
		return "", false
	}
	next = h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return next, true
}

// CanUndo reports whether Undo would change anything.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would change anything.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (past, future int) { return len(h.past), len(h.future) }
