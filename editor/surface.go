package editor

import (
	"strings"
	"unicode/utf8"
)

// Position is a 1-based line/column location in a document. Columns count
// runes, so column 1 is before the first character of a line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is a span between two positions. A range whose Start equals its End
// is empty and marks a cursor.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// IsEmpty reports whether the range covers no text.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Normalized returns the range with Start before End.
func (r Range) Normalized() Range {
	if r.End.Before(r.Start) {
		return Range{Start: r.End, End: r.Start}
	}
	return r
}

// Surface is the read side of an editor widget.
type Surface interface {
	GetValue() string
	GetSelection() Range
	GetValueInRange(r Range) string
}

// Snapshot is a copy of the editor state taken when a prompt is built.
type Snapshot struct {
	FullText         string   `json:"full_text"`
	Selection        Range    `json:"selection"`
	SelectedText     string   `json:"selected_text,omitempty"`
	Cursor           Position `json:"cursor"`
	TextBeforeCursor string   `json:"text_before_cursor"`
	TextAfterCursor  string   `json:"text_after_cursor"`
}

// Snapshotter is implemented by surfaces that can copy their state in one
// step.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Take copies the state of s. The cursor is the end of the current selection.
// Surfaces that implement Snapshotter are read atomically; others are read
// field by field.
func Take(s Surface) Snapshot {
	if ss, ok := s.(Snapshotter); ok {
		return ss.Snapshot()
	}
	return snapshotOf(s.GetValue(), s.GetSelection())
}

func snapshotOf(full string, sel Range) Snapshot {
	cursor := sel.End
	snap := Snapshot{
		FullText:         full,
		Selection:        sel,
		Cursor:           cursor,
		TextBeforeCursor: Slice(full, Range{Start: Position{Line: 1, Column: 1}, End: cursor}),
		TextAfterCursor:  Slice(full, Range{Start: cursor, End: EndPosition(full)}),
	}
	if !sel.IsEmpty() {
		snap.SelectedText = Slice(full, sel)
	}
	return snap
}

// EndPosition returns the position after the last character of text.
func EndPosition(text string) Position {
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	return Position{Line: len(lines), Column: utf8.RuneCountInString(last) + 1}
}

// Offset converts p into a byte offset into text, clamping positions that
// fall outside the document.
func Offset(text string, p Position) int {
	if p.Line < 1 {
		return 0
	}
	line := 1
	lineStart := 0
	for line < p.Line {
		idx := strings.IndexByte(text[lineStart:], '\n')
		if idx < 0 {
			return len(text)
		}
		lineStart += idx + 1
		line++
	}
	lineEnd := len(text)
	if idx := strings.IndexByte(text[lineStart:], '\n'); idx >= 0 {
		lineEnd = lineStart + idx
	}
	off := lineStart
	for col := 1; col < p.Column && off < lineEnd; col++ {
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return off
}

// Slice returns the text covered by r.
func Slice(text string, r Range) string {
	r = r.Normalized()
	start := Offset(text, r.Start)
	end := Offset(text, r.End)
	if end < start {
		return ""
	}
	return text[start:end]
}
