package domain

type SessionID string

// Tone steers the rewrite on the casual (0) to formal (100) axis.
type Tone int

const (
	MinTone     Tone = 0
	MaxTone     Tone = 100
	DefaultTone Tone = 50
)

func (t Tone) Valid() bool {
	return t >= MinTone && t <= MaxTone
}

type Direction string

const (
	DirectionUndo Direction = "undo"
	DirectionRedo Direction = "redo"
)

// View is a snapshot of a History taken while the session lock was held.
type View struct {
	Text     string
	Position int // cursor
	Length   int // len(states)
}

func (v View) CanUndo() bool {
	return v.Position > 0
}

func (v View) CanRedo() bool {
	return v.Position < v.Length-1
}
