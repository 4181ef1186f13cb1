package event

import "sync"

// Recorded is a captured event: a type tag plus fields in emission order.
type Recorded struct {
	Type   string
	Fields []any
}

// Recorder captures events in memory. Intended for tests that assert on
// event order and field values.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (that *Recorder) record(eventType string, fields ...any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = append(that.events, Recorded{Type: eventType, Fields: fields})
}

// Events returns a copy of everything recorded so far.
func (that *Recorder) Events() []Recorded {
	that.mu.Lock()
	defer that.mu.Unlock()

	out := make([]Recorded, len(that.events))
	copy(out, that.events)

	return out
}

func (that *Recorder) GameCreated(gameID uint64, creator string, stake uint64) {
	that.record("GameCreated", gameID, creator, stake)
}

func (that *Recorder) GameStarted(gameID uint64, creator, joiner string) {
	that.record("GameStarted", gameID, creator, joiner)
}

func (that *Recorder) MoveMade(gameID uint64, mover string, row, col int) {
	that.record("MoveMade", gameID, mover, row, col)
}

func (that *Recorder) GameEnded(gameID uint64, winner, loser string) {
	that.record("GameEnded", gameID, winner, loser)
}

func (that *Recorder) GameDrawn(gameID uint64) {
	that.record("GameDrawn", gameID)
}
