package entity

const (
	StatusLobby      = "lobby"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

const (
	// BoardSize is the side length of the gomoku grid.
	BoardSize = 15
	// BoardCells is the total number of cells; a game with this many
	// accepted moves and no winner is a draw.
	BoardCells = BoardSize * BoardSize
)

// Cell is the state of a single board cell.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellCreator
	CellJoiner
)

// Board is the full 15x15 grid. Row-major, zero value is an empty board.
type Board [BoardSize][BoardSize]Cell

// Game is the record of a single match. IDs are assigned once, monotonically,
// and never reused. Players[0] is the creator; Players[1] stays empty while
// the game waits in the lobby.
type Game struct {
	ID         uint64    `json:"id"`
	Players    [2]string `json:"players"`
	Stake      uint64    `json:"stake"`
	Status     string    `json:"status"`
	Board      Board     `json:"board"`
	Turn       string    `json:"turn,omitempty"`
	MoveCount  int       `json:"move_count"`
	LastMoveAt int64     `json:"last_move_at"`
	Winner     string    `json:"winner,omitempty"`
}

func NewGame(id uint64, creator string, stake uint64) *Game {
	return &Game{
		ID:      id,
		Players: [2]string{creator, ""},
		Stake:   stake,
		Status:  StatusLobby,
	}
}

func (that *Game) Creator() string {
	return that.Players[0]
}

func (that *Game) Joiner() string {
	return that.Players[1]
}

// Start moves the game out of the lobby. The creator always has the first
// turn; lastMoveAt starts the turn clock for the timeout claim.
func (that *Game) Start(joiner string, lastMoveAt int64) {
	that.Players[1] = joiner
	that.Status = StatusInProgress
	that.Turn = that.Players[0]
	that.LastMoveAt = lastMoveAt
}

func (that *Game) HasPlayer(player string) bool {
	return player != "" && (that.Players[0] == player || that.Players[1] == player)
}

// Opponent returns the other participant, or an empty string if the given
// identity is not a participant.
func (that *Game) Opponent(player string) string {
	switch player {
	case that.Players[0]:
		return that.Players[1]
	case that.Players[1]:
		return that.Players[0]
	default:
		return ""
	}
}

// MarkOf returns the board mark for a participant's slot.
func (that *Game) MarkOf(player string) Cell {
	switch player {
	case that.Players[0]:
		return CellCreator
	case that.Players[1]:
		return CellJoiner
	default:
		return CellEmpty
	}
}

func (that *Game) IsLobby() bool {
	return that.Status == StatusLobby
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}
