package gomoku

import (
	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/entity"
)

// WinLength is the run length that ends the game.
const WinLength = 5

// Outcome is the result of an accepted move.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeWin
	OutcomeDraw
)

// axes covers horizontal, vertical and both diagonals; each is walked in
// both directions from the placed stone.
var axes = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// MakeMove validates and applies a move for the given player, mutating the
// game board, move count and turn. The caller owns status, winner, timestamps
// and settlement.
func MakeMove(game *entity.Game, player string, row, col int) (Outcome, error) {
	if err := validateMove(game, player, row, col); err != nil {
		return OutcomeOngoing, err
	}

	mark := game.MarkOf(player)
	game.Board[row][col] = mark
	game.MoveCount++

	if hasRunAt(&game.Board, row, col, mark) {
		game.Turn = ""
		return OutcomeWin, nil
	}

	if game.MoveCount >= entity.BoardCells {
		game.Turn = ""
		return OutcomeDraw, nil
	}

	game.Turn = game.Opponent(player)

	return OutcomeOngoing, nil
}

// validateMove - checks if the move is valid.
func validateMove(game *entity.Game, player string, row, col int) error {
	if game.Turn != player {
		return apperror.ErrNotYourTurn
	}

	if row < 0 || row >= entity.BoardSize || col < 0 || col >= entity.BoardSize {
		return apperror.ErrOutOfBounds
	}

	if game.Board[row][col] != entity.CellEmpty {
		return apperror.ErrCellOccupied
	}

	return nil
}

// hasRunAt reports whether the stone at (row, col) completes a run of at
// least WinLength. The count extends symmetrically in both directions of
// each axis, so the winning stone may land anywhere inside the run.
func hasRunAt(board *entity.Board, row, col int, mark entity.Cell) bool {
	for _, axis := range axes {
		count := 1

		r, c := row+axis[0], col+axis[1]
		for r >= 0 && r < entity.BoardSize && c >= 0 && c < entity.BoardSize && board[r][c] == mark {
			count++
			r += axis[0]
			c += axis[1]
		}

		r, c = row-axis[0], col-axis[1]
		for r >= 0 && r < entity.BoardSize && c >= 0 && c < entity.BoardSize && board[r][c] == mark {
			count++
			r -= axis[0]
			c -= axis[1]
		}

		if count >= WinLength {
			return true
		}
	}

	return false
}
