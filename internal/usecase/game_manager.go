package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/entity"
	"github.com/voyokee/Web3Gomoku/internal/event"
	"github.com/voyokee/Web3Gomoku/internal/gomoku"
)

type gameRepo interface {
	NextID(ctx context.Context) (uint64, error)
	Save(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id uint64) (*entity.Game, error)
}

type playerRepo interface {
	CurrentGame(ctx context.Context, playerID string) (uint64, error)
	SetCurrentGame(ctx context.Context, playerID string, gameID uint64) error
}

type settlementController interface {
	CollectStake(ctx context.Context, player string, stake uint64) error
	PayoutWin(ctx context.Context, winner, loser string, stake uint64) error
	SettleDraw(ctx context.Context, creator, joiner string, stake uint64) error
	RefundStake(ctx context.Context, player string, stake uint64) error
}

// GameManager is the lifecycle state machine. Every player and operator
// action runs under one mutex, so actions are totally ordered and each one
// either fully applies or is rejected with a named condition.
type GameManager struct {
	logger *slog.Logger

	mu         sync.Mutex
	gameRepo   gameRepo
	playerRepo playerRepo
	settlement settlementController
	emitter    event.Emitter

	now         func() time.Time
	turnTimeout time.Duration
	operatorID  string
}

func NewGameManager(
	logger *slog.Logger,
	games gameRepo,
	players playerRepo,
	settlement settlementController,
	emitter event.Emitter,
	turnTimeout time.Duration,
	operatorID string,
) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		gameRepo:   games,
		playerRepo: players,
		settlement: settlement,
		emitter:    emitter,

		now:         time.Now,
		turnTimeout: turnTimeout,
		operatorID:  operatorID,
	}
}

// WithClock replaces the time source. Tests use it to drive the turn clock.
func (that *GameManager) WithClock(now func() time.Time) *GameManager {
	that.now = now
	return that
}

// CreateGame opens a new lobby game with the caller as creator. The caller's
// staged pool contribution is committed immediately.
func (that *GameManager) CreateGame(ctx context.Context, caller string, stake uint64) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if stake == 0 {
		return nil, apperror.ErrInvalidStake
	}

	if err := that.confirmNotInGame(ctx, caller); err != nil {
		return nil, err
	}

	if err := that.settlement.CollectStake(ctx, caller, stake); err != nil {
		return nil, err
	}

	id, err := that.gameRepo.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate game id: %w", err)
	}

	game := entity.NewGame(id, caller, stake)
	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if err = that.playerRepo.SetCurrentGame(ctx, caller, id); err != nil {
		return nil, fmt.Errorf("failed to bind creator to game: %w", err)
	}

	that.emitter.GameCreated(id, caller, stake)

	return game, nil
}

// JoinGame fills the second slot of a lobby game and starts it. The creator
// has the first turn and the turn clock starts now.
func (that *GameManager) JoinGame(ctx context.Context, caller string, id uint64) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if game.Creator() == caller {
		return nil, apperror.ErrSelfJoin
	}

	if !game.IsLobby() {
		return nil, apperror.ErrWrongState
	}

	if err = that.confirmNotInGame(ctx, caller); err != nil {
		return nil, err
	}

	if err = that.settlement.CollectStake(ctx, caller, game.Stake); err != nil {
		return nil, err
	}

	game.Start(caller, that.now().Unix())

	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if err = that.playerRepo.SetCurrentGame(ctx, caller, id); err != nil {
		return nil, fmt.Errorf("failed to bind joiner to game: %w", err)
	}

	that.emitter.GameStarted(id, game.Creator(), caller)

	return game, nil
}

// CancelGame lets the creator close a game nobody joined, refunding the
// stake.
func (that *GameManager) CancelGame(ctx context.Context, caller string, id uint64) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if game.Creator() != caller {
		return nil, apperror.ErrNotCreator
	}

	if !game.IsLobby() {
		return nil, apperror.ErrWrongState
	}

	if err = that.settlement.RefundStake(ctx, caller, game.Stake); err != nil {
		return nil, err
	}

	game.Status = entity.StatusFinished
	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	return game, nil
}

// MakeMove places a stone for the caller, then settles immediately if the
// move wins or fills the board.
func (that *GameManager) MakeMove(ctx context.Context, caller string, id uint64, row, col int) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !game.IsInProgress() {
		return nil, apperror.ErrWrongState
	}

	outcome, err := gomoku.MakeMove(game, caller, row, col)
	if err != nil {
		return nil, err
	}

	game.LastMoveAt = that.now().Unix()

	switch outcome {
	case gomoku.OutcomeWin:
		if err = that.finishWithWinner(ctx, game, caller, game.Opponent(caller)); err != nil {
			return nil, err
		}
	case gomoku.OutcomeDraw:
		if err = that.finishDrawn(ctx, game); err != nil {
			return nil, err
		}
	default:
		if err = that.gameRepo.Save(ctx, game); err != nil {
			return nil, fmt.Errorf("failed to save game: %w", err)
		}
	}

	that.emitter.MoveMade(id, caller, row, col)

	switch outcome {
	case gomoku.OutcomeWin:
		that.emitter.GameEnded(id, game.Winner, game.Opponent(game.Winner))
	case gomoku.OutcomeDraw:
		that.emitter.GameDrawn(id)
	}

	return game, nil
}

// ClaimWinByTimeout declares the waiting participant the winner once the
// player to move has been silent past the timeout window. Only the waiting
// player may claim.
func (that *GameManager) ClaimWinByTimeout(ctx context.Context, caller string, id uint64) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !game.IsInProgress() {
		return nil, apperror.ErrWrongState
	}

	if !game.HasPlayer(caller) || game.Turn == caller {
		return nil, apperror.ErrNotAParticipant
	}

	elapsed := that.now().Unix() - game.LastMoveAt
	if elapsed <= int64(that.turnTimeout/time.Second) {
		return nil, apperror.ErrTimeoutNotReached
	}

	stalled := game.Turn
	if err = that.finishWithWinner(ctx, game, caller, stalled); err != nil {
		return nil, err
	}

	that.emitter.GameEnded(id, caller, stalled)

	return game, nil
}

// Forfeit ends the game in favor of the other participant, whoever's turn
// it is.
func (that *GameManager) Forfeit(ctx context.Context, caller string, id uint64) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !game.IsInProgress() {
		return nil, apperror.ErrWrongState
	}

	if !game.HasPlayer(caller) {
		return nil, apperror.ErrNotAParticipant
	}

	winner := game.Opponent(caller)
	if err = that.finishWithWinner(ctx, game, winner, caller); err != nil {
		return nil, err
	}

	that.emitter.GameEnded(id, winner, caller)

	return game, nil
}

// SetMoveCount overrides a game's move counter. Restricted to the operator
// identity; it touches neither the board nor the escrow.
func (that *GameManager) SetMoveCount(ctx context.Context, caller string, id uint64, count int) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if caller != that.operatorID {
		return nil, apperror.ErrNotOwner
	}

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	game.MoveCount = count
	if err = that.gameRepo.Save(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	that.logger.Warn("move count overridden", "id", id, "count", count)

	return game, nil
}

// GetGameDetails returns the full game record.
func (that *GameManager) GetGameDetails(ctx context.Context, id uint64) (*entity.Game, error) {
	return that.gameRepo.GetByID(ctx, id)
}

// GetBoard returns the current board grid.
func (that *GameManager) GetBoard(ctx context.Context, id uint64) (*entity.Board, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &game.Board, nil
}

// PlayerCurrentGame returns the id of the player's active game, zero if
// none.
func (that *GameManager) PlayerCurrentGame(ctx context.Context, playerID string) (uint64, error) {
	return that.playerRepo.CurrentGame(ctx, playerID)
}

func (that *GameManager) confirmNotInGame(ctx context.Context, player string) error {
	current, err := that.playerRepo.CurrentGame(ctx, player)
	if err != nil {
		return fmt.Errorf("failed to look up current game: %w", err)
	}

	if current != 0 {
		return apperror.ErrAlreadyInGame
	}

	return nil
}

// finishWithWinner settles the pot and records the terminal state. The
// ledger movement happens before the state write so a failed transfer
// aborts the whole action.
func (that *GameManager) finishWithWinner(ctx context.Context, game *entity.Game, winner, loser string) error {
	if err := that.settlement.PayoutWin(ctx, winner, loser, game.Stake); err != nil {
		return err
	}

	game.Status = entity.StatusFinished
	game.Winner = winner
	game.Turn = ""

	if err := that.gameRepo.Save(ctx, game); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	return nil
}

func (that *GameManager) finishDrawn(ctx context.Context, game *entity.Game) error {
	if err := that.settlement.SettleDraw(ctx, game.Creator(), game.Joiner(), game.Stake); err != nil {
		return err
	}

	game.Status = entity.StatusFinished
	game.Turn = ""

	if err := that.gameRepo.Save(ctx, game); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}

	return nil
}
