package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/entity"
	"github.com/voyokee/Web3Gomoku/internal/event"
	"github.com/voyokee/Web3Gomoku/internal/ledger"
	"github.com/voyokee/Web3Gomoku/internal/settlement"
)

const (
	testOperator = "operator"
	testStake    = uint64(100)
	testTimeout  = 90 * time.Second
)

type memGameRepo struct {
	counter uint64
	games   map[uint64]*entity.Game
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{games: make(map[uint64]*entity.Game)}
}

func (that *memGameRepo) NextID(_ context.Context) (uint64, error) {
	that.counter++
	return that.counter, nil
}

func (that *memGameRepo) Save(_ context.Context, game *entity.Game) error {
	stored := *game
	that.games[game.ID] = &stored

	return nil
}

func (that *memGameRepo) GetByID(_ context.Context, id uint64) (*entity.Game, error) {
	game, ok := that.games[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	loaded := *game

	return &loaded, nil
}

type memPlayerRepo struct {
	current map[string]uint64
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{current: make(map[string]uint64)}
}

func (that *memPlayerRepo) CurrentGame(_ context.Context, playerID string) (uint64, error) {
	return that.current[playerID], nil
}

func (that *memPlayerRepo) SetCurrentGame(_ context.Context, playerID string, gameID uint64) error {
	that.current[playerID] = gameID
	return nil
}

func (that *memPlayerRepo) ClearCurrentGame(_ context.Context, playerID string) error {
	that.current[playerID] = 0
	return nil
}

type fixture struct {
	ctx      context.Context
	manager  *GameManager
	vault    *ledger.Memory
	games    *memGameRepo
	players  *memPlayerRepo
	recorder *event.Recorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		vault:    ledger.NewMemory(),
		games:    newMemGameRepo(),
		players:  newMemPlayerRepo(),
		recorder: event.NewRecorder(),
		now:      time.Unix(1_700_000_000, 0),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, f.vault.AddSettler(f.ctx, "gomoku-core"))

	controller := settlement.NewController(logger, f.vault, f.players, "gomoku-core")
	f.manager = NewGameManager(logger, f.games, f.players, controller, f.recorder, testTimeout, testOperator).
		WithClock(func() time.Time { return f.now })

	return f
}

func (that *fixture) advance(d time.Duration) {
	that.now = that.now.Add(d)
}

func (that *fixture) fund(t *testing.T, player string, amount uint64) {
	t.Helper()

	require.NoError(t, that.vault.RegisterUser(that.ctx, player))
	require.NoError(t, that.vault.Deposit(that.ctx, player, amount))
	require.NoError(t, that.vault.PushToPool(that.ctx, player, amount))
}

func (that *fixture) balance(t *testing.T, player string) uint64 {
	t.Helper()

	balance, err := that.vault.BalanceOf(that.ctx, player)
	require.NoError(t, err)

	return balance
}

// startedGame funds both players and brings a game to InProgress.
func (that *fixture) startedGame(t *testing.T) *entity.Game {
	t.Helper()

	that.fund(t, "alice", testStake)
	that.fund(t, "bob", testStake)

	game, err := that.manager.CreateGame(that.ctx, "alice", testStake)
	require.NoError(t, err)

	game, err = that.manager.JoinGame(that.ctx, "bob", game.ID)
	require.NoError(t, err)

	return game
}

func TestGameManager_CreateGame(t *testing.T) {
	t.Run("Creates a lobby game and binds the creator", func(t *testing.T) {
		// Given: a funded player
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		// When: the player creates a game
		game, err := f.manager.CreateGame(f.ctx, "alice", testStake)

		// Then: the game waits in the lobby with the stake committed
		require.NoError(t, err)
		assert.Equal(t, uint64(1), game.ID)
		assert.Equal(t, entity.StatusLobby, game.Status)
		assert.Equal(t, "alice", game.Creator())
		assert.Equal(t, testStake, game.Stake)

		current, err := f.manager.PlayerCurrentGame(f.ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, game.ID, current)

		staged, err := f.vault.PoolBalanceOf(f.ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, staged)

		events := f.recorder.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "GameCreated", events[0].Type)
		assert.Equal(t, []any{uint64(1), "alice", testStake}, events[0].Fields)
	})

	t.Run("Assigns monotonically increasing ids", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)
		f.fund(t, "bob", testStake)

		first, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		second, err := f.manager.CreateGame(f.ctx, "bob", testStake)
		require.NoError(t, err)

		assert.Equal(t, first.ID+1, second.ID)
	})

	t.Run("Rejects a zero stake", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.CreateGame(f.ctx, "alice", 0)

		assert.ErrorIs(t, err, apperror.ErrInvalidStake)
	})

	t.Run("Rejects a creator who is already in a game", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", 2*testStake)

		_, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.CreateGame(f.ctx, "alice", testStake)
		assert.ErrorIs(t, err, apperror.ErrAlreadyInGame)
	})

	t.Run("Rejects a creator without enough staged funds", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake/2)

		_, err := f.manager.CreateGame(f.ctx, "alice", testStake)

		assert.ErrorIs(t, err, apperror.ErrInsufficientPool)
	})
}

func TestGameManager_JoinGame(t *testing.T) {
	t.Run("Starts the game with the creator to move", func(t *testing.T) {
		// Given: a lobby game and a funded joiner
		f := newFixture(t)
		f.fund(t, "alice", testStake)
		f.fund(t, "bob", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		// When: the joiner enters
		game, err := f.manager.JoinGame(f.ctx, "bob", created.ID)

		// Then: the game runs, creator first, both stakes committed
		require.NoError(t, err)
		assert.Equal(t, entity.StatusInProgress, game.Status)
		assert.Equal(t, "bob", game.Joiner())
		assert.Equal(t, "alice", game.Turn)
		assert.Equal(t, f.now.Unix(), game.LastMoveAt)

		for _, player := range []string{"alice", "bob"} {
			staged, stagedErr := f.vault.PoolBalanceOf(f.ctx, player)
			require.NoError(t, stagedErr)
			assert.Zero(t, staged)

			current, currentErr := f.manager.PlayerCurrentGame(f.ctx, player)
			require.NoError(t, currentErr)
			assert.Equal(t, game.ID, current)
		}

		pool, err := f.vault.PoolBalance(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, 2*testStake, pool)

		events := f.recorder.Events()
		require.Len(t, events, 2)
		assert.Equal(t, "GameStarted", events[1].Type)
		assert.Equal(t, []any{game.ID, "alice", "bob"}, events[1].Fields)
	})

	t.Run("Rejects a nonexistent game", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.JoinGame(f.ctx, "bob", 999)

		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Rejects the creator joining their own game", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.JoinGame(f.ctx, "alice", created.ID)
		assert.ErrorIs(t, err, apperror.ErrSelfJoin)
	})

	t.Run("Rejects joining a game that already started", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)
		f.fund(t, "carol", testStake)

		_, err := f.manager.JoinGame(f.ctx, "carol", game.ID)

		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})

	t.Run("Rejects a joiner with a short pool contribution", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)
		f.fund(t, "bob", testStake/2)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.JoinGame(f.ctx, "bob", created.ID)
		assert.ErrorIs(t, err, apperror.ErrInsufficientPool)
	})
}

func TestGameManager_MakeMove(t *testing.T) {
	t.Run("Accepts a legal move and refreshes the turn clock", func(t *testing.T) {
		// Given: a running game
		f := newFixture(t)
		game := f.startedGame(t)

		// When: the creator moves after some time passes
		f.advance(30 * time.Second)
		updated, err := f.manager.MakeMove(f.ctx, "alice", game.ID, 7, 7)

		// Then: the stone is placed, the turn flips, the clock resets
		require.NoError(t, err)
		assert.Equal(t, entity.CellCreator, updated.Board[7][7])
		assert.Equal(t, "bob", updated.Turn)
		assert.Equal(t, f.now.Unix(), updated.LastMoveAt)

		events := f.recorder.Events()
		last := events[len(events)-1]
		assert.Equal(t, "MoveMade", last.Type)
		assert.Equal(t, []any{game.ID, "alice", 7, 7}, last.Fields)
	})

	t.Run("Rejects a move on a lobby game", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.MakeMove(f.ctx, "alice", created.ID, 0, 0)
		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})

	t.Run("Rejects a move out of turn", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.MakeMove(f.ctx, "bob", game.ID, 0, 0)

		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Rejects a move on a nonexistent game", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.MakeMove(f.ctx, "alice", 42, 0, 0)

		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Pays the full pot to the winner of five in a row", func(t *testing.T) {
		// Given: a running game where alice builds a top row
		f := newFixture(t)
		game := f.startedGame(t)

		moves := []struct {
			player   string
			row, col int
		}{
			{"alice", 0, 0}, {"bob", 1, 0},
			{"alice", 0, 1}, {"bob", 1, 1},
			{"alice", 0, 2}, {"bob", 1, 2},
			{"alice", 0, 3}, {"bob", 1, 3},
		}
		for _, move := range moves {
			_, err := f.manager.MakeMove(f.ctx, move.player, game.ID, move.row, move.col)
			require.NoError(t, err)
		}

		// When: alice places the fifth stone
		finished, err := f.manager.MakeMove(f.ctx, "alice", game.ID, 0, 4)

		// Then: the game is over and the pot belongs to alice
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, finished.Status)
		assert.Equal(t, "alice", finished.Winner)
		assert.Equal(t, 2*testStake, f.balance(t, "alice"))
		assert.Zero(t, f.balance(t, "bob"))

		for _, player := range []string{"alice", "bob"} {
			current, currentErr := f.manager.PlayerCurrentGame(f.ctx, player)
			require.NoError(t, currentErr)
			assert.Zero(t, current)
		}

		events := f.recorder.Events()
		last := events[len(events)-1]
		assert.Equal(t, "GameEnded", last.Type)
		assert.Equal(t, []any{game.ID, "alice", "bob"}, last.Fields)
	})

	t.Run("Refuses further moves once finished", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.Forfeit(f.ctx, "bob", game.ID)
		require.NoError(t, err)

		_, err = f.manager.MakeMove(f.ctx, "alice", game.ID, 0, 0)
		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})

	t.Run("Returns both stakes when the board fills without a run", func(t *testing.T) {
		// Given: a running game driven near a full board by the operator
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.SetMoveCount(f.ctx, testOperator, game.ID, entity.BoardCells-1)
		require.NoError(t, err)

		// When: the final stone lands without making five
		finished, err := f.manager.MakeMove(f.ctx, "alice", game.ID, 14, 14)

		// Then: the game is drawn and each player gets their stake back
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, finished.Status)
		assert.Empty(t, finished.Winner)
		assert.Equal(t, testStake, f.balance(t, "alice"))
		assert.Equal(t, testStake, f.balance(t, "bob"))

		events := f.recorder.Events()
		last := events[len(events)-1]
		assert.Equal(t, "GameDrawn", last.Type)
		assert.Equal(t, []any{game.ID}, last.Fields)
	})
}

func TestGameManager_ClaimWinByTimeout(t *testing.T) {
	t.Run("Rejects a claim inside the timeout window", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.ClaimWinByTimeout(f.ctx, "bob", game.ID)

		assert.ErrorIs(t, err, apperror.ErrTimeoutNotReached)
	})

	t.Run("Rejects a claim at exactly the threshold", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		f.advance(90 * time.Second)

		_, err := f.manager.ClaimWinByTimeout(f.ctx, "bob", game.ID)
		assert.ErrorIs(t, err, apperror.ErrTimeoutNotReached)
	})

	t.Run("Declares the waiting player winner past the threshold", func(t *testing.T) {
		// Given: alice to move, silent for 91 seconds
		f := newFixture(t)
		game := f.startedGame(t)

		f.advance(91 * time.Second)

		// When: bob claims the win
		finished, err := f.manager.ClaimWinByTimeout(f.ctx, "bob", game.ID)

		// Then: bob takes the pot
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, finished.Status)
		assert.Equal(t, "bob", finished.Winner)
		assert.Equal(t, 2*testStake, f.balance(t, "bob"))
		assert.Zero(t, f.balance(t, "alice"))

		events := f.recorder.Events()
		last := events[len(events)-1]
		assert.Equal(t, "GameEnded", last.Type)
		assert.Equal(t, []any{game.ID, "bob", "alice"}, last.Fields)
	})

	t.Run("The stalled player cannot claim against themselves", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		f.advance(91 * time.Second)

		_, err := f.manager.ClaimWinByTimeout(f.ctx, "alice", game.ID)
		assert.ErrorIs(t, err, apperror.ErrNotAParticipant)
	})

	t.Run("Outsiders cannot claim", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		f.advance(91 * time.Second)

		_, err := f.manager.ClaimWinByTimeout(f.ctx, "mallory", game.ID)
		assert.ErrorIs(t, err, apperror.ErrNotAParticipant)
	})

	t.Run("Rejects a claim on a lobby game", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.ClaimWinByTimeout(f.ctx, "bob", created.ID)
		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})
}

func TestGameManager_Forfeit(t *testing.T) {
	t.Run("Declares the other participant winner whoever moves next", func(t *testing.T) {
		// Given: a running game, alice to move
		f := newFixture(t)
		game := f.startedGame(t)

		// When: alice forfeits on her own turn
		finished, err := f.manager.Forfeit(f.ctx, "alice", game.ID)

		// Then: bob wins the pot
		require.NoError(t, err)
		assert.Equal(t, "bob", finished.Winner)
		assert.Equal(t, 2*testStake, f.balance(t, "bob"))

		events := f.recorder.Events()
		last := events[len(events)-1]
		assert.Equal(t, "GameEnded", last.Type)
		assert.Equal(t, []any{game.ID, "bob", "alice"}, last.Fields)
	})

	t.Run("Works for the player not on turn as well", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		finished, err := f.manager.Forfeit(f.ctx, "bob", game.ID)

		require.NoError(t, err)
		assert.Equal(t, "alice", finished.Winner)
		assert.Equal(t, 2*testStake, f.balance(t, "alice"))
	})

	t.Run("Rejects non-participants", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.Forfeit(f.ctx, "mallory", game.ID)

		assert.ErrorIs(t, err, apperror.ErrNotAParticipant)
	})

	t.Run("Rejects a forfeit on a lobby game", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.Forfeit(f.ctx, "alice", created.ID)
		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})
}

func TestGameManager_CancelGame(t *testing.T) {
	t.Run("Refunds the creator and releases them", func(t *testing.T) {
		// Given: a lobby game
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		// When: the creator cancels
		cancelled, err := f.manager.CancelGame(f.ctx, "alice", created.ID)

		// Then: the stake comes back and the binding is cleared
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, cancelled.Status)
		assert.Empty(t, cancelled.Winner)
		assert.Equal(t, testStake, f.balance(t, "alice"))

		current, err := f.manager.PlayerCurrentGame(f.ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, current)
	})

	t.Run("Rejects a cancel by anyone but the creator", func(t *testing.T) {
		f := newFixture(t)
		f.fund(t, "alice", testStake)

		created, err := f.manager.CreateGame(f.ctx, "alice", testStake)
		require.NoError(t, err)

		_, err = f.manager.CancelGame(f.ctx, "bob", created.ID)
		assert.ErrorIs(t, err, apperror.ErrNotCreator)
	})

	t.Run("Rejects a cancel once the game started", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.CancelGame(f.ctx, "alice", game.ID)

		assert.ErrorIs(t, err, apperror.ErrWrongState)
	})
}

func TestGameManager_SetMoveCount(t *testing.T) {
	t.Run("Rejects any caller but the operator", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.SetMoveCount(f.ctx, "alice", game.ID, 100)

		assert.ErrorIs(t, err, apperror.ErrNotOwner)
	})

	t.Run("Lets the operator override the counter", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		updated, err := f.manager.SetMoveCount(f.ctx, testOperator, game.ID, 100)

		require.NoError(t, err)
		assert.Equal(t, 100, updated.MoveCount)

		// And: the board and balances are untouched
		board, err := f.manager.GetBoard(f.ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.Board{}, *board)
	})
}

func TestGameManager_Queries(t *testing.T) {
	t.Run("GetGameDetails returns the stored record", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		details, err := f.manager.GetGameDetails(f.ctx, game.ID)

		require.NoError(t, err)
		assert.Equal(t, game.ID, details.ID)
		assert.Equal(t, [2]string{"alice", "bob"}, details.Players)
	})

	t.Run("GetBoard reflects played moves", func(t *testing.T) {
		f := newFixture(t)
		game := f.startedGame(t)

		_, err := f.manager.MakeMove(f.ctx, "alice", game.ID, 3, 4)
		require.NoError(t, err)

		board, err := f.manager.GetBoard(f.ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.CellCreator, board[3][4])
	})

	t.Run("Queries on a missing game fail with GameNotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.GetGameDetails(f.ctx, 12345)
		assert.ErrorIs(t, err, apperror.ErrGameNotFound)

		_, err = f.manager.GetBoard(f.ctx, 12345)
		assert.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("PlayerCurrentGame is zero for an unknown player", func(t *testing.T) {
		f := newFixture(t)

		current, err := f.manager.PlayerCurrentGame(f.ctx, "nobody")

		require.NoError(t, err)
		assert.Zero(t, current)
	})
}
