package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/entity"
)

// playerHeader carries the caller identity. The surface is trusted: the
// deployment in front of it is responsible for authenticating players.
const playerHeader = "X-Player-ID"

type GameManager interface {
	CreateGame(ctx context.Context, caller string, stake uint64) (*entity.Game, error)
	JoinGame(ctx context.Context, caller string, id uint64) (*entity.Game, error)
	CancelGame(ctx context.Context, caller string, id uint64) (*entity.Game, error)
	MakeMove(ctx context.Context, caller string, id uint64, row, col int) (*entity.Game, error)
	ClaimWinByTimeout(ctx context.Context, caller string, id uint64) (*entity.Game, error)
	Forfeit(ctx context.Context, caller string, id uint64) (*entity.Game, error)
	SetMoveCount(ctx context.Context, caller string, id uint64, count int) (*entity.Game, error)

	GetGameDetails(ctx context.Context, id uint64) (*entity.Game, error)
	GetBoard(ctx context.Context, id uint64) (*entity.Board, error)
	PlayerCurrentGame(ctx context.Context, playerID string) (uint64, error)
}

type Handlers struct {
	logger      *slog.Logger
	gameManager GameManager
}

func NewHandlers(logger *slog.Logger, gameManager GameManager) *Handlers {
	return &Handlers{
		logger:      logger.With("component", "rest"),
		gameManager: gameManager,
	}
}

func (that *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	caller, ok := that.caller(w, r)
	if !ok {
		return
	}

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	game, err := that.gameManager.CreateGame(r.Context(), caller, req.Stake)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, game)
}

func (that *Handlers) JoinGame(w http.ResponseWriter, r *http.Request) {
	that.gameAction(w, r, that.gameManager.JoinGame)
}

func (that *Handlers) CancelGame(w http.ResponseWriter, r *http.Request) {
	that.gameAction(w, r, that.gameManager.CancelGame)
}

func (that *Handlers) Forfeit(w http.ResponseWriter, r *http.Request) {
	that.gameAction(w, r, that.gameManager.Forfeit)
}

func (that *Handlers) ClaimWinByTimeout(w http.ResponseWriter, r *http.Request) {
	that.gameAction(w, r, that.gameManager.ClaimWinByTimeout)
}

func (that *Handlers) MakeMove(w http.ResponseWriter, r *http.Request) {
	caller, ok := that.caller(w, r)
	if !ok {
		return
	}

	id, ok := that.gameID(w, r)
	if !ok {
		return
	}

	var req makeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	game, err := that.gameManager.MakeMove(r.Context(), caller, id, req.Row, req.Col)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Handlers) SetMoveCount(w http.ResponseWriter, r *http.Request) {
	caller, ok := that.caller(w, r)
	if !ok {
		return
	}

	id, ok := that.gameID(w, r)
	if !ok {
		return
	}

	var req setMoveCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	game, err := that.gameManager.SetMoveCount(r.Context(), caller, id, req.Count)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := that.gameID(w, r)
	if !ok {
		return
	}

	game, err := that.gameManager.GetGameDetails(r.Context(), id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Handlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := that.gameID(w, r)
	if !ok {
		return
	}

	board, err := that.gameManager.GetBoard(r.Context(), id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, board)
}

func (that *Handlers) PlayerCurrentGame(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("playerID")
	if playerID == "" {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "player id is required"})
		return
	}

	gameID, err := that.gameManager.PlayerCurrentGame(r.Context(), playerID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, currentGameResponse{GameID: gameID})
}

// gameAction handles the actions that need only a caller and a game id.
func (that *Handlers) gameAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, caller string, id uint64) (*entity.Game, error),
) {
	caller, ok := that.caller(w, r)
	if !ok {
		return
	}

	id, ok := that.gameID(w, r)
	if !ok {
		return
	}

	game, err := action(r.Context(), caller, id)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *Handlers) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(playerHeader)
	if caller == "" {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + playerHeader + " header"})
		return "", false
	}

	return caller, true
}

func (that *Handlers) gameID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid game id"})
		return 0, false
	}

	return id, true
}

func (that *Handlers) writeError(w http.ResponseWriter, err error) {
	that.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidStake),
		errors.Is(err, apperror.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotOwner),
		errors.Is(err, apperror.ErrNotCreator),
		errors.Is(err, apperror.ErrNotAParticipant),
		errors.Is(err, apperror.ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrInsufficientPool):
		return http.StatusPaymentRequired
	case errors.Is(err, apperror.ErrWrongState),
		errors.Is(err, apperror.ErrAlreadyInGame),
		errors.Is(err, apperror.ErrSelfJoin),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrTimeoutNotReached):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
