package event

import "log/slog"

// Emitter surfaces the observable outcome of each accepted lifecycle action.
// Field order matches the external contract and must not be reordered.
type Emitter interface {
	GameCreated(gameID uint64, creator string, stake uint64)
	GameStarted(gameID uint64, creator, joiner string)
	MoveMade(gameID uint64, mover string, row, col int)
	GameEnded(gameID uint64, winner, loser string)
	GameDrawn(gameID uint64)
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{
		logger: logger.With("component", "events"),
	}
}

func (that *LogEmitter) GameCreated(gameID uint64, creator string, stake uint64) {
	that.logger.Info("game created", "id", gameID, "creator", creator, "stake", stake)
}

func (that *LogEmitter) GameStarted(gameID uint64, creator, joiner string) {
	that.logger.Info("game started", "id", gameID, "creator", creator, "joiner", joiner)
}

func (that *LogEmitter) MoveMade(gameID uint64, mover string, row, col int) {
	that.logger.Info("move made", "id", gameID, "mover", mover, "row", row, "col", col)
}

func (that *LogEmitter) GameEnded(gameID uint64, winner, loser string) {
	that.logger.Info("game ended", "id", gameID, "winner", winner, "loser", loser)
}

func (that *LogEmitter) GameDrawn(gameID uint64) {
	that.logger.Info("game drawn", "id", gameID)
}
