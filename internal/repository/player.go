package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/voyokee/Web3Gomoku/internal/entity"
)

// PlayerRepository owns the active-game index: each player identity maps to
// at most one non-finished game id, zero meaning none.
type PlayerRepository interface {
	CurrentGame(ctx context.Context, playerID string) (uint64, error)
	SetCurrentGame(ctx context.Context, playerID string, gameID uint64) error
	ClearCurrentGame(ctx context.Context, playerID string) error
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func (that *dbPlayer) CurrentGame(ctx context.Context, playerID string) (uint64, error) {
	response, err := that.client.Get(ctx, playerKey(playerID)).Result()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get player by ID: %w", err)
	}

	var existingPlayer entity.Player
	if err = json.Unmarshal([]byte(response), &existingPlayer); err != nil {
		return 0, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return existingPlayer.GameID, nil
}

func (that *dbPlayer) SetCurrentGame(ctx context.Context, playerID string, gameID uint64) error {
	player := entity.Player{ID: playerID, GameID: gameID}

	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	err = that.client.Set(ctx, playerKey(playerID), playerJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (that *dbPlayer) ClearCurrentGame(ctx context.Context, playerID string) error {
	return that.SetCurrentGame(ctx, playerID, 0)
}

func playerKey(id string) string {
	return "player:" + id
}
