package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/entity"
)

const gameCounterKey = "game:counter"

type GameRepository interface {
	NextID(ctx context.Context) (uint64, error)
	Save(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id uint64) (*entity.Game, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

// NextID allocates a new game id. Redis INCR makes the sequence monotonic
// and never reused, even across restarts.
func (that *dbGame) NextID(ctx context.Context) (uint64, error) {
	id, err := that.client.Incr(ctx, gameCounterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate game id: %w", err)
	}

	return uint64(id), nil
}

func (that *dbGame) Save(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	err = that.client.Set(ctx, gameKey(game.ID), gameJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id uint64) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.Game
	if err = json.Unmarshal([]byte(response), &existingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &existingGame, nil
}

func gameKey(id uint64) string {
	return "game:" + strconv.FormatUint(id, 10)
}
