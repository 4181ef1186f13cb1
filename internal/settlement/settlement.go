package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voyokee/Web3Gomoku/internal/apperror"
	"github.com/voyokee/Web3Gomoku/internal/ledger"
)

var ErrNotAuthorized = errors.New("core identity is not a whitelisted settler")

type playerRepo interface {
	ClearCurrentGame(ctx context.Context, playerID string) error
}

// Controller funnels every escrow movement through one place so a lifecycle
// path can never bypass fund accounting. It also releases the participants'
// active-game bindings in the same step that finalizes a settlement.
type Controller struct {
	logger  *slog.Logger
	vault   ledger.Service
	players playerRepo
	settler string
}

func NewController(logger *slog.Logger, vault ledger.Service, players playerRepo, settler string) *Controller {
	return &Controller{
		logger:  logger.With("component", "settlement"),
		vault:   vault,
		players: players,
		settler: settler,
	}
}

// VerifyAuthorization confirms the core identity is whitelisted by the
// vault. Call once at startup; a failure here is a deployment error.
func (that *Controller) VerifyAuthorization(ctx context.Context) error {
	authorized, err := that.vault.IsAuthorizedSettler(ctx, that.settler)
	if err != nil {
		return fmt.Errorf("failed to check settler authorization: %w", err)
	}

	if !authorized {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, that.settler)
	}

	return nil
}

// CollectStake verifies the player's staged pool contribution covers the
// stake and commits it to the pot.
func (that *Controller) CollectStake(ctx context.Context, player string, stake uint64) error {
	staged, err := that.vault.PoolBalanceOf(ctx, player)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownPlayer) {
			return apperror.ErrInsufficientPool
		}

		return fmt.Errorf("failed to query pool balance: %w", err)
	}

	if staged < stake {
		return apperror.ErrInsufficientPool
	}

	if err = that.vault.MoveStagedToPool(ctx, player, stake); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return apperror.ErrInsufficientPool
		}

		return fmt.Errorf("failed to commit stake: %w", err)
	}

	return nil
}

// PayoutWin pays the full pot to the winner and releases both participants.
func (that *Controller) PayoutWin(ctx context.Context, winner, loser string, stake uint64) error {
	if err := that.vault.MovePoolToPlayer(ctx, winner, 2*stake); err != nil {
		return fmt.Errorf("failed to pay out pot: %w", err)
	}

	return that.release(ctx, winner, loser)
}

// SettleDraw returns each participant's own stake and releases both.
func (that *Controller) SettleDraw(ctx context.Context, creator, joiner string, stake uint64) error {
	if err := that.vault.MovePoolToPlayer(ctx, creator, stake); err != nil {
		return fmt.Errorf("failed to refund creator: %w", err)
	}

	if err := that.vault.MovePoolToPlayer(ctx, joiner, stake); err != nil {
		return fmt.Errorf("failed to refund joiner: %w", err)
	}

	return that.release(ctx, creator, joiner)
}

// RefundStake returns a single stake on cancellation and releases the
// creator.
func (that *Controller) RefundStake(ctx context.Context, player string, stake uint64) error {
	if err := that.vault.MovePoolToPlayer(ctx, player, stake); err != nil {
		return fmt.Errorf("failed to refund stake: %w", err)
	}

	return that.release(ctx, player)
}

func (that *Controller) release(ctx context.Context, players ...string) error {
	for _, player := range players {
		if err := that.players.ClearCurrentGame(ctx, player); err != nil {
			return fmt.Errorf("failed to clear current game for %s: %w", player, err)
		}
	}

	return nil
}
