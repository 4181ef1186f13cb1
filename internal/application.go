package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voyokee/Web3Gomoku/internal/config"
	"github.com/voyokee/Web3Gomoku/internal/event"
	"github.com/voyokee/Web3Gomoku/internal/ledger"
	"github.com/voyokee/Web3Gomoku/internal/repository"
	"github.com/voyokee/Web3Gomoku/internal/repository/storage"
	"github.com/voyokee/Web3Gomoku/internal/settlement"
	"github.com/voyokee/Web3Gomoku/internal/usecase"
	"github.com/voyokee/Web3Gomoku/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	vault, err := ledger.NewVault(conf.LedgerStoragePath)
	if err != nil {
		return fmt.Errorf("could not open ledger vault: %w", err)
	}

	defer func() {
		if err = vault.Close(); err != nil {
			log.Error("could not close ledger vault", "error", err)
		}
	}()

	if err = vault.Init(ctx); err != nil {
		return fmt.Errorf("could not init ledger vault: %w", err)
	}

	// Whitelisting normally happens at deployment; the bundled vault seeds
	// its own settler so a fresh install is runnable.
	if err = vault.AddSettler(ctx, conf.SettlerID); err != nil {
		return fmt.Errorf("could not whitelist settler: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	gameRepo := repository.NewGameRepository(redisStorage.Connection)

	settlementController := settlement.NewController(logger, vault, playerRepo, conf.SettlerID)
	if err = settlementController.VerifyAuthorization(ctx); err != nil {
		return fmt.Errorf("settler authorization check failed: %w", err)
	}

	emitter := event.NewLogEmitter(logger)
	gameManager := usecase.NewGameManager(
		logger,
		gameRepo,
		playerRepo,
		settlementController,
		emitter,
		conf.TurnTimeout(),
		conf.OperatorID,
	)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(logger, gameManager, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
