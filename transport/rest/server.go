package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

func Start(logger *slog.Logger, gameManager GameManager, port string) error {
	handlers := NewHandlers(logger, gameManager)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", handlers.Ping)

	mux.HandleFunc("POST /games", handlers.CreateGame)
	mux.HandleFunc("GET /games/{id}", handlers.GetGame)
	mux.HandleFunc("GET /games/{id}/board", handlers.GetBoard)
	mux.HandleFunc("POST /games/{id}/join", handlers.JoinGame)
	mux.HandleFunc("POST /games/{id}/moves", handlers.MakeMove)
	mux.HandleFunc("POST /games/{id}/forfeit", handlers.Forfeit)
	mux.HandleFunc("POST /games/{id}/timeout-claim", handlers.ClaimWinByTimeout)
	mux.HandleFunc("POST /games/{id}/cancel", handlers.CancelGame)
	mux.HandleFunc("POST /games/{id}/move-count", handlers.SetMoveCount)

	mux.HandleFunc("GET /players/{playerID}/game", handlers.PlayerCurrentGame)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
