package entity

// Player tracks the single non-finished game an identity is bound to.
// GameID is zero when the player is free to create or join a game.
type Player struct {
	ID     string `json:"id"`
	GameID uint64 `json:"game_id,omitempty"`
}
