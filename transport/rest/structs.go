package rest

type createGameRequest struct {
	Stake uint64 `json:"stake"`
}

type makeMoveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type setMoveCountRequest struct {
	Count int `json:"count"`
}

type currentGameResponse struct {
	GameID uint64 `json:"game_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
