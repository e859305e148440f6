package internal

import "time"

// PlayerView is the public shape of a player sent over the wire.
type PlayerView struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func NewPlayer(id, name string, now time.Time) *Player {
	return &Player{
		Id:          id,
		Name:        name,
		IsConnected: true,
		JoinedAt:    now,
	}
}

func (p *Player) ResetRoundState() {
	p.HasSubmitted = false
}

func (p *Player) ToPublicPlayer() PlayerView {
	return PlayerView{
		Id:    p.Id,
		Name:  p.Name,
		Score: p.Score,
	}
}
