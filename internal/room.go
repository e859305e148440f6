package internal

import (
	"slices"
	"time"
)

// Methods (Room Struct). Callers hold r.Mu.

func NewRoom(code string, now time.Time) *Room {
	return &Room{
		Code:         code,
		Players:      make([]*Player, 0, MaxPlayersPerRoom),
		State:        StateWaiting,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (r *Room) FindPlayer(id string) *Player {
	for _, p := range r.Players {
		if p.Id == id {
			return p
		}
	}
	return nil
}

func (r *Room) RemovePlayer(id string) bool {
	before := len(r.Players)
	r.Players = slices.DeleteFunc(r.Players, func(p *Player) bool { return p.Id == id })
	return len(r.Players) != before
}

func (r *Room) GetPlayerCount() int {
	return len(r.Players)
}

func (r *Room) ConnectedCount() int {
	count := 0
	for _, p := range r.Players {
		if p.IsConnected {
			count++
		}
	}
	return count
}

// AllSubmitted reports whether every connected player has a scored drawing
// for the current round.
func (r *Room) AllSubmitted() bool {
	for _, p := range r.Players {
		if p.IsConnected && !p.HasSubmitted {
			return false
		}
	}
	return true
}

func (r *Room) ResetRoundState() {
	r.Submissions = 0
	for _, p := range r.Players {
		p.ResetRoundState()
	}
}

func (r *Room) PublicPlayers() []PlayerView {
	out := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p.ToPublicPlayer())
	}
	return out
}

func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.Id)
	}
	return ids
}

// RankPlayers stable-sorts the player list in place by score descending and
// returns the resulting standings. Ties keep the previous ranking, which is
// join order until the first round ends.
func (r *Room) RankPlayers() []PlayerView {
	slices.SortStableFunc(r.Players, func(a, b *Player) int {
		return b.Score - a.Score
	})
	return r.PublicPlayers()
}
