// pkg/core/postmatch.go
package core

import (
	"sort"
	"time"
)

// PlayerRow is one scoreboard line reported when a match ends.
type PlayerRow struct {
	Team    int    `json:"team"`
	Local   bool   `json:"local"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Goals   int    `json:"goals"`
	Assists int    `json:"assists"`
	Saves   int    `json:"saves"`
	Shots   int    `json:"shots"`
	Ping    int    `json:"ping"`
	MVP     bool   `json:"mvp"`
}

// PostMatch holds the final scoreboard of a match.
type PostMatch struct {
	MyScore     int         `json:"myScore"`
	OppScore    int         `json:"oppScore"`
	MyTeamName  string      `json:"myTeamName,omitempty"`
	OppTeamName string      `json:"oppTeamName,omitempty"`
	Playlist    string      `json:"playlist,omitempty"`
	Overtime    bool        `json:"overtime"`
	Players     []PlayerRow `json:"players"`
	Time        time.Time   `json:"time"`
}

// Rank orders players by team, then score descending, then name, and marks
// the top scorer of each team as MVP. Ties share the MVP flag and a team
// where nobody scored has none.
func (p *PostMatch) Rank() {
	sort.SliceStable(p.Players, func(i, j int) bool {
		a, b := p.Players[i], p.Players[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})

	best := map[int]int{}
	for _, row := range p.Players {
		if row.Score > best[row.Team] {
			best[row.Team] = row.Score
		}
	}
	for i := range p.Players {
		row := &p.Players[i]
		row.MVP = row.Score > 0 && row.Score == best[row.Team]
	}
}
