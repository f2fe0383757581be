package models

// Match is a read-only catalog entry.
type Match struct {
	ID       string `json:"id" yaml:"id"`
	HomeTeam string `json:"homeTeam" yaml:"home_team"`
	AwayTeam string `json:"awayTeam" yaml:"away_team"`
	HomeFlag string `json:"homeFlag" yaml:"home_flag"`
	AwayFlag string `json:"awayFlag" yaml:"away_flag"`
	Stadium  string `json:"stadium" yaml:"stadium"`
	Status   string `json:"status" yaml:"status"`
}

// Title renders "Home vs Away".
func (m Match) Title() string {
	return m.HomeTeam + " vs " + m.AwayTeam
}

// MatchState is the scoreboard derived from a match's event history.
type MatchState struct {
	MatchID    string `json:"matchId"`
	Score      Score  `json:"score"`
	Minute     int    `json:"minute"`
	PhaseLabel string `json:"phaseLabel"`
}
