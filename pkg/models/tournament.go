package models

// TournamentItem is a single bracket entrant in a draft under construction.
type TournamentItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// TournamentDraft is the creation-wizard snapshot: the full in-progress
// tournament definition as the user has assembled it so far.
type TournamentDraft struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Visibility  string           `json:"visibility"`
	Items       []TournamentItem `json:"items"`
}

// MatchResult records one completed match within a round.
type MatchResult struct {
	Round    int    `json:"round"`
	WinnerID string `json:"winnerId"`
	LoserID  string `json:"loserId"`
}

// PlayProgress is the bracket-play snapshot: where the user is in an
// in-progress tournament run.
type PlayProgress struct {
	TournamentID string        `json:"tournamentId"`
	CurrentRound int           `json:"currentRound"`
	TotalRounds  int           `json:"totalRounds"`
	Remaining    []string      `json:"remaining"`
	Selected     []string      `json:"selected"`
	History      []MatchResult `json:"history"`
}
