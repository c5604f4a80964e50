package main

// Messages coming from clients. One struct covers every action type,
// matching on Type; unused fields stay empty.
type ClientMessage struct {
	Type       string `json:"type"`                  // "join", "set_info", "new_session", "subscribe", "ready", "guess", "continue_vote"
	PlayerID   string `json:"player_id,omitempty"`   // join (verified against the connection)
	PlayerName string `json:"player_name,omitempty"` // join / set_info / subscribe
	Mood       string `json:"mood,omitempty"`        // set_info
	SessionID  string `json:"session_id,omitempty"`  // subscribe / ready / guess / continue_vote
	Ready      *bool  `json:"ready,omitempty"`       // ready (lobby or reveal, by phase)
	Guess      string `json:"guess,omitempty"`       // guess
	Continue   *bool  `json:"continue,omitempty"`    // continue_vote
}

// PlayerSnapshot is one roster entry in lounge and session broadcasts.
type PlayerSnapshot struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Mood     string `json:"mood"`
}

// LoungeMessage is the waiting-area roster, sent to every lounging
// player whenever the lounge changes.
type LoungeMessage struct {
	Type     string           `json:"type"` // "lounge"
	Players  []PlayerSnapshot `json:"players"`
	Sessions []string         `json:"sessions"` // joinable session ids
}

// MemberChangeMessage is the per-session membership snapshot.
type MemberChangeMessage struct {
	Type      string           `json:"type"` // "member_change"
	SessionID string           `json:"session_id"`
	Players   []PlayerSnapshot `json:"players"`
}

// SessionCreatedMessage tells the creating client which id it was dealt.
type SessionCreatedMessage struct {
	Type      string `json:"type"` // "session_created"
	SessionID string `json:"session_id"`
}

// PlayerFlag pairs a player with a boolean (ready, has-guessed, ...).
type PlayerFlag struct {
	PlayerID string `json:"player_id"`
	Flag     bool   `json:"flag"`
}

// LobbyStateMessage reports pre-game ready votes and, once a quorum has
// readied up, the remaining countdown.
type LobbyStateMessage struct {
	Type      string       `json:"type"` // "lobby_state"
	SessionID string       `json:"session_id"`
	Ready     []PlayerFlag `json:"ready"`
	SecsLeft  *float64     `json:"secs_left,omitempty"` // absent until countdown starts
}

// GuessStateMessage is broadcast during a guessing phase. Only the
// submitted flag is exposed, never the guess itself.
type GuessStateMessage struct {
	Type        string       `json:"type"` // "guess_state"
	SessionID   string       `json:"session_id"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"total_rounds"`
	Prompt      string       `json:"prompt"`
	SecsLeft    float64      `json:"secs_left"`
	HasGuessed  []PlayerFlag `json:"has_guessed"`
}

// RevealEntry is one player's scored round in a reveal broadcast.
type RevealEntry struct {
	PlayerID string    `json:"player_id"`
	Guess    string    `json:"guess"`
	Score    int       `json:"score"`
	Position *position `json:"position,omitempty"` // absent for non-submitters
	Repeat   bool      `json:"repeat"`             // guess was a disqualified prompt repetition
	Ready    bool      `json:"ready"`
}

// RevealStateMessage is broadcast while players view round results.
type RevealStateMessage struct {
	Type          string        `json:"type"` // "reveal_state"
	SessionID     string        `json:"session_id"`
	Round         int           `json:"round"`
	Prompt        string        `json:"prompt"`
	CentroidLabel string        `json:"centroid_label"`
	Melded        bool          `json:"melded"`
	SecsLeft      float64       `json:"secs_left"`
	Entries       []RevealEntry `json:"entries"`
}

// HistoryEntry is one completed round from a single player's view.
type HistoryEntry struct {
	Guess         string `json:"guess"`
	CentroidLabel string `json:"centroid_label"`
	Score         int    `json:"score"`
}

// PlayerHistory is a player's full game, round by round.
type PlayerHistory struct {
	PlayerID string         `json:"player_id"`
	Name     string         `json:"name"`
	Rounds   []HistoryEntry `json:"rounds"`
}

// ContinueStateMessage asks for continue/leave votes after the round
// cap. The vote tally is deliberately not exposed.
type ContinueStateMessage struct {
	Type      string          `json:"type"` // "continue_state"
	SessionID string          `json:"session_id"`
	History   []PlayerHistory `json:"history"`
}

// GameEndMessage is the post-game summary.
type GameEndMessage struct {
	Type      string          `json:"type"` // "game_end"
	SessionID string          `json:"session_id"`
	Melded    bool            `json:"melded"`
	MeldRound *int            `json:"meld_round,omitempty"`
	History   []PlayerHistory `json:"history"`
}

// NoSuchSessionMessage answers an action naming an unknown session.
type NoSuchSessionMessage struct {
	Type      string `json:"type"` // "no_such_session"
	SessionID string `json:"session_id"`
}
