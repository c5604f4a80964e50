package main

import (
	"math"
	"time"
)

const (
	totalRounds        = 10
	minPlayersToStart  = 2
	lobbyCountdownSecs = 3.0
	guessSecs          = 25.0
	revealSecs         = 25.0
	scoringRetryBudget = 2
)

// Phase is a tagged variant: exactly one is active per session, and each
// variant carries only the data that phase needs.
type Phase interface {
	phaseName() string
}

type phaseLobby struct {
	countdown *float64 // absent until a ready quorum forms
	ready     map[string]bool
}

type phaseGuessing struct {
	round    int
	prompt   string
	secsLeft float64
	guesses  map[string]string // at most one entry per player, latest wins
}

type phaseReveal struct {
	round         int
	prompt        string
	secsLeft      float64
	ready         map[string]bool
	scores        map[string]int
	positions     map[string]position
	guesses       map[string]string
	repeats       map[string]bool
	centroidLabel string
	melded        bool
}

type phaseContinue struct {
	nextRound int
	votes     map[string]bool // continue votes only; leavers are relocated immediately
}

func (*phaseLobby) phaseName() string    { return "lobby" }
func (*phaseGuessing) phaseName() string { return "guessing" }
func (*phaseReveal) phaseName() string   { return "reveal" }
func (*phaseContinue) phaseName() string { return "continue" }

type scoreAndGuess struct {
	score int
	guess string
}

// Player belongs to exactly one session (or the lounge) at a time.
// client is nil while the player is disconnected; they stay on the
// roster and may reattach via subscribe.
type Player struct {
	id      string
	name    string
	mood    string
	client  *Client
	history []scoreAndGuess // one entry per completed round
}

func (p *Player) live() bool {
	return p.client != nil
}

type roundRecord struct {
	prompt        string
	centroidLabel string
	guesses       map[string]string
	scores        map[string]int
}

// Session is one game in progress. All mutation happens on the event
// loop goroutine; there is no locking here on purpose.
type Session struct {
	id              string
	players         []*Player
	phase           Phase
	currentPrompt   string
	centroidHistory []string
	previousRounds  []roundRecord

	// Guards the one suspending operation: between round-timer expiry
	// and scoring completion, ticks and late guesses must not re-invoke
	// scoring for the same round.
	scoringInProgress bool
	scoringRetries    int

	lastActive    time.Time
	lastShownSecs int // dedup for per-second countdown broadcasts
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:            id,
		phase:         &phaseLobby{ready: make(map[string]bool)},
		lastActive:    now,
		lastShownSecs: -1,
	}
}

func (s *Session) player(id string) *Player {
	for _, p := range s.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (s *Session) livePlayers() []*Player {
	live := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		if p.live() {
			live = append(live, p)
		}
	}
	return live
}

func (s *Session) unicast(playerID string, msg any) {
	p := s.player(playerID)
	if p == nil || p.client == nil {
		return
	}
	p.client.trySend(msg)
}

func (s *Session) broadcast(msg any) {
	for _, p := range s.players {
		if p.client != nil {
			p.client.trySend(msg)
		}
	}
}

func (s *Session) snapshots() []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, PlayerSnapshot{
			PlayerID: p.id,
			Name:     p.name,
			Mood:     p.mood,
		})
	}
	return out
}

func (s *Session) memberChangeMsg() MemberChangeMessage {
	return MemberChangeMessage{
		Type:      "member_change",
		SessionID: s.id,
		Players:   s.snapshots(),
	}
}

func (s *Session) lobbyStateMsg(l *phaseLobby) LobbyStateMessage {
	ready := make([]PlayerFlag, 0, len(s.players))
	for _, p := range s.players {
		ready = append(ready, PlayerFlag{PlayerID: p.id, Flag: l.ready[p.id]})
	}

	msg := LobbyStateMessage{
		Type:      "lobby_state",
		SessionID: s.id,
		Ready:     ready,
	}
	if l.countdown != nil {
		secs := *l.countdown
		msg.SecsLeft = &secs
	}
	return msg
}

func (s *Session) guessStateMsg(g *phaseGuessing) GuessStateMessage {
	hasGuessed := make([]PlayerFlag, 0, len(s.players))
	for _, p := range s.players {
		_, ok := g.guesses[p.id]
		hasGuessed = append(hasGuessed, PlayerFlag{PlayerID: p.id, Flag: ok})
	}

	return GuessStateMessage{
		Type:        "guess_state",
		SessionID:   s.id,
		Round:       g.round,
		TotalRounds: totalRounds,
		Prompt:      g.prompt,
		SecsLeft:    g.secsLeft,
		HasGuessed:  hasGuessed,
	}
}

func (s *Session) revealStateMsg(r *phaseReveal) RevealStateMessage {
	entries := make([]RevealEntry, 0, len(s.players))
	for _, p := range s.players {
		entry := RevealEntry{
			PlayerID: p.id,
			Guess:    r.guesses[p.id],
			Score:    r.scores[p.id],
			Repeat:   r.repeats[p.id],
			Ready:    r.ready[p.id],
		}
		if pos, ok := r.positions[p.id]; ok {
			entry.Position = &position{X: pos.X, Y: pos.Y}
		}
		entries = append(entries, entry)
	}

	return RevealStateMessage{
		Type:          "reveal_state",
		SessionID:     s.id,
		Round:         r.round,
		Prompt:        r.prompt,
		CentroidLabel: r.centroidLabel,
		Melded:        r.melded,
		SecsLeft:      r.secsLeft,
		Entries:       entries,
	}
}

// history pairs each player's per-round guess and score with the
// centroid label discovered that round.
func (s *Session) history() []PlayerHistory {
	out := make([]PlayerHistory, 0, len(s.players))
	for _, p := range s.players {
		rounds := make([]HistoryEntry, 0, len(p.history))
		for i, sg := range p.history {
			label := ""
			if i < len(s.centroidHistory) {
				label = s.centroidHistory[i]
			}
			rounds = append(rounds, HistoryEntry{
				Guess:         sg.guess,
				CentroidLabel: label,
				Score:         sg.score,
			})
		}
		out = append(out, PlayerHistory{
			PlayerID: p.id,
			Name:     p.name,
			Rounds:   rounds,
		})
	}
	return out
}

func (s *Session) continueStateMsg() ContinueStateMessage {
	return ContinueStateMessage{
		Type:      "continue_state",
		SessionID: s.id,
		History:   s.history(),
	}
}

// shownSecs rounds a countdown up to whole seconds for display.
func shownSecs(secs float64) int {
	return int(math.Ceil(secs))
}
