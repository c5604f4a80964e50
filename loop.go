package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const tickInterval = 250 * time.Millisecond

type actionEvent struct {
	client *Client
	msg    ClientMessage
}

type disconnectEvent struct {
	client *Client
}

// scoreEvent delivers a scoring completion back into the event stream.
// It is keyed by (sessionID, round) so a stale completion, arriving
// after the session reset or ended, can be recognized and dropped.
type scoreEvent struct {
	sessionID string
	round     int
	melded    bool
	repeats   map[string]bool
	result    *roundResult
	err       error
}

// Loop is the single logical timeline of the process: ticker ticks,
// player actions, disconnects, and scoring completions are delivered as
// discrete events on one channel and handled sequentially. Sessions and
// the lounge are mutated only from here.
type Loop struct {
	cfg        *Config
	reg        *Registry
	embedder   Embedder
	vocab      *Vocab
	categories []Category
	events     chan any
}

func newLoop(cfg *Config, reg *Registry, embedder Embedder, vocab *Vocab, categories []Category) *Loop {
	return &Loop{
		cfg:        cfg,
		reg:        reg,
		embedder:   embedder,
		vocab:      vocab,
		categories: categories,
		events:     make(chan any, 256),
	}
}

func (l *Loop) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now
			l.onTick(now, delta)

		case ev := <-l.events:
			switch ev := ev.(type) {
			case actionEvent:
				l.handleAction(ev.client, ev.msg)
			case disconnectEvent:
				l.handleDisconnect(ev.client)
			case scoreEvent:
				l.applyScore(ev)
			}
		}
	}
}

func (l *Loop) post(ev any) {
	l.events <- ev
}

// ---- Ticks ----

func (l *Loop) onTick(now time.Time, delta float64) {
	for _, id := range l.reg.sessionIDs() {
		s := l.reg.session(id)
		if s == nil {
			continue
		}

		if l.cfg.sessionTimeout > 0 && now.Sub(s.lastActive) > l.cfg.sessionTimeout {
			logf(l.cfg, "GAMES: Reaping idle session %s", s.id)
			l.dissolveSession(s)
			continue
		}

		l.tickSession(s, delta)
	}
}

func (l *Loop) tickSession(s *Session, delta float64) {
	switch phase := s.phase.(type) {
	case *phaseLobby:
		if phase.countdown == nil {
			return
		}
		*phase.countdown -= delta
		if *phase.countdown <= 0 {
			l.startGame(s)
			return
		}
		l.maybeBroadcastTimer(s, *phase.countdown, s.lobbyStateMsg(phase))

	case *phaseGuessing:
		// The timer is frozen while a scoring call is in flight so an
		// expiry tick cannot re-invoke scoring for the same round.
		if s.scoringInProgress {
			return
		}
		phase.secsLeft -= delta
		if phase.secsLeft <= 0 {
			phase.secsLeft = 0
			l.beginScoring(s, phase)
			return
		}
		l.maybeBroadcastTimer(s, phase.secsLeft, s.guessStateMsg(phase))

	case *phaseReveal:
		phase.secsLeft -= delta
		if phase.secsLeft <= 0 {
			phase.secsLeft = 0
			l.advanceFromReveal(s, phase)
			return
		}
		l.maybeBroadcastTimer(s, phase.secsLeft, s.revealStateMsg(phase))

	case *phaseContinue:
		// No timer; waits on unanimous votes.
	}
}

func (l *Loop) maybeBroadcastTimer(s *Session, secsLeft float64, msg any) {
	shown := shownSecs(secsLeft)
	if shown == s.lastShownSecs {
		return
	}
	s.lastShownSecs = shown
	s.broadcast(msg)
}

// ---- Inbound actions ----

func (l *Loop) handleAction(c *Client, msg ClientMessage) {
	// A connection may only ever act as the player id it was dealt.
	if msg.PlayerID != "" && msg.PlayerID != c.playerID {
		logf(l.cfg, "GAMES: Dropping %q from %q claiming to be %q", msg.Type, c.playerID, msg.PlayerID)
		return
	}

	switch msg.Type {
	case "join":
		l.handleJoin(c, msg)

	case "set_info":
		l.handleSetInfo(c, msg)

	case "new_session":
		l.handleNewSession(c)

	case "subscribe":
		l.handleSubscribe(c, msg)

	case "ready":
		l.withSession(c, msg, func(s *Session) {
			if msg.Ready == nil {
				return
			}
			l.handleReady(s, c.playerID, *msg.Ready)
		})

	case "guess":
		l.withSession(c, msg, func(s *Session) {
			l.handleGuess(s, c.playerID, msg.Guess)
		})

	case "continue_vote":
		l.withSession(c, msg, func(s *Session) {
			if msg.Continue == nil {
				return
			}
			l.handleContinueVote(s, c.playerID, *msg.Continue)
		})

	default:
		logf(l.cfg, "GAMES: Dropping unknown action %q from %q", msg.Type, c.playerID)
	}
}

func (l *Loop) withSession(c *Client, msg ClientMessage, fn func(*Session)) {
	s := l.reg.session(msg.SessionID)
	if s == nil {
		logf(l.cfg, "GAMES: Action %q for unknown session %q", msg.Type, msg.SessionID)
		c.trySend(NoSuchSessionMessage{Type: "no_such_session", SessionID: msg.SessionID})
		return
	}

	s.lastActive = time.Now()
	fn(s)
}

func (l *Loop) handleJoin(c *Client, msg ClientMessage) {
	if msg.PlayerName == "" {
		return
	}

	l.leaveOtherSessions(c.playerID, nil)

	mood := msg.Mood
	if mood == "" {
		mood = defaultMood
	}

	l.reg.lounge[c.playerID] = &loungeInfo{
		name:   msg.PlayerName,
		mood:   mood,
		client: c,
	}

	logf(l.cfg, "GAMES: Player %q joined the lounge", msg.PlayerName)
	l.reg.broadcastLounge()
}

func (l *Loop) handleSetInfo(c *Client, msg ClientMessage) {
	info, ok := l.reg.lounge[c.playerID]
	if !ok {
		logf(l.cfg, "GAMES: set_info from %q, not in lounge", c.playerID)
		return
	}

	if msg.PlayerName != "" {
		info.name = msg.PlayerName
	}
	if msg.Mood != "" {
		info.mood = msg.Mood
	}

	l.reg.broadcastLounge()
}

func (l *Loop) handleNewSession(c *Client) {
	s := l.reg.createSession(time.Now())
	logf(l.cfg, "GAMES: Created session %s", s.id)

	c.trySend(SessionCreatedMessage{Type: "session_created", SessionID: s.id})
	l.reg.broadcastLounge()
}

func (l *Loop) handleSubscribe(c *Client, msg ClientMessage) {
	s := l.reg.session(msg.SessionID)
	if s == nil {
		c.trySend(NoSuchSessionMessage{Type: "no_such_session", SessionID: msg.SessionID})
		return
	}

	s.lastActive = time.Now()

	// A player sits in one place at a time.
	l.leaveOtherSessions(c.playerID, s)

	if p := s.player(c.playerID); p != nil {
		// Reattaching after a dropped connection.
		p.client = c
	} else {
		name := msg.PlayerName
		mood := defaultMood
		if info, ok := l.reg.lounge[c.playerID]; ok {
			if name == "" {
				name = info.name
			}
			mood = info.mood
			delete(l.reg.lounge, c.playerID)
			l.reg.broadcastLounge()
		}
		if name == "" {
			name = c.playerID
		}

		p := &Player{
			id:     c.playerID,
			name:   name,
			mood:   mood,
			client: c,
		}
		// Mid-game joiners get zero entries for rounds they missed so
		// history lines up with the centroid history.
		for range s.centroidHistory {
			p.history = append(p.history, scoreAndGuess{})
		}
		s.players = append(s.players, p)

		logf(l.cfg, "GAMES: Player %q joined session %s", name, s.id)
	}

	s.broadcast(s.memberChangeMsg())
	l.broadcastPhase(s)
}

func (l *Loop) broadcastPhase(s *Session) {
	switch phase := s.phase.(type) {
	case *phaseLobby:
		s.broadcast(s.lobbyStateMsg(phase))
	case *phaseGuessing:
		s.broadcast(s.guessStateMsg(phase))
	case *phaseReveal:
		s.broadcast(s.revealStateMsg(phase))
	case *phaseContinue:
		s.broadcast(s.continueStateMsg())
	}
}

func (l *Loop) handleReady(s *Session, playerID string, ready bool) {
	if s.player(playerID) == nil {
		return
	}

	switch phase := s.phase.(type) {
	case *phaseLobby:
		if ready {
			phase.ready[playerID] = true
		} else {
			delete(phase.ready, playerID)
		}
		l.refreshLobbyCountdown(s, phase)
		s.broadcast(s.lobbyStateMsg(phase))

	case *phaseReveal:
		if ready {
			phase.ready[playerID] = true
		} else {
			delete(phase.ready, playerID)
		}
		if l.allLiveReady(s, phase.ready) {
			l.advanceFromReveal(s, phase)
			return
		}
		s.broadcast(s.revealStateMsg(phase))

	default:
		logf(l.cfg, "GAMES: Dropping ready vote during %s in %s", s.phase.phaseName(), s.id)
	}
}

func (l *Loop) allLiveReady(s *Session, ready map[string]bool) bool {
	live := s.livePlayers()
	if len(live) == 0 {
		return false
	}
	for _, p := range live {
		if !ready[p.id] {
			return false
		}
	}
	return true
}

// refreshLobbyCountdown starts the countdown when every live player is
// ready and at least two are present, and cancels it the moment that
// quorum breaks.
func (l *Loop) refreshLobbyCountdown(s *Session, phase *phaseLobby) {
	quorum := len(s.livePlayers()) >= minPlayersToStart && l.allLiveReady(s, phase.ready)

	switch {
	case quorum && phase.countdown == nil:
		secs := lobbyCountdownSecs
		phase.countdown = &secs
		s.lastShownSecs = -1
	case !quorum:
		phase.countdown = nil
	}
}

func (l *Loop) handleGuess(s *Session, playerID, guess string) {
	phase, ok := s.phase.(*phaseGuessing)
	if !ok {
		logf(l.cfg, "GAMES: Dropping guess during %s in %s", s.phase.phaseName(), s.id)
		return
	}
	if s.scoringInProgress {
		// Round already closed; the result is in flight.
		return
	}
	if s.player(playerID) == nil {
		return
	}

	guess = strings.TrimSpace(guess)
	if guess == "" {
		return
	}

	phase.guesses[playerID] = guess
	s.broadcast(s.guessStateMsg(phase))

	if l.allLiveGuessed(s, phase) {
		l.beginScoring(s, phase)
	}
}

func (l *Loop) allLiveGuessed(s *Session, phase *phaseGuessing) bool {
	live := s.livePlayers()
	if len(live) == 0 {
		return false
	}
	for _, p := range live {
		if _, ok := phase.guesses[p.id]; !ok {
			return false
		}
	}
	return true
}

// ---- Game start and round flow ----

func (l *Loop) startGame(s *Session) {
	prompt := randomFrom(l.categories).Prompt

	s.centroidHistory = nil
	s.previousRounds = nil
	s.scoringRetries = 0
	for _, p := range s.players {
		p.history = nil
	}

	logf(l.cfg, "GAMES: Session %s starting with prompt %q", s.id, prompt)
	l.startRound(s, 0, prompt)
}

func (l *Loop) startRound(s *Session, round int, prompt string) {
	s.currentPrompt = prompt
	s.phase = &phaseGuessing{
		round:    round,
		prompt:   prompt,
		secsLeft: guessSecs,
		guesses:  make(map[string]string),
	}
	s.lastShownSecs = -1

	l.broadcastPhase(s)
}

// beginScoring closes the round and runs the scoring pipeline. The
// embedding call is the one operation that suspends, so it runs in its
// own goroutine and posts a scoreEvent back into the event stream;
// scoringInProgress keeps a second attempt from starting meanwhile.
func (l *Loop) beginScoring(s *Session, phase *phaseGuessing) {
	if s.scoringInProgress {
		return
	}

	valid := filterPromptRepetitions(phase.guesses, phase.prompt)

	repeats := make(map[string]bool)
	for id := range phase.guesses {
		if _, ok := valid[id]; !ok {
			repeats[id] = true
		}
	}

	if len(valid) == 0 {
		// Every submission echoed the prompt (or nobody submitted).
		logf(l.cfg, "GAMES: Session %s round %d had no valid guesses", s.id, phase.round)
		l.scoringFailed(s, phase)
		return
	}

	s.scoringInProgress = true
	melded := detectMeld(valid)

	go func(sessionID string, round int) {
		// A scorer panic must not take the server down; surface it as a
		// failed round instead.
		defer func() {
			if r := recover(); r != nil {
				l.post(scoreEvent{
					sessionID: sessionID,
					round:     round,
					err:       fmt.Errorf("scoring panicked: %v", r),
				})
			}
		}()

		result, err := scoreGuesses(context.Background(), l.embedder, l.vocab, valid)
		l.post(scoreEvent{
			sessionID: sessionID,
			round:     round,
			melded:    melded,
			repeats:   repeats,
			result:    result,
			err:       err,
		})
	}(s.id, phase.round)
}

// applyScore reconciles a scoring completion with whatever the session
// looks like now. The session may have been destroyed or reset while
// the call was in flight; stale results are discarded.
func (l *Loop) applyScore(ev scoreEvent) {
	s := l.reg.session(ev.sessionID)
	if s == nil {
		logf(l.cfg, "GAMES: Discarding score for vanished session %s", ev.sessionID)
		return
	}

	phase, ok := s.phase.(*phaseGuessing)
	if !ok || phase.round != ev.round || !s.scoringInProgress {
		logf(l.cfg, "GAMES: Discarding stale score for session %s round %d", ev.sessionID, ev.round)
		return
	}

	if ev.err != nil || len(ev.result.scores) == 0 {
		if ev.err != nil {
			logf(l.cfg, "GAMES: Scoring failed for session %s round %d: %v", s.id, ev.round, ev.err)
		}
		l.scoringFailed(s, phase)
		return
	}

	scores := make(map[string]int, len(s.players))
	guesses := make(map[string]string, len(phase.guesses))
	for _, p := range s.players {
		scores[p.id] = ev.result.scores[p.id]
		guesses[p.id] = phase.guesses[p.id]
		p.history = append(p.history, scoreAndGuess{
			score: scores[p.id],
			guess: guesses[p.id],
		})
	}

	s.centroidHistory = append(s.centroidHistory, ev.result.centroidLabel)
	s.previousRounds = append(s.previousRounds, roundRecord{
		prompt:        phase.prompt,
		centroidLabel: ev.result.centroidLabel,
		guesses:       guesses,
		scores:        scores,
	})
	s.scoringRetries = 0
	s.scoringInProgress = false

	s.phase = &phaseReveal{
		round:         phase.round,
		prompt:        phase.prompt,
		secsLeft:      revealSecs,
		ready:         make(map[string]bool),
		scores:        scores,
		positions:     ev.result.positions,
		guesses:       guesses,
		repeats:       ev.repeats,
		centroidLabel: ev.result.centroidLabel,
		melded:        ev.melded,
	}
	s.lastShownSecs = -1

	l.broadcastPhase(s)
}

// scoringFailed reopens the same round with a fresh timer and cleared
// guesses, until the retry budget runs out; then the session ends
// rather than looping forever.
func (l *Loop) scoringFailed(s *Session, phase *phaseGuessing) {
	s.scoringInProgress = false
	s.scoringRetries++

	if s.scoringRetries > scoringRetryBudget {
		logf(l.cfg, "GAMES: Session %s round %d out of scoring retries, ending", s.id, phase.round)
		l.endGame(s, false, nil)
		return
	}

	logf(l.cfg, "GAMES: Session %s reopening round %d (retry %d)", s.id, phase.round, s.scoringRetries)
	l.startRound(s, phase.round, phase.prompt)
}

func (l *Loop) advanceFromReveal(s *Session, phase *phaseReveal) {
	if phase.melded {
		round := phase.round
		l.endGame(s, true, &round)
		return
	}

	if phase.round+1 >= totalRounds {
		s.currentPrompt = phase.centroidLabel
		s.phase = &phaseContinue{
			nextRound: phase.round + 1,
			votes:     make(map[string]bool),
		}
		l.broadcastPhase(s)
		return
	}

	l.startRound(s, phase.round+1, phase.centroidLabel)
}

func (l *Loop) handleContinueVote(s *Session, playerID string, wantsMore bool) {
	phase, ok := s.phase.(*phaseContinue)
	if !ok {
		logf(l.cfg, "GAMES: Dropping continue vote during %s in %s", s.phase.phaseName(), s.id)
		return
	}

	p := s.player(playerID)
	if p == nil {
		return
	}

	if wantsMore {
		phase.votes[playerID] = true
	} else {
		delete(phase.votes, playerID)
		l.relocateToLounge(s, p)
		if l.destroyIfEmpty(s) {
			return
		}
	}

	l.resolveContinue(s, phase)
}

func (l *Loop) resolveContinue(s *Session, phase *phaseContinue) {
	live := s.livePlayers()
	if len(live) == 0 {
		return
	}

	votes := 0
	for _, p := range live {
		if !phase.votes[p.id] {
			return // still waiting on someone
		}
		votes++
	}

	if votes >= minPlayersToStart {
		logf(l.cfg, "GAMES: Session %s continuing past the round cap", s.id)
		l.startRound(s, phase.nextRound, s.currentPrompt)
		return
	}

	l.endGame(s, false, nil)
}

// ---- Game end and teardown ----

func (l *Loop) endGame(s *Session, melded bool, meldRound *int) {
	logf(l.cfg, "GAMES: Session %s ended (melded=%t)", s.id, melded)

	s.broadcast(GameEndMessage{
		Type:      "game_end",
		SessionID: s.id,
		Melded:    melded,
		MeldRound: meldRound,
		History:   s.history(),
	})

	l.dissolveSession(s)
}

// dissolveSession returns every connected player to the lounge and
// removes the session from the registry.
func (l *Loop) dissolveSession(s *Session) {
	for _, p := range s.players {
		if p.client != nil {
			l.reg.lounge[p.id] = &loungeInfo{
				name:   p.name,
				mood:   p.mood,
				client: p.client,
			}
		}
	}
	s.players = nil

	l.reg.destroySession(s)
	l.reg.broadcastLounge()
}

func (l *Loop) relocateToLounge(s *Session, p *Player) {
	for i, other := range s.players {
		if other == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}

	if p.client != nil {
		l.reg.lounge[p.id] = &loungeInfo{
			name:   p.name,
			mood:   p.mood,
			client: p.client,
		}
	}

	s.broadcast(s.memberChangeMsg())
	l.reg.broadcastLounge()
}

// leaveOtherSessions unseats the player from every session except keep.
// Subscribing elsewhere or rejoining the lounge gives up the old seat.
func (l *Loop) leaveOtherSessions(playerID string, keep *Session) {
	for _, id := range l.reg.sessionIDs() {
		s := l.reg.session(id)
		if s == nil || s == keep {
			continue
		}

		p := s.player(playerID)
		if p == nil {
			continue
		}

		for i, other := range s.players {
			if other == p {
				s.players = append(s.players[:i], s.players[i+1:]...)
				break
			}
		}

		logf(l.cfg, "GAMES: Player %q left session %s", p.name, s.id)
		s.broadcast(s.memberChangeMsg())

		if l.destroyIfEmpty(s) {
			continue
		}
		l.rosterShrunk(s, playerID)
	}
}

// rosterShrunk applies the phase consequences of a seat opening up: a
// lobby countdown can lose its quorum, a guessing round or reveal can
// become complete, and a continue prompt may resolve.
func (l *Loop) rosterShrunk(s *Session, playerID string) {
	switch phase := s.phase.(type) {
	case *phaseLobby:
		delete(phase.ready, playerID)
		l.refreshLobbyCountdown(s, phase)
		s.broadcast(s.lobbyStateMsg(phase))

	case *phaseGuessing:
		delete(phase.guesses, playerID)
		if !s.scoringInProgress && l.allLiveGuessed(s, phase) {
			l.beginScoring(s, phase)
		}

	case *phaseReveal:
		delete(phase.ready, playerID)
		if l.allLiveReady(s, phase.ready) {
			l.advanceFromReveal(s, phase)
		}

	case *phaseContinue:
		delete(phase.votes, playerID)
		l.resolveContinue(s, phase)
	}
}

func (l *Loop) destroyIfEmpty(s *Session) bool {
	if len(s.players) > 0 {
		return false
	}

	logf(l.cfg, "GAMES: Session %s emptied out", s.id)
	l.reg.destroySession(s)
	l.reg.broadcastLounge()
	return true
}

// ---- Disconnects ----

func (l *Loop) handleDisconnect(c *Client) {
	// The disconnect is the last event this connection posts, and all
	// sends happen on this goroutine, so closing here lets writePump
	// drain and exit without racing a send.
	defer close(c.send)

	if info, ok := l.reg.lounge[c.playerID]; ok && info.client == c {
		delete(l.reg.lounge, c.playerID)
		l.reg.broadcastLounge()
	}

	for _, id := range l.reg.sessionIDs() {
		s := l.reg.session(id)
		if s == nil {
			continue
		}

		p := s.player(c.playerID)
		if p == nil || p.client != c {
			continue
		}

		p.client = nil
		l.playerWentDark(s, p)
	}
}

// playerWentDark applies the phase-specific consequences of a player
// dropping: a lobby countdown can lose its quorum, a guessing round can
// become complete, and a continue prompt treats it as a leave vote.
func (l *Loop) playerWentDark(s *Session, p *Player) {
	switch phase := s.phase.(type) {
	case *phaseLobby:
		delete(phase.ready, p.id)
		l.refreshLobbyCountdown(s, phase)
		s.broadcast(s.lobbyStateMsg(phase))

	case *phaseGuessing:
		if !s.scoringInProgress && l.allLiveGuessed(s, phase) {
			l.beginScoring(s, phase)
		}

	case *phaseReveal:
		if l.allLiveReady(s, phase.ready) {
			l.advanceFromReveal(s, phase)
		}

	case *phaseContinue:
		delete(phase.votes, p.id)
		l.relocateToLounge(s, p)
		if l.destroyIfEmpty(s) {
			return
		}
		if phase, ok := s.phase.(*phaseContinue); ok {
			l.resolveContinue(s, phase)
		}
	}
}
