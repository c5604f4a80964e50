package main

import (
	"sort"
	"time"
)

type loungeInfo struct {
	name   string
	mood   string
	client *Client
}

const defaultMood = "🙂"

// Registry owns the collection of active sessions and the pre-seating
// lounge. It is mutated only from the event loop goroutine.
type Registry struct {
	sessions map[string]*Session
	lounge   map[string]*loungeInfo
	namer    *Chooser
}

func newRegistry(namer *Chooser) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		lounge:   make(map[string]*loungeInfo),
		namer:    namer,
	}
}

func (reg *Registry) session(id string) *Session {
	return reg.sessions[id]
}

// createSession allocates a human-readable identifier, unique among
// currently-live sessions only.
func (reg *Registry) createSession(now time.Time) *Session {
	id := reg.namer.choose(func(candidate string) bool {
		_, exists := reg.sessions[candidate]
		return exists
	})

	s := newSession(id, now)
	reg.sessions[id] = s

	return s
}

func (reg *Registry) destroySession(s *Session) {
	delete(reg.sessions, s.id)
}

func (reg *Registry) sessionIDs() []string {
	ids := make([]string, 0, len(reg.sessions))
	for id := range reg.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (reg *Registry) loungeMsg() LoungeMessage {
	ids := make([]string, 0, len(reg.lounge))
	for id := range reg.lounge {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	players := make([]PlayerSnapshot, 0, len(ids))
	for _, id := range ids {
		info := reg.lounge[id]
		players = append(players, PlayerSnapshot{
			PlayerID: id,
			Name:     info.name,
			Mood:     info.mood,
		})
	}

	return LoungeMessage{
		Type:     "lounge",
		Players:  players,
		Sessions: reg.sessionIDs(),
	}
}

// broadcastLounge notifies every lounging player of the current roster
// and joinable sessions.
func (reg *Registry) broadcastLounge() {
	msg := reg.loungeMsg()
	for _, info := range reg.lounge {
		if info.client != nil {
			info.client.trySend(msg)
		}
	}
}
