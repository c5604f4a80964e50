package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySessions(t *testing.T) {
	reg := newRegistry(newChooser())
	now := time.Now()

	t.Run("created sessions are unique and retrievable", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			s := reg.createSession(now)
			require.False(t, seen[s.id], "duplicate session id %s", s.id)
			seen[s.id] = true
			assert.Same(t, s, reg.session(s.id))
		}
	})

	t.Run("unknown id yields nil", func(t *testing.T) {
		assert.Nil(t, reg.session("no-such-session"))
	})

	t.Run("destroy removes from the registry", func(t *testing.T) {
		s := reg.createSession(now)
		reg.destroySession(s)
		assert.Nil(t, reg.session(s.id))
	})

	t.Run("ids come back sorted", func(t *testing.T) {
		ids := reg.sessionIDs()
		assert.IsIncreasing(t, ids)
	})
}

func TestLoungeMsg(t *testing.T) {
	reg := newRegistry(newChooser())

	reg.lounge["b"] = &loungeInfo{name: "Beta", mood: "🌊"}
	reg.lounge["a"] = &loungeInfo{name: "Alpha", mood: defaultMood}

	msg := reg.loungeMsg()

	assert.Equal(t, "lounge", msg.Type)
	require.Len(t, msg.Players, 2)
	assert.Equal(t, "Alpha", msg.Players[0].Name)
	assert.Equal(t, "Beta", msg.Players[1].Name)
}
