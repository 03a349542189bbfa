package chat

import (
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
)

// sessions maps chat ids to their guardian actors, spawning them on first use.
type sessions struct {
	mu    sync.Mutex
	root  *actor.RootContext
	props func(chatID string) *actor.Props
	ids   map[string]*actor.PID
}

func newSessions(root *actor.RootContext, props func(chatID string) *actor.Props) *sessions {
	strategy := actor.NewOneForOneStrategy(3, time.Minute, actor.DefaultDecider)
	return &sessions{
		root:  root.WithGuardian(strategy),
		props: props,
		ids:   map[string]*actor.PID{},
	}
}

func (s *sessions) get(id string) *actor.PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid, ok := s.ids[id]; ok {
		return pid
	}
	pid := s.root.Spawn(s.props(id))
	s.ids[id] = pid
	return pid
}

func (s *sessions) remove(id string) {
	s.mu.Lock()
	pid, ok := s.ids[id]
	delete(s.ids, id)
	s.mu.Unlock()
	if ok {
		s.root.Stop(pid)
	}
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
