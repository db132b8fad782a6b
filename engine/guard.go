package engine

import (
	"sync"

	"github.com/Zelak312/tweenarr/frame"
	"github.com/sirupsen/logrus"
)

type state struct {
	frames frame.Sequence
	params Params
}

// guard protects the current frames and params. A panic while it is held
// poisons it, later holders get the last written state and a warning.
type guard struct {
	mu       sync.Mutex
	poisoned bool
	state    state
	logger   *logrus.Entry
}

func (g *guard) Do(fn func(s *state)) {
	g.mu.Lock()
	if g.poisoned {
		g.logger.Warn("WARNING: state guard was poisoned by a panic, continuing with the last written state")
	}

	completed := false
	defer func() {
		if !completed {
			g.poisoned = true
		}
		g.mu.Unlock()
	}()

	fn(&g.state)
	completed = true
}

func (g *guard) Poisoned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poisoned
}
