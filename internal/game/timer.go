package game

import (
	"sync"
	"time"
)

// roundTimer ticks until the round deadline and then fires once. Stop is safe
// to call any number of times and from inside the callbacks.
type roundTimer struct {
	stop     chan struct{}
	once     sync.Once
	deadline time.Time
}

func startRoundTimer(d, tick time.Duration, onTick func(left time.Duration), onExpire func()) *roundTimer {
	t := &roundTimer{
		stop:     make(chan struct{}),
		deadline: time.Now().Add(d),
	}
	if tick <= 0 {
		tick = time.Second
	}
	go t.run(d, tick, onTick, onExpire)
	return t
}

func (t *roundTimer) run(d, tick time.Duration, onTick func(time.Duration), onExpire func()) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	expiry := time.NewTimer(d)
	defer expiry.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-expiry.C:
			select {
			case <-t.stop:
				return
			default:
			}
			onExpire()
			return
		case <-ticker.C:
			left := time.Until(t.deadline)
			if left < 0 {
				left = 0
			}
			onTick(left)
		}
	}
}

// Stop cancels the timer. A callback already running finishes, so callers
// still guard with the match generation.
func (t *roundTimer) Stop() {
	t.once.Do(func() { close(t.stop) })
}
