package plot

import "sync"

// Clock delivers periodic frame callbacks.
type Clock interface {
	Subscribe(fn func()) Subscription
}

// Subscription is a registered frame callback. Cancel is synchronous: once it
// returns, the callback will not fire again.
type Subscription interface {
	Cancel()
}

type subscription struct {
	fn       func()
	mu       *sync.Mutex
	canceled bool
}

func (s *subscription) Cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// subscriberList is the bookkeeping shared by the clocks in this package.
type subscriberList struct {
	mu   sync.Mutex
	subs []*subscription
}

func (l *subscriberList) add(fn func()) *subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := &subscription{fn: fn, mu: &l.mu}
	l.subs = append(l.subs, s)
	return s
}

// fire calls every live callback on the calling goroutine. The lock is not
// held while callbacks run so they may subscribe or cancel.
func (l *subscriberList) fire() {
	l.mu.Lock()
	live := l.subs[:0]
	for _, s := range l.subs {
		if !s.canceled {
			live = append(live, s)
		}
	}
	l.subs = live
	pending := make([]*subscription, len(live))
	copy(pending, live)
	l.mu.Unlock()

	for _, s := range pending {
		l.mu.Lock()
		canceled := s.canceled
		l.mu.Unlock()
		if !canceled {
			s.fn()
		}
	}
}

func (l *subscriberList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.subs {
		if !s.canceled {
			n++
		}
	}
	return n
}

// ManualClock fires only when Tick is called. It drives offline rendering and
// tests.
type ManualClock struct {
	list subscriberList
}

// NewManualClock creates a clock that never ticks on its own.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Subscribe(fn func()) Subscription { return c.list.add(fn) }

// Tick fires one frame.
func (c *ManualClock) Tick() { c.list.fire() }

// Subscribers reports the number of live subscriptions.
func (c *ManualClock) Subscribers() int { return c.list.len() }
