package state

import (
	"sync"
	"time"

	"github.com/cuongbtq/job-tracker/internal/domain"
)

const subscriberBuffer = 8

// Toast holds at most one active notification. Showing a new message replaces the
// current one outright and restarts the display lifetime.
type Toast struct {
	duration time.Duration

	mu      sync.Mutex
	current *domain.ToastMessage
	gen     uint64
	timer   *time.Timer
	subs    map[int]chan *domain.ToastMessage
	nextSub int
	closed  bool
}

// NewToast creates a Toast whose messages disappear after duration.
// A non-positive duration keeps messages until Hide.
func NewToast(duration time.Duration) *Toast {
	return &Toast{
		duration: duration,
		subs:     make(map[int]chan *domain.ToastMessage),
	}
}

// Show displays message for the default lifetime
func (t *Toast) Show(message string, severity domain.Severity) {
	t.ShowFor(message, severity, t.duration)
}

// Success displays a success message
func (t *Toast) Success(message string) {
	t.Show(message, domain.SeveritySuccess)
}

// Error displays an error message
func (t *Toast) Error(message string) {
	t.Show(message, domain.SeverityError)
}

// ShowFor displays message for d, replacing any active message
func (t *Toast) ShowFor(message string, severity domain.Severity, d time.Duration) {
	if severity == "" {
		severity = domain.SeverityInfo
	}
	msg := &domain.ToastMessage{Message: message, Severity: severity}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.gen++
	gen := t.gen
	t.current = msg
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if d > 0 {
		t.timer = time.AfterFunc(d, func() { t.expire(gen) })
	}
	t.publish(msg)
}

// Hide clears the active message
func (t *Toast) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
}

// Current returns the active message, if any
func (t *Toast) Current() (domain.ToastMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return domain.ToastMessage{}, false
	}
	return *t.current, true
}

// Subscribe returns a channel receiving every change; nil means the toast was
// cleared. Slow subscribers miss changes rather than block the toast.
func (t *Toast) Subscribe() (<-chan *domain.ToastMessage, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan *domain.ToastMessage, subscriberBuffer)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if sub, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the expiry timer and closes every subscription
func (t *Toast) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

func (t *Toast) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.closed {
		return
	}
	t.clear()
}

func (t *Toast) clear() {
	if t.current == nil {
		return
	}
	t.gen++
	t.current = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.publish(nil)
}

func (t *Toast) publish(msg *domain.ToastMessage) {
	for _, ch := range t.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
