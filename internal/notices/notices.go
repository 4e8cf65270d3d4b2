// Package notices delivers user-visible messages raised by the stores.
package notices

import (
	"sync"
	"time"

	"github.com/TheMichaelB/overlaycfg/internal/events"
	"github.com/TheMichaelB/overlaycfg/internal/models"
)

// Notice is one message for the user. Terminal is set when the text carries
// the message of a terminal migration error.
type Notice struct {
	Text     string    `json:"text"`
	Terminal bool      `json:"terminal,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// New stamps text with the current time.
func New(text string) Notice {
	return Notice{Text: text, Time: time.Now()}
}

// FromError builds the notice shown when a document load fails. Terminal
// migration errors append their message to prefix; every other error shows
// prefix alone.
func FromError(prefix string, err error) Notice {
	n := New(prefix)
	if msg, ok := models.TerminalMessage(err); ok {
		n.Text = prefix + msg
		n.Terminal = true
	}
	return n
}

// Queue collects notices in memory.
type Queue struct {
	mu      sync.Mutex
	notices []Notice
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends n.
func (q *Queue) Notify(n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, n)
}

// Drain returns and clears the queued notices.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	return out
}

// Len returns the number of queued notices.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notices)
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	logger *events.Logger
}

// NewLogNotifier creates a notifier logging at warn level.
func NewLogNotifier(logger *events.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("component", "notices")}
}

// Notify logs n.
func (l *LogNotifier) Notify(n Notice) {
	l.logger.WithField("terminal", n.Terminal).Warn(n.Text)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

// Notify forwards n to every notifier.
func (m Multi) Notify(n Notice) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Discard drops every notice.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(Notice) {}
