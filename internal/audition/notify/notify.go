// Package notify delivers candidate-facing notices (toasts in a browser, lines
// in a terminal).
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Notice struct {
	Level       Level
	Title       string
	Description string
}

type Notifier interface {
	Info(title, description string)
	Warn(title, description string)
	Error(title, description string)
}

// LogNotifier writes notices as structured log entries.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(l *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: l.WithField("component", "notify")}
}

func (n *LogNotifier) Info(title, desc string) {
	n.log.WithField("description", desc).Info(title)
}

func (n *LogNotifier) Warn(title, desc string) {
	n.log.WithField("description", desc).Warn(title)
}

func (n *LogNotifier) Error(title, desc string) {
	n.log.WithField("description", desc).Error(title)
}

// WriterNotifier prints one line per notice.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier { return &WriterNotifier{w: w} }

func (n *WriterNotifier) write(level Level, title, desc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if desc == "" {
		fmt.Fprintf(n.w, "[%s] %s\n", level, title)
		return
	}
	fmt.Fprintf(n.w, "[%s] %s: %s\n", level, title, desc)
}

func (n *WriterNotifier) Info(title, desc string)  { n.write(LevelInfo, title, desc) }
func (n *WriterNotifier) Warn(title, desc string)  { n.write(LevelWarn, title, desc) }
func (n *WriterNotifier) Error(title, desc string) { n.write(LevelError, title, desc) }

// Memory keeps every notice; used by tests and by callers that render later.
type Memory struct {
	mu      sync.Mutex
	notices []Notice
}

func (m *Memory) add(n Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
}

func (m *Memory) Info(title, desc string)  { m.add(Notice{LevelInfo, title, desc}) }
func (m *Memory) Warn(title, desc string)  { m.add(Notice{LevelWarn, title, desc}) }
func (m *Memory) Error(title, desc string) { m.add(Notice{LevelError, title, desc}) }

func (m *Memory) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notice, len(m.notices))
	copy(out, m.notices)
	return out
}

// Count returns the number of notices at level.
func (m *Memory) Count(level Level) int {
	n := 0
	for _, x := range m.Notices() {
		if x.Level == level {
			n++
		}
	}
	return n
}

type multi []Notifier

// Multi fans a notice out to every notifier.
func Multi(ns ...Notifier) Notifier { return multi(ns) }

func (m multi) Info(title, desc string) {
	for _, n := range m {
		n.Info(title, desc)
	}
}

func (m multi) Warn(title, desc string) {
	for _, n := range m {
		n.Warn(title, desc)
	}
}

func (m multi) Error(title, desc string) {
	for _, n := range m {
		n.Error(title, desc)
	}
}
