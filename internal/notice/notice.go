// Package notice carries the short success/error messages a user sees after
// an action, independent of how a front end displays them.
package notice

import (
	"sync"

	"github.com/rs/zerolog"
)

// Level of a notice
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one user-facing message
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Collector keeps notices in order. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Success(msg string) { c.add(LevelSuccess, msg) }
func (c *Collector) Error(msg string)   { c.add(LevelError, msg) }

func (c *Collector) add(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Level: level, Message: msg})
}

// Drain returns the collected notices and empties the collector.
func (c *Collector) Drain() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

// Log writes notices through a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Success(msg string) { l.Logger.Info().Str("notice", string(LevelSuccess)).Msg(msg) }
func (l Log) Error(msg string)   { l.Logger.Warn().Str("notice", string(LevelError)).Msg(msg) }

// Discard drops every notice.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
