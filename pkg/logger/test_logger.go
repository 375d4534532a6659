package logger

import (
	"strings"
	"sync"
)

// TestLogger is a Logger implementation for tests that captures messages
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{messages: make([]LogMessage, 0)}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: msg, Fields: fields})
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &fieldTestLogger{parent: l, fields: fields}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// Messages returns a copy of all captured messages
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasMessage reports whether a message at the given level contains substr
func (l *TestLogger) HasMessage(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// fieldTestLogger carries fields for chained WithField calls in tests
type fieldTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (l *fieldTestLogger) merge(extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (l *fieldTestLogger) Debug(msg string) { l.parent.log("DEBUG", msg, l.fields) }
func (l *fieldTestLogger) Info(msg string)  { l.parent.log("INFO", msg, l.fields) }
func (l *fieldTestLogger) Warn(msg string)  { l.parent.log("WARN", msg, l.fields) }
func (l *fieldTestLogger) Error(msg string) { l.parent.log("ERROR", msg, l.fields) }
func (l *fieldTestLogger) Fatal(msg string) { l.parent.log("FATAL", msg, l.fields) }

func (l *fieldTestLogger) WithField(key string, value interface{}) Logger {
	return &fieldTestLogger{parent: l.parent, fields: l.merge(map[string]interface{}{key: value})}
}

func (l *fieldTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &fieldTestLogger{parent: l.parent, fields: l.merge(fields)}
}

func (l *fieldTestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *fieldTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("DEBUG", msg, l.merge(fields))
}

func (l *fieldTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("INFO", msg, l.merge(fields))
}

func (l *fieldTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("WARN", msg, l.merge(fields))
}

func (l *fieldTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.parent.log("ERROR", msg, l.merge(fields))
}
