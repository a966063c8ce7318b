// Package notify carries transient user notifications (the toasts of the web
// UI) out of the coordination layer. The desk service logs them and returns
// them to the caller; tests use the Recorder.
package notify

import (
	"time"

	"github.com/agendadental/clinicdesk/pkg/logging"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is one transient message for the user.
type Notification struct {
	Level    Level         `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// Display durations per level, matching the front-end defaults: errors and
// warnings stay on screen longer than confirmations.
const (
	successDuration = 3 * time.Second
	infoDuration    = 4 * time.Second
	warningDuration = 5 * time.Second
	errorDuration   = 6 * time.Second
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
	Warning(message string)
	Info(message string)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message string) { n.emit(LevelSuccess, message) }
func (n *LogNotifier) Error(message string)   { n.emit(LevelError, message) }
func (n *LogNotifier) Warning(message string) { n.emit(LevelWarning, message) }
func (n *LogNotifier) Info(message string)    { n.emit(LevelInfo, message) }

func (n *LogNotifier) emit(level Level, message string) {
	n.logger.Info("user notification",
		"level", string(level),
		"message", message,
		"duration_ms", DurationFor(level).Milliseconds(),
	)
}

// DurationFor returns how long a notification of the given level should stay
// visible.
func DurationFor(level Level) time.Duration {
	switch level {
	case LevelSuccess:
		return successDuration
	case LevelWarning:
		return warningDuration
	case LevelError:
		return errorDuration
	default:
		return infoDuration
	}
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	Notifications []Notification
}

func (r *Recorder) Success(message string) { r.record(LevelSuccess, message) }
func (r *Recorder) Error(message string)   { r.record(LevelError, message) }
func (r *Recorder) Warning(message string) { r.record(LevelWarning, message) }
func (r *Recorder) Info(message string)    { r.record(LevelInfo, message) }

func (r *Recorder) record(level Level, message string) {
	r.Notifications = append(r.Notifications, Notification{
		Level:    level,
		Message:  message,
		Duration: DurationFor(level),
	})
}

// Last returns the most recent notification, or false if none were recorded.
func (r *Recorder) Last() (Notification, bool) {
	if len(r.Notifications) == 0 {
		return Notification{}, false
	}
	return r.Notifications[len(r.Notifications)-1], true
}

// ByLevel returns the recorded notifications of one level.
func (r *Recorder) ByLevel(level Level) []Notification {
	var out []Notification
	for _, n := range r.Notifications {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}
