package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with the service field preset.
type Logger struct {
	*logrus.Logger
	service string
}

// New returns a JSON logger writing to stdout at the level named by LOG_LEVEL.
func New(serviceName string) *Logger {
	return NewWithOutput(serviceName, os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithOutput is New with an explicit writer and level.
func NewWithOutput(serviceName string, w io.Writer, level string) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(w)
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return &Logger{Logger: log, service: serviceName}
}

// Entry returns an entry carrying the service name.
func (l *Logger) Entry() *logrus.Entry {
	return l.WithField("service", l.service)
}

// WithParticipant adds participant_id to the entry.
func (l *Logger) WithParticipant(participantID string) *logrus.Entry {
	return l.Entry().WithField("participant_id", participantID)
}

// Discard returns a logger that writes nothing, for tests and tools.
func Discard() *Logger {
	return NewWithOutput("test", io.Discard, "error")
}
