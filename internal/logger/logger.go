package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// Init builds the process logger once. level falls back to LOG_LEVEL, then info.
func Init(level string) {
	once.Do(func() {
		l := logrus.New()
		l.SetOutput(os.Stdout)
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})

		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		l.SetLevel(lvl)

		log = l
	})
}

// GetLogger returns the process logger, initializing it with defaults if needed.
func GetLogger() *logrus.Logger {
	Init("")
	return log
}

// With returns an entry carrying the given component name.
func With(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}
