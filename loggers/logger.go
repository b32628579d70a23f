package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger
var logLevel logrus.Level = logrus.DebugLevel

func Init() {
	Logger = logrus.New() // initializing logger
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = level
	}
	Logger.SetLevel(logLevel)
}
