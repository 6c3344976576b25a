package config

import (
	"github.com/sirupsen/logrus"
)

// NewLogger creates the JSON logger shared by every component
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(GetLogLevel())
	return logger
}

