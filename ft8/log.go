package ft8

import (
	"github.com/charmbracelet/log"
)

var logger = log.WithPrefix("ft8")

// SetLogger replaces the package logger
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.WithPrefix("ft8")
	}
	logger = l
}
