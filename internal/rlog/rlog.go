// Package rlog provides the ambient structured logger used by the
// background tasks of the async core (filesystem monitor, TLS handshake
// driver) that cannot otherwise report failures to a caller.
package rlog

import "github.com/sirupsen/logrus"

// Logger is the subset of *logrus.Entry used across this module.
type Logger = *logrus.Entry

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// For returns a logger scoped to the given component name.
func For(component string) Logger {
	return base.WithField("component", component)
}

// SetLevel adjusts the base logger's verbosity.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}
