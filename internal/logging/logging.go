// Package logging provides the structured logger every process in this
// module logs through.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus entry tagged with the process's name and address,
// used for every log line a process emits. debug enables debug-level
// logging (the -d flag on every CLI).
func New(name, addr string, debug bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log.WithFields(logrus.Fields{
		"proc": name,
		"addr": addr,
	})
}
