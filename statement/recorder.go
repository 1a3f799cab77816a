package statement

import (
	log "github.com/sirupsen/logrus"

	"github.com/helenus-driver/helenus-sub004/api"
)

// Recorder observes object-bound statements as they are staged into a
// batch. Notification happens at add time, before any network round-trip.
type Recorder interface {
	// Recorded is invoked once per object statement staged into the batch.
	Recorded(stmt api.ObjectStatement)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(stmt api.ObjectStatement)

// Recorded calls f.
func (f RecorderFunc) Recorded(stmt api.ObjectStatement) { f(stmt) }

// notifyRecorded delivers one notification, isolating listener failures: a
// panicking recorder is logged and never aborts the batch build.
func notifyRecorded(r Recorder, stmt api.ObjectStatement) {
	if r == nil {
		return
	}
	defer func() {
		if cause := recover(); cause != nil {
			log.WithField("cause", cause).
				Error("recorder notification failed")
		}
	}()
	r.Recorded(stmt)
}

// ErrorHandler is invoked after a failed commit of a batch.
type ErrorHandler func(err error)

// runErrorHandler runs one handler, swallowing and logging its own failure.
func runErrorHandler(h ErrorHandler, err error) {
	defer func() {
		if cause := recover(); cause != nil {
			log.WithField("cause", cause).
				Error("error handler failed")
		}
	}()
	h(err)
}
