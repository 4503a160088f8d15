package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters, exposed at /metrics on the API.
var (
	CapturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_captures_total",
		Help: "Frames submitted for classification.",
	})
	RecognizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_recognized_faces_total",
		Help: "Faces resolved to an enrolled employee.",
	})
	UnknownTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_unknown_faces_total",
		Help: "Faces no enrolled employee matched.",
	})
	ClassifierFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_classifier_failures_total",
		Help: "Transient recognizer errors.",
	})
	CheckinsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_checkins_created_total",
		Help: "New attendance records opened.",
	})
	CheckinsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_checkins_duplicate_total",
		Help: "Check-in attempts suppressed as already recorded.",
	})
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facetrack_checkouts_total",
		Help: "Attendance records closed.",
	})
)
