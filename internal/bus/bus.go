// Package bus decouples per-camera detect/track/embed workers from the
// Engine process over NATS JetStream (spec.md §5's rate-decoupling
// requirement: camera workers run at their own detect_rate_hz while the
// Engine consumes at whatever pace it can sustain). Grounded directly on
// the teacher's internal/queue package; stream/subject names are
// generalized from frame-task/event to detection-task/resolution.
package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DetectionsStreamName carries per-track observations from camera
	// workers to the Engine: one message per LocalTracker update.
	DetectionsStreamName  = "DETECTIONS"
	DetectionsSubjectBase = "detections"

	// ResolutionsStreamName carries resolved global_ids back out, for the
	// WebSocket broadcast hub and any other downstream subscriber.
	ResolutionsStreamName  = "RESOLUTIONS"
	ResolutionsSubjectBase = "resolutions"
)

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}
