package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Producer publishes detection tasks (worker -> Engine) and resolution
// results (Engine -> broadcast). Grounded on the teacher's queue.Producer.
type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the JetStream streams if they don't exist yet,
// retrying to ride out NATS startup delay exactly as the teacher's
// Producer.EnsureStreams does.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        DetectionsStreamName,
			Subjects:    []string{DetectionsSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      5 * time.Minute,
			MaxMsgs:     200000,
			MaxBytes:    1 * 1024 * 1024 * 1024,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  30 * time.Second,
			Description: "Per-track observations awaiting resolution",
		},
		{
			Name:        ResolutionsStreamName,
			Subjects:    []string{ResolutionsSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Resolved global_id assignments",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

// PublishDetection publishes one track observation for cameraID.
func (p *Producer) PublishDetection(ctx context.Context, cameraID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal detection task: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.task", DetectionsSubjectBase, cameraID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish detection: %w", err)
	}
	return nil
}

// PublishDetectionLost publishes a local-track expiry for cameraID, on a
// subject distinct from PublishDetection's so a DETECTIONS consumer can
// tell the two payload shapes apart without probing the JSON body.
func (p *Producer) PublishDetectionLost(ctx context.Context, cameraID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal detection lost: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.lost", DetectionsSubjectBase, cameraID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish detection lost: %w", err)
	}
	return nil
}

// PublishResolution publishes a resolved global_id for cameraID.
func (p *Producer) PublishResolution(ctx context.Context, cameraID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", ResolutionsSubjectBase, cameraID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish resolution: %w", err)
	}
	return nil
}

// QueueDepth returns pending message count in the DETECTIONS stream, fed
// into the queue_depth gauge (spec.md §5's decoupling is only meaningful
// if this is observable).
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, DetectionsStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() { p.nc.Close() }
