// cmd/server runs the GlobalIdentityEngine process: it consumes
// DETECTIONS published by cmd/worker, resolves each to a global_id,
// persists dirty state, and serves the QueryFacade over HTTP/WS. It is
// the renamed, re-scoped successor of the teacher's cmd/api — the
// in-process face-matching/event-storage logic moves to internal/engine,
// the face-collection endpoints are dropped per DESIGN.md's Deletions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/reident/internal/api"
	"github.com/your-org/reident/internal/api/ws"
	"github.com/your-org/reident/internal/bus"
	"github.com/your-org/reident/internal/config"
	"github.com/your-org/reident/internal/engine"
	"github.com/your-org/reident/internal/observability"
	"github.com/your-org/reident/internal/reidmodel"
	"github.com/your-org/reident/internal/roomtopology"
	"github.com/your-org/reident/internal/snapshot"
	"github.com/your-org/reident/internal/store"
	"github.com/your-org/reident/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting identity engine server", "port", cfg.Server.Port)

	if err := store.Migrate(cfg.DB.DSN()); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	snap, err := snapshot.New(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := snap.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := bus.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	consumer, err := bus.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create nats consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	topology := roomtopology.BuildCameraTopology(cfg.Topology)
	eng := engine.New(cfg.ReID, db, topology)
	if err := eng.Bootstrap(ctx); err != nil {
		slog.Error("bootstrap gallery", "error", err)
		os.Exit(1)
	}

	rooms := roomtopology.NewStatic(cfg.Rooms)
	facade := engine.NewQueryFacade(eng, rooms)

	hub := ws.NewHub()
	go hub.Run()

	go eng.RunCleanup(ctx)
	go eng.RunSync(ctx)

	err = consumer.ConsumeDetections(ctx, "identity-engine", func(ctx context.Context, msg jetstream.Msg) error {
		return handleDetection(ctx, msg, eng, facade, producer, hub)
	}, 4)
	if err != nil {
		slog.Error("start detection consumer", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		Snapshot: snap,
		Producer: producer,
		Hub:      hub,
		Facade:   facade,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("identity engine server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down identity engine server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("identity engine server stopped")
}

// handleDetection dispatches one DETECTIONS message to either
// Engine.ReleaseBinding (subject ends in ".lost") or Engine.Resolve
// (".task"). A non-provisional outcome is published to the RESOLUTIONS
// stream; every outcome, provisional ones included, is broadcast to the
// in-process WS hub — the hub is fed directly rather than
// re-consuming RESOLUTIONS, since the resolver and the WS server are the
// same process here.
func handleDetection(ctx context.Context, msg jetstream.Msg, eng *engine.Engine, facade *engine.QueryFacade, producer *bus.Producer, hub *ws.Hub) error {
	if strings.HasSuffix(msg.Subject(), ".lost") {
		var lost dto.DetectionLost
		if err := json.Unmarshal(msg.Data(), &lost); err != nil {
			slog.Error("unmarshal detection lost", "subject", msg.Subject(), "error", err)
			return nil
		}
		eng.ReleaseBinding(lost.CameraID, lost.LocalTrackID)
		return nil
	}

	var task dto.DetectionTask
	if err := json.Unmarshal(msg.Data(), &task); err != nil {
		slog.Error("unmarshal detection task", "subject", msg.Subject(), "error", err)
		return nil
	}

	gid := eng.Resolve(ctx, engine.ResolveInput{
		CameraID:          task.CameraID,
		LocalTrackID:      task.LocalTrackID,
		BBox:              toReidBBox(task.BBox),
		Confidence:        task.Confidence,
		ConsecutiveFrames: task.ConsecutiveFrames,
		Embedding:         task.Embedding,
		EmbeddingQuality:  task.EmbeddingQuality,
		ClothingHist:      task.ClothingHist,
		SkinTone:          task.SkinTone,
	})

	event := dto.ResolutionEvent{
		CameraID:     task.CameraID,
		LocalTrackID: task.LocalTrackID,
		GlobalID:     gid,
		BBox:         task.BBox,
		Provisional:  gid == 0,
	}
	if !event.Provisional {
		if snap, ok := facade.GetPerson(gid); ok {
			event.Name = snap.AssignedName
		}
		if err := producer.PublishResolution(ctx, task.CameraID, event); err != nil {
			slog.Warn("publish resolution", "error", err)
		}
	}

	hub.BroadcastResolution(&event)
	return nil
}

func toReidBBox(b dto.BBoxResponse) reidmodel.BBox {
	return reidmodel.BBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
}
