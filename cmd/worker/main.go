// cmd/worker runs the per-camera pipeline: FrameSource -> Detector ->
// LocalTracker -> (conditionally) AppearanceExtractor/ColorFeatureExtractor
// -> DETECTIONS stream. It never talks to the Engine directly — spec.md
// §1's rate-decoupling requirement is why detect/track/embed and
// resolve/match run in separate processes (cmd/worker and cmd/server)
// communicating over internal/bus, adapted from the teacher's
// ingestor+vision-worker split in cmd/ingestor and cmd/worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/reident/internal/appearance"
	"github.com/your-org/reident/internal/bus"
	"github.com/your-org/reident/internal/colorfeature"
	"github.com/your-org/reident/internal/config"
	"github.com/your-org/reident/internal/detector"
	"github.com/your-org/reident/internal/framesource"
	"github.com/your-org/reident/internal/localtrack"
	"github.com/your-org/reident/internal/observability"
	"github.com/your-org/reident/internal/reidmodel"
	"github.com/your-org/reident/pkg/dto"
)

var arcfaceMean = [3]float32{127.5, 127.5, 127.5}
var arcfaceStd = [3]float32{128.0, 128.0, 128.0}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting camera worker", "cameras", cfg.Cameras, "cpu_cores", runtime.NumCPU())

	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	det, err := newDetector(cfg.Vision)
	if err != nil {
		slog.Error("init detector", "error", err)
		os.Exit(1)
	}
	defer det.Close()

	embedder, err := newEmbedder(cfg.Vision)
	if err != nil {
		slog.Error("init embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	producer, err := bus.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	sources := make([]framesource.Source, 0, len(cfg.Cameras))
	for _, camID := range cfg.Cameras {
		sources = append(sources, framesource.NewStatic(camID, nil, detectInterval(cfg.ReID.DetectRateHz)))
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src framesource.Source) {
			defer wg.Done()
			runCamera(ctx, src, det, embedder, producer, cfg)
		}(src)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if depth, err := producer.QueueDepth(ctx); err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down camera worker...")
	cancel()
	wg.Wait()
	slog.Info("camera worker stopped")
}

// cameraState tracks the local-track bookkeeping a single camera's
// goroutine owns: the LocalTracker itself, plus each track's last
// extraction quality, whose presence marks a track as already embedded
// (the worker process has no access to the Engine's gallery — see
// internal/engine.ShouldExtractAppearance for the in-process policy
// that also applies a quality margin).
type cameraState struct {
	tracker     *localtrack.Tracker
	lastQuality map[string]float64
	framesSeen  map[string]int
}

func runCamera(ctx context.Context, src framesource.Source, det detector.Detector, embedder appearance.Embedder, producer *bus.Producer, cfg *config.Config) {
	camID := src.CameraID()
	state := &cameraState{
		tracker:     localtrack.NewTracker(camID, int(cfg.ReID.PersonTimeout/detectInterval(cfg.ReID.DetectRateHz))+1),
		lastQuality: make(map[string]float64),
		framesSeen:  make(map[string]int),
	}

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("frame source error", "camera_id", camID, "error", err)
			continue
		}

		observability.FramesProcessed.WithLabelValues(camID).Inc()
		processFrame(ctx, frame, det, embedder, producer, cfg, state)
	}
}

func processFrame(ctx context.Context, frame framesource.Frame, det detector.Detector, embedder appearance.Embedder, producer *bus.Producer, cfg *config.Config, state *cameraState) {
	boxes, err := det.Detect(ctx, frame.Detector)
	if err != nil {
		slog.Warn("detect", "camera_id", frame.CameraID, "error", err)
		return
	}
	observability.DetectionsTotal.WithLabelValues(frame.CameraID).Add(float64(len(boxes)))

	updates, lost := state.tracker.Update(frame.TS, boxes)

	for _, id := range lost {
		delete(state.lastQuality, id)
		delete(state.framesSeen, id)
		if err := producer.PublishDetectionLost(ctx, frame.CameraID, dto.DetectionLost{
			CameraID:     frame.CameraID,
			LocalTrackID: id,
		}); err != nil {
			slog.Warn("publish detection lost", "camera_id", frame.CameraID, "error", err)
		}
	}

	for _, u := range updates {
		task := dto.DetectionTask{
			CameraID:          u.Track.CameraID,
			LocalTrackID:      u.Track.LocalTrackID,
			FrameTS:           frame.TS.Format(time.RFC3339Nano),
			BBox:              toBBoxResponse(u.Track.BBox),
			Confidence:        u.Track.Confidence,
			ConsecutiveFrames: u.Track.ConsecutiveFrames,
		}

		state.framesSeen[u.Track.LocalTrackID]++

		if frame.Raw != nil {
			var crop image.Image
			if shouldExtract(u.Track, state, cfg) {
				crop = cropImage(frame.Raw, u.Track.BBox)
			}
			if crop != nil {
				inW, inH := 112, 112
				if sized, ok := embedder.(interface{ InputSize() (int, int) }); ok {
					inW, inH = sized.InputSize()
				}
				result, err := embedder.Embed(ctx, appearance.Crop{
					CHW:  imageToFloat32CHW(crop, inW, inH, arcfaceMean, arcfaceStd),
					BBox: u.Track.BBox,
				})
				if err != nil {
					slog.Warn("embed", "camera_id", frame.CameraID, "error", err)
				} else if result.Embedding != nil {
					task.Embedding = result.Embedding
					task.EmbeddingQuality = result.Quality
					state.lastQuality[u.Track.LocalTrackID] = result.Quality
				}
			}

			if state.framesSeen[u.Track.LocalTrackID]%cfg.ReID.ColorRefreshEveryKFrames == 0 {
				cf := colorfeature.Extract(frame.Raw, u.Track.BBox)
				task.ClothingHist = cf.ClothingHist
				task.SkinTone = cf.SkinTone
			}
		}

		if err := producer.PublishDetection(ctx, frame.CameraID, task); err != nil {
			slog.Warn("publish detection", "camera_id", frame.CameraID, "error", err)
		}
	}
}

// shouldExtract applies the stability gate of
// internal/engine.ShouldExtractAppearance using only state this camera's
// own goroutine has: a stable local track is embedded once, on the first
// stable frame whose crop yields an embedding. The stored quality is not
// compared, so a track is never re-embedded on a quality improvement.
func shouldExtract(track reidmodel.LocalTrack, state *cameraState, cfg *config.Config) bool {
	if track.ConsecutiveFrames < cfg.ReID.StableThreshold {
		return false
	}
	_, has := state.lastQuality[track.LocalTrackID]
	return !has
}

func toBBoxResponse(b reidmodel.BBox) dto.BBoxResponse {
	return dto.BBoxResponse{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
}

func newDetector(cfg config.VisionConfig) (*detector.ONNXDetector, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create detector session options: %w", err)
	}
	if cfg.DetectorThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.DetectorThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("set detector threads: %w", err)
		}
	}
	return detector.NewONNXDetector(cfg.ModelsDir+"/"+cfg.DetectorModel, float32(cfg.DetectThresholdF), opts)
}

func newEmbedder(cfg config.VisionConfig) (*appearance.ONNXEmbedder, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create embedder session options: %w", err)
	}
	if cfg.EmbedderThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.EmbedderThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("set embedder threads: %w", err)
		}
	}
	return appearance.NewONNXEmbedder(cfg.ModelsDir+"/"+cfg.EmbedderModel, 112, 112, opts)
}

func detectInterval(hz float64) time.Duration {
	if hz <= 0 {
		hz = 5
	}
	return time.Duration(float64(time.Second) / hz)
}

func onnxLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}
