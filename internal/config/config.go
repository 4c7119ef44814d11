// Package config loads the ReID engine's configuration from a YAML file
// with environment variable overrides, the way the teacher repo's
// internal/config package does it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	DB      DBConfig       `yaml:"database"`
	NATS    NATSConfig     `yaml:"nats"`
	MinIO   MinIOConfig    `yaml:"minio"`
	Vision  VisionConfig   `yaml:"vision"`
	ReID    ReIDConfig     `yaml:"reid"`
	Logging LoggingConfig  `yaml:"logging"`
	Rooms   map[string][]string `yaml:"rooms"`
	Topology []TopologyEdge     `yaml:"topology"`
	Cameras []string            `yaml:"cameras"`
}

// TopologyEdge declares one pair of cameras' spatial relationship
// (spec.md §4.6.4's spatial stage). Transition is one of "overlap",
// "adjacent", "gap"; an unlisted pair is treated as unrelated.
type TopologyEdge struct {
	CameraA    string `yaml:"camera_a"`
	CameraB    string `yaml:"camera_b"`
	Transition string `yaml:"transition"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// VisionConfig covers the Detector and AppearanceExtractor ONNX sessions.
type VisionConfig struct {
	ModelsDir        string `yaml:"models_dir"`
	DetectorModel    string `yaml:"detector_model"`
	EmbedderModel    string `yaml:"embedder_model"`
	DetectorThreads  int    `yaml:"detector_threads"`
	EmbedderThreads  int    `yaml:"embedder_threads"`
	MinFaceSize      int    `yaml:"min_crop_size"`
	DetectThresholdF float64 `yaml:"detect_threshold"`
}

// ReIDConfig is the matching/gallery configuration surface named in
// spec.md §6, with the teacher's YAML-tag + default-filling conventions.
type ReIDConfig struct {
	StableThreshold          int           `yaml:"stable_threshold"`
	FaceSimilarityThreshold  float64       `yaml:"face_similarity_threshold"`
	DimensionTolerance       float64       `yaml:"dimension_tolerance"`
	DimensionThreshold       float64       `yaml:"dimension_threshold"`
	ColorThreshold           float64       `yaml:"color_threshold"`
	ClothingWeight           float64       `yaml:"clothing_weight"`
	SkinWeight               float64       `yaml:"skin_weight"`
	ColorSigma               float64       `yaml:"color_sigma"`
	ColorEMAAlpha            float64       `yaml:"color_ema_alpha"`
	PersonTimeout            time.Duration `yaml:"person_timeout_s"`
	CleanupInterval          time.Duration `yaml:"cleanup_interval_s"`
	DBSyncInterval           time.Duration `yaml:"db_sync_interval_s"`
	PositionTTL              time.Duration `yaml:"position_ttl_s"`
	DetectRateHz             float64       `yaml:"detect_rate_hz"`
	ColorRefreshEveryKFrames int           `yaml:"color_refresh_every_k_frames"`
	QualityMargin            float64       `yaml:"quality_margin"`
	DBOpTimeout              time.Duration `yaml:"db_op_timeout_s"`
	SpatialTolerancePx       float64       `yaml:"spatial_tolerance_px"`
	AutoName                 bool          `yaml:"auto_name"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable
// overrides, then fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 20
	}
	if cfg.Vision.DetectorThreads == 0 {
		cfg.Vision.DetectorThreads = 2
	}
	if cfg.Vision.EmbedderThreads == 0 {
		cfg.Vision.EmbedderThreads = 2
	}
	if cfg.Vision.MinFaceSize == 0 {
		cfg.Vision.MinFaceSize = 64
	}
	if cfg.Vision.DetectThresholdF == 0 {
		cfg.Vision.DetectThresholdF = 0.5
	}

	r := &cfg.ReID
	if r.StableThreshold == 0 {
		r.StableThreshold = 3
	}
	if r.FaceSimilarityThreshold == 0 {
		r.FaceSimilarityThreshold = 0.5
	}
	if r.DimensionTolerance == 0 {
		r.DimensionTolerance = 0.10
	}
	if r.DimensionThreshold == 0 {
		r.DimensionThreshold = 0.9
	}
	if r.ColorThreshold == 0 {
		r.ColorThreshold = 0.7
	}
	if r.ClothingWeight == 0 {
		r.ClothingWeight = 0.6
	}
	if r.SkinWeight == 0 {
		r.SkinWeight = 0.4
	}
	if r.ColorSigma == 0 {
		r.ColorSigma = 0.25
	}
	if r.ColorEMAAlpha == 0 {
		r.ColorEMAAlpha = 0.3
	}
	if r.PersonTimeout == 0 {
		r.PersonTimeout = 30 * time.Second
	}
	if r.CleanupInterval == 0 {
		r.CleanupInterval = 60 * time.Second
	}
	if r.DBSyncInterval == 0 {
		r.DBSyncInterval = 5 * time.Second
	}
	if r.PositionTTL == 0 {
		r.PositionTTL = 10 * time.Second
	}
	if r.ColorRefreshEveryKFrames == 0 {
		r.ColorRefreshEveryKFrames = 10
	}
	if r.QualityMargin == 0 {
		r.QualityMargin = 0.05
	}
	if r.DBOpTimeout == 0 {
		r.DBOpTimeout = 2 * time.Second
	}
	if r.SpatialTolerancePx == 0 {
		r.SpatialTolerancePx = 80
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REID_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("REID_DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("REID_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = port
		}
	}
	if v := os.Getenv("REID_DB_NAME"); v != "" {
		cfg.DB.Name = v
	}
	if v := os.Getenv("REID_DB_USER"); v != "" {
		cfg.DB.User = v
	}
	if v := os.Getenv("REID_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("REID_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("REID_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("REID_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("REID_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("REID_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("REID_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("REID_STABLE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReID.StableThreshold = n
		}
	}
	if v := os.Getenv("REID_FACE_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReID.FaceSimilarityThreshold = f
		}
	}
	if v := os.Getenv("REID_PERSON_TIMEOUT_S"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReID.PersonTimeout = time.Duration(f * float64(time.Second))
		}
	}
}
