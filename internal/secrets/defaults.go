package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Bucket object keys for runtime payload configuration.
const (
	objectPayloadDefaults    = "payload_defaults.json"
	objectPronunciationGuide = "pronunciation_guide.json"
)

// PronunciationEntry maps a written word to how the voice should say it.
type PronunciationEntry struct {
	Word          string `json:"word"`
	Pronunciation string `json:"pronunciation"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// PayloadDefaults are the call parameter defaults applied when neither the
// organization nor the flow overrides them.
type PayloadDefaults struct {
	Model                 string  `json:"model"`
	Voice                 string  `json:"voice"`
	Temperature           float64 `json:"temperature"`
	MaxDuration           int     `json:"max_duration"`
	InterruptionThreshold float64 `json:"interruption_threshold"`
}

// payloadDefaultsDoc is the bucket object's shape. Fields are pointers so
// an object carrying only some keys falls back per key instead of zeroing
// the rest.
type payloadDefaultsDoc struct {
	Model                 *string  `json:"model"`
	Voice                 *string  `json:"voice"`
	Temperature           *float64 `json:"temperature"`
	MaxDuration           *int     `json:"max_duration"`
	InterruptionThreshold *float64 `json:"interruption_threshold"`
}

// overlay applies the keys present in the bucket object on top of base.
func (d payloadDefaultsDoc) overlay(base PayloadDefaults) PayloadDefaults {
	if d.Model != nil && *d.Model != "" {
		base.Model = *d.Model
	}
	if d.Voice != nil && *d.Voice != "" {
		base.Voice = *d.Voice
	}
	if d.Temperature != nil {
		base.Temperature = *d.Temperature
	}
	if d.MaxDuration != nil && *d.MaxDuration > 0 {
		base.MaxDuration = *d.MaxDuration
	}
	if d.InterruptionThreshold != nil {
		base.InterruptionThreshold = *d.InterruptionThreshold
	}
	return base
}

// BuiltinDefaults returns the compiled-in payload defaults, used when no
// config bucket is available or an object is missing.
func BuiltinDefaults() PayloadDefaults {
	return PayloadDefaults{
		Model:                 "enhanced",
		Voice:                 "e1289219-0ea2-4f22-a994-c542c2a48a0f",
		Temperature:           0.5,
		MaxDuration:           300,
		InterruptionThreshold: 0.5,
	}
}

// DefaultsSource loads payload defaults and the pronunciation guide from an
// S3-compatible config bucket, once per process.
type DefaultsSource struct {
	client *minio.Client
	bucket string
	log    *logger.Logger

	once     sync.Once
	defaults PayloadDefaults
	guide    []PronunciationEntry
}

// NewDefaultsSource creates a DefaultsSource. When MinIO is not configured
// the source serves the compiled-in defaults.
func NewDefaultsSource(cfg config.MinIOConfig, log *logger.Logger) (*DefaultsSource, error) {
	src := &DefaultsSource{bucket: cfg.GetMinioBucketAppConfig(), log: log}
	if !cfg.IsMinIOEnabled() {
		return src, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	src.client = client
	return src, nil
}

// Defaults returns the payload defaults, loading them on first use.
func (s *DefaultsSource) Defaults(ctx context.Context) PayloadDefaults {
	s.load(ctx)
	return s.defaults
}

// PronunciationGuide returns the pronunciation guide, loading it on first use.
func (s *DefaultsSource) PronunciationGuide(ctx context.Context) []PronunciationEntry {
	s.load(ctx)
	return s.guide
}

func (s *DefaultsSource) load(ctx context.Context) {
	s.once.Do(func() {
		s.defaults = BuiltinDefaults()
		if s.client == nil {
			return
		}

		var doc payloadDefaultsDoc
		if err := s.getJSON(ctx, objectPayloadDefaults, &doc); err != nil {
			s.log.Warn("payload defaults object unavailable, using builtins", "error", err.Error())
		} else {
			s.defaults = doc.overlay(s.defaults)
		}

		var guide []PronunciationEntry
		if err := s.getJSON(ctx, objectPronunciationGuide, &guide); err != nil {
			s.log.Warn("pronunciation guide object unavailable", "error", err.Error())
			return
		}
		s.guide = guide
	})
}

func (s *DefaultsSource) getJSON(ctx context.Context, key string, dest any) error {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
