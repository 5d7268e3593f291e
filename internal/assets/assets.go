// Package assets moves audio files from the legacy website into the
// object store.
//
// Failures here are data, not control flow: Transfer reports a [Result]
// and never propagates transport errors, so the orchestrator's retry
// accounting stays the single source of truth for attempt counts.
package assets

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/HaoWang-SSCA/migrate/internal/models"
	"github.com/HaoWang-SSCA/migrate/internal/shared"
	"github.com/HaoWang-SSCA/migrate/internal/storage"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// contentTypes maps audio file extensions to MIME types. Anything else
// uploads as application/octet-stream.
var contentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".ogg": "audio/ogg",
	".wma": "audio/x-ms-wma",
}

// Result is the outcome of one transfer attempt.
type Result struct {
	Success bool
	Bytes   int64
	Error   string
}

// Service downloads audio files from the legacy site and streams them
// into the object store.
type Service struct {
	store       storage.ObjectStore
	client      *http.Client
	limiter     *rate.Limiter
	domain      string
	sundayPath  string
	specialPath string
	logger      *log.Logger
}

// NewService creates an asset transfer service. downloadsPerSecond <= 0
// disables throttling; the legacy host is a shared production server, so
// runs normally keep a small positive limit.
func NewService(cfg shared.WebsiteConfig, store storage.ObjectStore, client *http.Client, downloadsPerSecond int, logger *log.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}

	var limiter *rate.Limiter
	if downloadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(downloadsPerSecond), 1)
	}

	return &Service{
		store:       store,
		client:      client,
		limiter:     limiter,
		domain:      strings.TrimSuffix(cfg.Domain, "/"),
		sundayPath:  strings.TrimSuffix(cfg.SundayAudioPath, "/"),
		specialPath: strings.TrimSuffix(cfg.SpecialAudioPath, "/"),
		logger:      logger,
	}
}

// ComposeSourceURL builds the legacy download URL for a record's audio file.
func (s *Service) ComposeSourceURL(collection models.Collection, filename string) string {
	if filename == "" {
		return ""
	}
	prefix := s.sundayPath
	if collection == models.CollectionSpecial {
		prefix = s.specialPath
	}
	return fmt.Sprintf("%s%s/%s", s.domain, prefix, filename)
}

// ComposeObjectKey builds the deterministic target key for an audio
// file, organized by collection and year: "sunday/2024/file.mp3".
func ComposeObjectKey(collection models.Collection, filename string, date time.Time) string {
	return fmt.Sprintf("%s/%d/%s", collection, date.Year(), filename)
}

// ContentType derives the upload MIME type from the file extension.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Exists reports whether the target key is already populated.
func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	return s.store.Exists(ctx, key)
}

// PingStorage verifies the object store is reachable.
func (s *Service) PingStorage(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CheckWebsite probes the legacy site. Reachability is advisory: audio
// files may be migrated in a separate pass, so a failure here never
// aborts the run.
func (s *Service) CheckWebsite(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.domain, nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("source website not reachable", "url", s.domain, "error", err)
		return false
	}
	resp.Body.Close()

	s.logger.Info("source website reachable", "url", s.domain, "status", resp.StatusCode)
	return true
}

// Transfer downloads sourceURL and streams it into the object store
// under targetKey. When the key already exists and overwrite is false,
// the transfer short-circuits as a zero-byte success.
func (s *Service) Transfer(ctx context.Context, sourceURL, targetKey string, overwrite bool) Result {
	if !overwrite {
		exists, err := s.store.Exists(ctx, targetKey)
		if err != nil {
			return Result{Error: err.Error()}
		}
		if exists {
			s.logger.Debug("object already exists, skipping transfer", "key", targetKey)
			return Result{Success: true}
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{Error: err.Error()}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}

	s.logger.Debug("downloading", "url", sourceURL)
	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("download failed: HTTP %d", resp.StatusCode)}
	}

	// The response body streams straight into the upload; large files
	// never sit in memory whole.
	bytes, err := s.store.Upload(ctx, targetKey, resp.Body, resp.ContentLength, ContentType(targetKey))
	if err != nil {
		return Result{Error: err.Error()}
	}

	s.logger.Info("uploaded", "key", targetKey, "bytes", bytes)
	return Result{Success: true, Bytes: bytes}
}
