package artifacts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Service provides application-level artifact operations
type Service struct {
	storage Storage
	repo    Repository
	hmacKey string
	ttl     time.Duration
	now     func() time.Time
}

// NewService creates a new artifact service
func NewService(storage Storage, repo Repository, hmacKey string, ttl time.Duration) *Service {
	return &Service{
		storage: storage,
		repo:    repo,
		hmacKey: hmacKey,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SaveRequest represents an artifact to stash
type SaveRequest struct {
	Name     string
	MimeType string
	Source   string
	Measure  string
	Content  io.Reader
}

// SaveResult represents a stashed artifact
type SaveResult struct {
	Artifact
	URL string `json:"url"`
}

// Save stores an artifact and returns its metadata with a signed URL
func (s *Service) Save(req *SaveRequest) (*SaveResult, error) {
	id := uuid.NewString()

	// Hash while copying so the content is read exactly once
	hasher := blake3.New()
	size, err := s.storage.Save(id, io.TeeReader(req.Content, hasher))
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	now := s.now().UTC()
	artifact := &Artifact{
		ID:        id,
		Name:      req.Name,
		Size:      size,
		MimeType:  req.MimeType,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
		Source:    req.Source,
		Measure:   req.Measure,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(artifact); err != nil {
		// Clean up content if metadata save fails
		s.storage.Delete(id)
		return nil, fmt.Errorf("failed to save artifact metadata: %w", err)
	}

	return &SaveResult{
		Artifact: *artifact,
		URL:      s.SignedURL(id),
	}, nil
}

// Download retrieves an artifact by ID with signature verification
func (s *Service) Download(id string, signature string) (*Artifact, io.ReadCloser, error) {
	if !s.verifySignature(id, signature) {
		return nil, nil, ErrInvalidSignature
	}

	artifact, err := s.repo.FindByID(id)
	if err != nil {
		return nil, nil, err
	}

	if s.now().After(artifact.ExpiresAt) {
		s.purge(artifact.ID)
		return nil, nil, ErrExpired
	}

	content, err := s.storage.GetContent(id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve artifact content: %w", err)
	}

	return artifact, content, nil
}

// Delete removes an artifact by ID
func (s *Service) Delete(id string) error {
	if err := s.storage.Delete(id); err != nil {
		return fmt.Errorf("failed to delete artifact from storage: %w", err)
	}

	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete artifact metadata: %w", err)
	}

	return nil
}

// List returns the metadata of all stashed artifacts
func (s *Service) List() ([]*Artifact, error) {
	return s.repo.List()
}

// CleanupExpired removes every artifact past its expiry and returns how many were removed
func (s *Service) CleanupExpired() (int, error) {
	expired, err := s.repo.ListExpired(s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired artifacts: %w", err)
	}

	removed := 0
	for _, artifact := range expired {
		if err := s.Delete(artifact.ID); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Warn("Failed to remove expired artifact", "error", err, "artifact_id", artifact.ID)
			continue
		}
		removed++
	}

	return removed, nil
}

// SignedURL creates a signed URL for artifact access
func (s *Service) SignedURL(id string) string {
	return fmt.Sprintf("/v1/artifacts/%s?signature=%s", id, s.createSignature(id))
}

func (s *Service) purge(id string) {
	if err := s.Delete(id); err != nil {
		slog.Warn("Failed to purge expired artifact", "error", err, "artifact_id", id)
	}
}

// createSignature generates HMAC signature for artifact ID
func (s *Service) createSignature(id string) string {
	h := hmac.New(sha256.New, []byte(s.hmacKey))
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}

// verifySignature validates HMAC signature for artifact ID
func (s *Service) verifySignature(id string, signature string) bool {
	expectedSignature := s.createSignature(id)
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}
