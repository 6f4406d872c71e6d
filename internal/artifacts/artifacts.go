package artifacts

import (
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound         = errors.New("artifact not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("artifact has expired")
)

// Artifact represents the metadata of a stashed conversion output
type Artifact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	Source    string    `json:"source,omitempty"`
	Measure   string    `json:"measure,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Repository defines the interface for storing and retrieving artifact metadata
type Repository interface {
	Create(artifact *Artifact) error
	FindByID(id string) (*Artifact, error)
	Delete(id string) error
	List() ([]*Artifact, error)
	ListExpired(now time.Time) ([]*Artifact, error)
}

// Storage defines the interface for the physical artifact storage
type Storage interface {
	Save(id string, content io.Reader) (int64, error)
	GetContent(id string) (io.ReadCloser, error)
	Delete(id string) error
}
