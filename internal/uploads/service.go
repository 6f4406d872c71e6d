package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Kind classifies the outcome of a conversion request
type Kind string

const (
	KindOK               Kind = ""
	KindInputMissing     Kind = "input_missing"
	KindStagingIO        Kind = "staging_io"
	KindConversion       Kind = "conversion"
	KindArtifactNotFound Kind = "artifact_not_found"
)

// Result is what a conversion request reports back to the user
type Result struct {
	Success      bool   `json:"success"`
	Kind         Kind   `json:"kind,omitempty"`
	Message      string `json:"message"`
	Warning      string `json:"warning,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	SafeName     string `json:"safe_name,omitempty"`
	StagedPath   string `json:"-"`
	Err          error  `json:"-"`
}

// Service runs one upload through staging, conversion, artifact lookup and
// cleanup
type Service struct {
	stager    Stager
	converter Converter
	workDir   string
	logger    *slog.Logger
}

// NewService creates a new upload service. workDir is the directory the
// converter runs in and is searched for its output
func NewService(stager Stager, converter Converter, workDir string) *Service {
	return &Service{
		stager:    stager,
		converter: converter,
		workDir:   workDir,
		logger:    slog.Default().With("component", "uploads"),
	}
}

// Process stages upload, converts it using the given measure column and
// locates the produced artifact. Errors are reported in the Result and the
// staged file never outlives the call
func (s *Service) Process(ctx context.Context, upload *Upload, measure string, sink ProgressSink) *Result {
	if upload == nil || upload.Content == nil {
		return &Result{Kind: KindInputMissing, Message: "Please upload a CSV file."}
	}
	if strings.TrimSpace(measure) == "" {
		return &Result{Kind: KindInputMissing, Message: "Please provide measure column."}
	}

	safe := SafeName(upload.Name)
	target := filepath.Join(s.stager.Dir(), safe)

	// The staged file is released on every path out of Process, including
	// a partial write
	defer s.release(target)

	stagedPath, err := s.stager.Stage(upload, target, sink)
	if err != nil {
		s.logger.Error("Staging failed", "error", err, "filename", safe)
		return &Result{
			Kind:       KindStagingIO,
			Message:    fmt.Sprintf("Error: %v", err),
			SafeName:   safe,
			StagedPath: target,
			Err:        err,
		}
	}
	s.logger.Info("Saved upload", "filename", safe, "path", stagedPath)

	if err := s.converter.Convert(ctx, stagedPath, measure); err != nil {
		s.logger.Error("Conversion failed", "error", err, "filename", safe, "measure", measure)
		return &Result{
			Kind:       KindConversion,
			Message:    fmt.Sprintf("Error: %v", err),
			SafeName:   safe,
			StagedPath: stagedPath,
			Err:        err,
		}
	}

	candidates := ArtifactCandidates(stagedPath, s.workDir, s.stager.Dir())
	artifact, ok := FindArtifact(candidates)
	if !ok {
		s.logger.Warn("Artifact not found", "filename", safe, "candidates", candidates)
		return &Result{
			Success:    true,
			Kind:       KindArtifactNotFound,
			Message:    "Conversion successful!",
			Warning:    fmt.Sprintf("Could not find '%s' for download.", ArtifactName),
			SafeName:   safe,
			StagedPath: stagedPath,
		}
	}

	return &Result{
		Success:      true,
		Message:      "Conversion successful!",
		ArtifactPath: artifact,
		SafeName:     safe,
		StagedPath:   stagedPath,
	}
}

// release deletes the staged file. Its failure is logged and never reported
// to the caller, so it cannot replace a conversion error
func (s *Service) release(path string) {
	if err := s.stager.Remove(path); err != nil {
		s.logger.Warn("Failed to remove staged file", "error", err, "path", path)
	}
}
