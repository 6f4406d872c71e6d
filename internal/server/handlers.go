package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
	"github.com/pavel-fokin/rdf-cubes/internal/uploads"
)

// formMemory is how much of a multipart form is kept in memory; larger
// uploads spill to temporary files
const formMemory = 8 << 20

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "index.html", nil); err != nil {
		slog.Error("Failed to render form", "error", err)
	}
}

type conversionResponse struct {
	Success     bool                `json:"success"`
	Kind        uploads.Kind        `json:"kind,omitempty"`
	Message     string              `json:"message"`
	Warning     string              `json:"warning,omitempty"`
	DownloadURL string              `json:"download_url,omitempty"`
	Artifact    *artifacts.Artifact `json:"artifact,omitempty"`
}

func convert(uploadService *uploads.Service, artifactService *artifacts.Service, history ConversionLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(formMemory)
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			http.Error(w, "Request entity too large", http.StatusRequestEntityTooLarge)
			return
		case err != nil && !errors.Is(err, http.ErrNotMultipart):
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		measure := r.FormValue("measure")
		upload, file := formUpload(r)
		if file != nil {
			defer file.Close()
		}

		var sink uploads.ProgressSink
		if upload != nil {
			sink = newProgressLogger(uploads.SafeName(upload.Name), upload.Size)
		}

		// Conversion is not cancelled when the client goes away
		ctx := context.WithoutCancel(r.Context())
		result := uploadService.Process(ctx, upload, measure, sink)

		resp := &conversionResponse{
			Success: result.Success,
			Kind:    result.Kind,
			Message: result.Message,
			Warning: result.Warning,
		}

		if result.ArtifactPath != "" {
			saved, err := stashArtifact(artifactService, result, upload, measure)
			if err != nil {
				slog.Error("Failed to stash artifact", "error", err, "path", result.ArtifactPath)
				resp.Warning = fmt.Sprintf("Could not prepare '%s' for download.", uploads.ArtifactName)
			} else {
				resp.DownloadURL = saved.URL
				resp.Artifact = &saved.Artifact
				releaseArtifact(result.ArtifactPath)
			}
		}

		if result.Kind != uploads.KindInputMissing {
			recordConversion(history, upload, measure, result, resp)
		}

		status := http.StatusOK
		switch result.Kind {
		case uploads.KindInputMissing:
			status = http.StatusBadRequest
		case uploads.KindConversion:
			status = http.StatusUnprocessableEntity
		case uploads.KindStagingIO:
			status = http.StatusInternalServerError
			if errors.As(result.Err, &maxBytesErr) {
				status = http.StatusRequestEntityTooLarge
			}
		}

		respond(w, r, status, resp)
	}
}

// formUpload returns the uploaded file, or nil when none was selected
func formUpload(r *http.Request) (*uploads.Upload, multipart.File) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil
	}
	return &uploads.Upload{
		Name:    header.Filename,
		Size:    header.Size,
		Content: file,
	}, file
}

func stashArtifact(artifactService *artifacts.Service, result *uploads.Result, upload *uploads.Upload, measure string) (*artifacts.SaveResult, error) {
	content, err := os.Open(result.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer content.Close()

	return artifactService.Save(&artifacts.SaveRequest{
		Name:     uploads.ArtifactName,
		MimeType: uploads.ArtifactMimeType,
		Source:   upload.Name,
		Measure:  measure,
		Content:  content,
	})
}

// releaseArtifact removes the converter output once the stash holds a copy,
// so a later conversion cannot pick it up. Failure is logged only
func releaseArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove converter output", "error", err, "path", path)
	}
}

func recordConversion(history ConversionLog, upload *uploads.Upload, measure string, result *uploads.Result, resp *conversionResponse) {
	rec := &uploads.Record{
		ID:         uuid.NewString(),
		SourceName: upload.Name,
		SafeName:   result.SafeName,
		Measure:    measure,
		Success:    result.Success,
		Kind:       result.Kind,
		Message:    result.Message,
		CreatedAt:  time.Now(),
	}
	if resp.Artifact != nil {
		rec.ArtifactID = resp.Artifact.ID
	}
	if err := history.Record(rec); err != nil {
		slog.Error("Failed to record conversion", "error", err, "filename", result.SafeName)
	}
}

// respond writes a JSON body, or the result page for browser form posts
func respond(w http.ResponseWriter, r *http.Request, status int, resp *conversionResponse) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := pages.ExecuteTemplate(w, "result.html", resp); err != nil {
			slog.Error("Failed to render result", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func listConversions(history ConversionLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		records, err := history.Conversions(limit)
		if err != nil {
			slog.Error("List conversions failed", "error", err)
			http.Error(w, "Failed to list conversions", http.StatusInternalServerError)
			return
		}

		writeJSON(w, records)
	}
}

func listArtifacts(artifactService *artifacts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := artifactService.List()
		if err != nil {
			slog.Error("List artifacts failed", "error", err)
			http.Error(w, "Failed to list artifacts", http.StatusInternalServerError)
			return
		}

		writeJSON(w, list)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func deleteArtifact(artifactService *artifacts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("Deleting artifact", "artifact_id", id)

		err := artifactService.Delete(id)
		if errors.Is(err, artifacts.ErrNotFound) {
			http.Error(w, "Artifact not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("Delete failed", "error", err, "artifact_id", id)
			http.Error(w, "Delete failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func signedDownload(artifactService *artifacts.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		signature := r.URL.Query().Get("signature")
		slog.Info("Downloading artifact", "artifact_id", id)

		artifact, content, err := artifactService.Download(id, signature)
		if errors.Is(err, artifacts.ErrInvalidSignature) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if err != nil {
			slog.Error("Download failed", "error", err, "artifact_id", id)
			http.Error(w, "Download failed", http.StatusNotFound)
			return
		}
		defer content.Close()

		etag := `"` + artifact.Checksum + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", artifact.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", artifact.Name))
		w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, content); err != nil {
			slog.Error("Failed to stream artifact", "error", err, "artifact_id", id)
		}
	}
}
