package uploads

import (
	"context"
	"io"
)

const (
	// ChunkSize bounds how much of an upload is held in memory at once
	ChunkSize = 1024 * 1024

	// ArtifactName is the file the converter writes its knowledge graph to
	ArtifactName = "knowledge-graph.nt"

	// ArtifactMimeType is served with downloaded artifacts
	ArtifactMimeType = "text/turtle"
)

// Upload is a user-supplied file. Content is read sequentially; if it also
// implements io.Seeker it is rewound after staging
type Upload struct {
	Name    string
	Size    int64 // declared size in bytes, <= 0 when unknown
	Content io.Reader
}

// ProgressSink receives staging progress as a fraction in [0, 1]
type ProgressSink interface {
	Progress(fraction float64)
	// Clear removes the indicator once staging is done
	Clear()
}

// Stager persists uploads under a dedicated directory
type Stager interface {
	// Stage copies upload to target and returns target
	Stage(upload *Upload, target string, sink ProgressSink) (string, error)

	// Remove deletes a staged file. A missing file is not an error
	Remove(path string) error

	// Dir is the uploads directory
	Dir() string
}

// Converter turns a staged CSV file into a knowledge graph
type Converter interface {
	Convert(ctx context.Context, csvPath, measure string) error
}

// ConverterFunc adapts a plain function to Converter
type ConverterFunc func(ctx context.Context, csvPath, measure string) error

// Convert calls f
func (f ConverterFunc) Convert(ctx context.Context, csvPath, measure string) error {
	return f(ctx, csvPath, measure)
}
