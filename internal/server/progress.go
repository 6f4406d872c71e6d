package server

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// progressLogger is an uploads.ProgressSink that logs staging progress
// whenever it crosses a bucket boundary
type progressLogger struct {
	filename   string
	total      int64
	bucketSize float64
	lastBucket int
}

func newProgressLogger(filename string, total int64) *progressLogger {
	return &progressLogger{
		filename:   filename,
		total:      total,
		bucketSize: 10,
		lastBucket: -1,
	}
}

func (p *progressLogger) Progress(fraction float64) {
	percent := fraction * 100
	bucket := int(percent / p.bucketSize)
	if bucket <= p.lastBucket {
		return
	}
	p.lastBucket = bucket
	slog.Info("Staging upload",
		"filename", p.filename,
		"percent", int(percent),
		"size", humanize.Bytes(uint64(p.total)),
	)
}

func (p *progressLogger) Clear() {
	slog.Debug("Staging complete", "filename", p.filename)
	p.lastBucket = -1
}
