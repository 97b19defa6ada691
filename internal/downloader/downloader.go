// Package downloader saves photos, stories and profile pictures of a target
// into its output directory, one file at a time.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	errs "osintgram/pkg/errors"
	"osintgram/pkg/logger"
)

// Job is a single media file to fetch
type Job struct {
	URL string
	// Name is the file name inside the output directory
	Name string
}

// Result is the outcome of one job
type Result struct {
	Job      Job
	Path     string
	Size     int
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Summary is the outcome of a run
type Summary struct {
	Results    []Result
	Downloaded int
	Skipped    int
	Failed     int
	// Truncated is set when the platform throttled the run
	Truncated bool
	Err       error
}

// MediaFetcher downloads raw media bytes
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// MediaStore persists media files
type MediaStore interface {
	Exists(name string) bool
	Save(name string, r io.Reader) (string, error)
}

// Downloader fetches jobs sequentially
type Downloader struct {
	client MediaFetcher
	store  MediaStore
	logger logger.Logger
	// Overwrite re-downloads files that already exist
	Overwrite bool
	// Observer receives the number of finished jobs
	Observer func(done int)
}

// New creates a downloader
func New(client MediaFetcher, store MediaStore, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{client: client, store: store, logger: log}
}

// Run downloads jobs in order. A failed download is recorded and the run
// continues; throttling stops the run and marks it truncated. Context
// cancellation aborts with ctx.Err().
func (d *Downloader) Run(ctx context.Context, jobs []Job) (Summary, error) {
	var sum Summary

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		res := d.process(ctx, job)
		if errs.IsThrottled(res.Err) {
			logger.LogThrottle(d.logger, "download", sum.Downloaded)
			sum.Truncated = true
			sum.Err = res.Err
			return sum, nil
		}
		if res.Err != nil && ctx.Err() != nil {
			return sum, ctx.Err()
		}

		sum.Results = append(sum.Results, res)
		switch {
		case res.Skipped:
			sum.Skipped++
		case res.Err != nil:
			sum.Failed++
		default:
			sum.Downloaded++
		}

		if d.Observer != nil {
			d.Observer(i + 1)
		}
	}
	return sum, nil
}

func (d *Downloader) process(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{Job: job}

	if !d.Overwrite && d.store.Exists(job.Name) {
		d.logger.DebugWithFields("media already downloaded", map[string]interface{}{"file": job.Name})
		res.Skipped = true
		return res
	}

	data, err := d.client.DownloadMedia(ctx, job.URL)
	if err != nil {
		res.Err = fmt.Errorf("download failed: %w", err)
		res.Duration = time.Since(start)
		d.logger.WithError(err).WarnWithFields("failed to download media", map[string]interface{}{
			"file":     job.Name,
			"duration": res.Duration,
		})
		return res
	}
	res.Size = len(data)

	path, err := d.store.Save(job.Name, bytes.NewReader(data))
	if err != nil {
		res.Err = fmt.Errorf("save failed: %w", err)
		res.Duration = time.Since(start)
		d.logger.WithError(err).WarnWithFields("failed to save media", map[string]interface{}{
			"file": job.Name,
			"size": res.Size,
		})
		return res
	}

	res.Path = path
	res.Duration = time.Since(start)
	d.logger.DebugWithFields("media saved", map[string]interface{}{
		"file":     job.Name,
		"size":     res.Size,
		"duration": res.Duration,
	})
	return res
}
