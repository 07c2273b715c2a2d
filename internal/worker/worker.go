// Package worker publishes finished recordings from local disk to object storage.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/pkg/queue"
	"github.com/shookla/walkthroughs/pkg/storage"
)

// WalkthroughStore is the subset of the walkthroughs repository the worker needs.
type WalkthroughStore interface {
	GetWalkthrough(ctx context.Context, id int64) (*models.Walkthrough, error)
	UpdateS3Result(ctx context.Context, id int64, s3Key, videoURL string) error
}

// ObjectStore uploads recordings.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// JobQueue is the worker's view of the Redis queue.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// UploadProcessor processes walkthrough upload jobs: read the local recording, upload to S3, update DB.
type UploadProcessor struct {
	repo    WalkthroughStore
	objects ObjectStore
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewUploadProcessor creates a walkthrough upload processor.
func NewUploadProcessor(repo WalkthroughStore, objects ObjectStore, q JobQueue, logger *zap.Logger) *UploadProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadProcessor{repo: repo, objects: objects, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one upload job.
func (p *UploadProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeWalkthroughUpload {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.UploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	w, err := p.repo.GetWalkthrough(ctx, payload.WalkthroughID)
	if err != nil {
		return fmt.Errorf("load walkthrough %d: %w", payload.WalkthroughID, err)
	}
	if w == nil {
		return fmt.Errorf("walkthrough not found: %d", payload.WalkthroughID)
	}
	if w.S3Key != "" {
		p.logger.Info("walkthrough already uploaded", zap.Int64("walkthrough_id", w.ID), zap.String("s3_key", w.S3Key))
		return nil
	}

	f, err := os.Open(payload.FilePath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat recording: %w", err)
	}

	key := storage.WalkthroughKey(payload.WalkthroughID, payload.SessionID)
	url, err := p.objects.Upload(ctx, key, "video/mp4", f, info.Size())
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.repo.UpdateS3Result(ctx, payload.WalkthroughID, key, url); err != nil {
		p.logger.Error("update walkthrough S3 result failed", zap.Error(err), zap.Int64("walkthrough_id", payload.WalkthroughID))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("walkthrough upload completed", zap.Int64("walkthrough_id", payload.WalkthroughID), zap.String("session_id", payload.SessionID), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *UploadProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("upload worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.wait(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, err); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.wait(ctx)
		}
	}
}

func (p *UploadProcessor) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
