package port

import (
	"context"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// ScorePublisher ships risk scores to an external metrics backend
// (CloudWatch). Can be nil-checked by callers when disabled.
type ScorePublisher interface {
	// PublishAssessment buffers overall and per-category scores for publishing
	PublishAssessment(ctx context.Context, assessment *entity.Assessment) error

	// Flush forces publication of buffered datapoints
	Flush(ctx context.Context) error

	// Close stops background flushing and drains the buffer
	Close(ctx context.Context) error
}
