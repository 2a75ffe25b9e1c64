package port

import (
	"context"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// ReportArchiver stores assessment reports in long-term object storage.
type ReportArchiver interface {
	// ArchiveAssessment writes the assessment as a JSON report object
	// and returns the object key
	ArchiveAssessment(ctx context.Context, assessment *entity.Assessment) (string, error)
}
