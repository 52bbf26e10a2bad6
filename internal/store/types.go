// Package store provides embedded persistence for visit assessments.
// It is used by the standalone MCP binary, where no Postgres is available.
package store

import (
	"context"
	"io"
	"time"

	"github.com/posbindu-risk-engine/internal/domain"
)

// ExportVersion is the format version written by ExportJSON.
const ExportVersion = "1.0"

// AssessmentExport is the JSON document produced by ExportJSON.
type AssessmentExport struct {
	Version     string                    `json:"version"`
	ExportedAt  time.Time                 `json:"exported_at"`
	Count       int                       `json:"count"`
	Assessments []*domain.VisitAssessment `json:"assessments"`
}

// Portable is an AssessmentStore that can move its contents as JSON.
type Portable interface {
	domain.AssessmentStore

	// ExportJSON writes every stored assessment to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export and saves assessments whose visit is not
	// already stored. Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)
}
