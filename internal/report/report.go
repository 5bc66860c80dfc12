package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
)

// Saved describes a persisted report artifact.
type Saved struct {
	ReportID string `json:"report_id"`
	Filename string `json:"filename"`
	BlobURL  string `json:"blob_url"`
}

// Writer stores report files in a blob directory and records them in the
// audit store. One record is written per reporting invocation that completes.
type Writer struct {
	dir     string
	baseURL string
	audit   *auditlog.Store
	logger  *zap.Logger
}

// NewWriter creates a report writer. audit may be nil; the file is still
// written but no durable record is kept.
func NewWriter(dir, baseURL string, audit *auditlog.Store, logger *zap.Logger) *Writer {
	if dir == "" {
		dir = "reports"
	}
	return &Writer{dir: dir, baseURL: baseURL, audit: audit, logger: logger}
}

// Save writes the report content to disk and inserts its record.
func (w *Writer) Save(ctx context.Context, conversationID, sessionID, reportType, content string) (*Saved, error) {
	if reportType == "" {
		reportType = "risk_report"
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	id := uuid.New().String()
	filename := fmt.Sprintf("%s_%s.md", reportType, time.Now().Format("20060102_150405"))
	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write report file: %w", err)
	}

	blobURL := w.baseURL
	if blobURL != "" {
		blobURL = blobURL + "/" + filename
	} else {
		blobURL = path
	}

	if w.audit != nil {
		err := w.audit.InsertReport(ctx, &auditlog.ReportRecord{
			ReportID:       id,
			SessionID:      sessionID,
			ConversationID: conversationID,
			Filename:       filename,
			BlobURL:        blobURL,
			ReportType:     reportType,
		})
		if err != nil {
			// The artifact exists on disk; surface the record failure to the
			// caller, who treats logging as best-effort.
			w.logger.Error("report record insert failed", zap.Error(err))
		}
	}

	w.logger.Info("report saved",
		zap.String("filename", filename),
		zap.String("conversation", conversationID))
	return &Saved{ReportID: id, Filename: filename, BlobURL: blobURL}, nil
}
