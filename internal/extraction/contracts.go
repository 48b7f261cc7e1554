package extraction

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ErrExtractionFailed signals the external service could not parse the
// document (malformed structure, unsupported format) or timed out.
var ErrExtractionFailed = errors.New("extraction failed")

// Risk levels attached to an extraction result.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// LineItem is one extracted line from the source document. Immutable once
// produced; the pipeline never mutates items, only their mappings.
type LineItem struct {
	ProductCode        string          `json:"productCode"`
	Description        string          `json:"description"`
	ClassificationCode string          `json:"classificationCode,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitOfMeasure      string          `json:"unitOfMeasure"`
	UnitValue          decimal.Decimal `json:"unitValue"`
}

// ConfidenceScore is the extraction quality estimate driving review gating.
type ConfidenceScore struct {
	Overall     float64            `json:"overall"`
	RiskLevel   string             `json:"riskLevel"`
	FieldScores map[string]float64 `json:"fieldScores,omitempty"`
}

// Result is the normalized output of the external extraction service.
type Result struct {
	DocumentNumber string          `json:"documentNumber"`
	DocumentSeries string          `json:"documentSeries"`
	SupplierName   string          `json:"supplierName"`
	IssueDate      *time.Time      `json:"issueDate,omitempty"`
	Items          []LineItem      `json:"items"`
	Confidence     ConfidenceScore `json:"confidence"`
}

// Client submits a raw document to the extraction service. It is a pure
// request/response adapter: it never touches the entry store.
type Client interface {
	Extract(ctx context.Context, fileName string, document io.Reader) (Result, error)
}

// PlaceholderClient is used when no extraction service is configured.
type PlaceholderClient struct{}

// Extract always fails; a real client must be configured for uploads to work.
func (PlaceholderClient) Extract(ctx context.Context, fileName string, document io.Reader) (Result, error) {
	_ = ctx
	_ = fileName
	_ = document
	return Result{}, errors.New("extraction client not configured")
}
