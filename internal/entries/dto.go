package entries

import (
	"time"

	"receiving-backend/internal/extraction"
)

// EntryResponse is the operator-facing view of an entry. Status is the
// derived status, not the stored one.
type EntryResponse struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"documentNumber"`
	DocumentSeries string     `json:"documentSeries,omitempty"`
	SupplierName   string     `json:"supplierName,omitempty"`
	IssueDate      *time.Time `json:"issueDate,omitempty"`
	UploadedAt     time.Time  `json:"uploadedAt"`

	Status     string  `json:"status"`
	ProjectID  *string `json:"projectId"`
	LocationID string  `json:"locationId"`

	Items      []lineItemResponse         `json:"items"`
	Mappings   []mappingResponse          `json:"mappings"`
	Confidence extraction.ConfidenceScore `json:"confidence"`

	ReviewRequired bool `json:"reviewRequired"`
	Reviewed       bool `json:"reviewed"`
	NeedsAttention bool `json:"needsAttention"`

	CommittedMovementIDs []string  `json:"committedMovementIds,omitempty"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type lineItemResponse struct {
	Index              int    `json:"index"`
	ProductCode        string `json:"productCode"`
	Description        string `json:"description"`
	ClassificationCode string `json:"classificationCode,omitempty"`
	Quantity           string `json:"quantity"`
	UnitOfMeasure      string `json:"unitOfMeasure"`
	UnitValue          string `json:"unitValue"`
}

type mappingResponse struct {
	ItemIndex    int     `json:"itemIndex"`
	PartNumberID *string `json:"partNumberId"`
	Confidence   float64 `json:"confidence"`
	Manual       bool    `json:"manual"`
	Resolved     bool    `json:"resolved"`
}

// CommitResponse reports a confirm outcome.
type CommitResponse struct {
	EntryID          string   `json:"entryId"`
	Status           string   `json:"status"`
	Fingerprint      string   `json:"fingerprint"`
	MovementIDs      []string `json:"movementIds"`
	AlreadyCommitted bool     `json:"alreadyCommitted"`
}

func toResponse(entry Entry) EntryResponse {
	items := make([]lineItemResponse, len(entry.Items))
	for i, item := range entry.Items {
		items[i] = lineItemResponse{
			Index:              i,
			ProductCode:        item.ProductCode,
			Description:        item.Description,
			ClassificationCode: item.ClassificationCode,
			Quantity:           item.Quantity.String(),
			UnitOfMeasure:      item.UnitOfMeasure,
			UnitValue:          item.UnitValue.String(),
		}
	}
	mappings := make([]mappingResponse, len(entry.Mappings))
	for i, m := range entry.Mappings {
		mappings[i] = mappingResponse{
			ItemIndex:    m.ItemIndex,
			PartNumberID: m.PartNumberID,
			Confidence:   m.Confidence,
			Manual:       m.Manual,
			Resolved:     m.Resolved(),
		}
	}
	return EntryResponse{
		ID:                   entry.ID,
		DocumentNumber:       entry.DocumentNumber,
		DocumentSeries:       entry.DocumentSeries,
		SupplierName:         entry.SupplierName,
		IssueDate:            entry.IssueDate,
		UploadedAt:           entry.UploadedAt,
		Status:               string(entry.EffectiveStatus()),
		ProjectID:            entry.ProjectID,
		LocationID:           entry.LocationID,
		Items:                items,
		Mappings:             mappings,
		Confidence:           entry.Confidence,
		ReviewRequired:       entry.ReviewRequired(),
		Reviewed:             entry.Reviewed,
		NeedsAttention:       entry.NeedsAttention,
		CommittedMovementIDs: entry.CommittedMovementIDs,
		UpdatedAt:            entry.UpdatedAt,
	}
}

func toCommitResponse(result CommitResult) CommitResponse {
	return CommitResponse{
		EntryID:          result.EntryID,
		Status:           string(StatusCompleted),
		Fingerprint:      result.Fingerprint,
		MovementIDs:      result.MovementIDs,
		AlreadyCommitted: result.AlreadyCommitted,
	}
}
