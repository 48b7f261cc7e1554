package entries

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"receiving-backend/internal/catalog"
	"receiving-backend/internal/extraction"
	"receiving-backend/internal/mapping"
	"receiving-backend/internal/shared/metrics"
	"receiving-backend/internal/shared/storage/object"
	"receiving-backend/internal/shared/telemetry"
)

// Service implements the operator-facing entry pipeline: upload, mapping
// maintenance, gating actions and the terminal transitions.
type Service struct {
	store             Store
	catalog           catalog.Lookup
	extractor         extraction.Client
	objects           object.ObjectStore
	committer         *Committer
	extractionTimeout time.Duration
}

func NewService(store Store, cat catalog.Lookup, extractor extraction.Client, objects object.ObjectStore, committer *Committer, extractionTimeout time.Duration) *Service {
	if extractionTimeout <= 0 {
		extractionTimeout = 60 * time.Second
	}
	return &Service{
		store:             store,
		catalog:           cat,
		extractor:         extractor,
		objects:           objects,
		committer:         committer,
		extractionTimeout: extractionTimeout,
	}
}

// UploadRequest carries one document into the pipeline.
type UploadRequest struct {
	FileName   string
	LocationID string
	ProjectID  *string
	Document   io.Reader
}

// Upload extracts the document, resolves mappings against the current catalog
// and creates the pending entry. Extraction failure creates nothing: the
// operator re-uploads or types the receipt in manually elsewhere.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (Entry, error) {
	location, err := s.catalog.FindLocation(ctx, req.LocationID)
	if err != nil {
		return Entry{}, fmt.Errorf("lookup location: %w", err)
	}
	if location == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidLocation, req.LocationID)
	}

	if req.ProjectID != nil && *req.ProjectID != "" {
		project, err := s.catalog.FindProject(ctx, *req.ProjectID)
		if err != nil {
			return Entry{}, fmt.Errorf("lookup project: %w", err)
		}
		if project == nil {
			return Entry{}, fmt.Errorf("%w: %s", ErrInvalidProject, *req.ProjectID)
		}
	} else {
		req.ProjectID = nil
	}

	document, err := io.ReadAll(req.Document)
	if err != nil {
		return Entry{}, fmt.Errorf("read upload: %w", err)
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.extractionTimeout)
	defer cancel()
	result, err := s.extractor.Extract(extractCtx, req.FileName, bytes.NewReader(document))
	if err != nil {
		return Entry{}, err
	}

	storageKey, _, _, err := s.objects.Save(ctx, req.LocationID, req.FileName, bytes.NewReader(document))
	if err != nil {
		return Entry{}, fmt.Errorf("store document: %w", err)
	}

	parts, err := s.catalog.PartNumbers(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("load part numbers: %w", err)
	}

	status := StatusPendingConfirmation
	if req.ProjectID == nil {
		status = StatusPendingProject
	}

	entry := Entry{
		ID:             uuid.NewString(),
		DocumentNumber: result.DocumentNumber,
		DocumentSeries: result.DocumentSeries,
		SupplierName:   result.SupplierName,
		IssueDate:      result.IssueDate,
		UploadedAt:     time.Now().UTC(),
		Status:         status,
		ProjectID:      req.ProjectID,
		LocationID:     req.LocationID,
		StorageKey:     storageKey,
		Items:          result.Items,
		Mappings:       mapping.Resolve(result.Items, parts),
		Confidence:     result.Confidence,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}

	metrics.IncEntryCreated()
	telemetry.Info("entry created", map[string]any{
		"entry_id":     entry.ID,
		"document_ref": entry.DocumentRef(),
		"location_id":  entry.LocationID,
		"risk_level":   entry.Confidence.RiskLevel,
		"items":        len(entry.Items),
	})
	return entry, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	return s.store.Get(ctx, id)
}

// List returns entries, optionally filtered by operator-facing status. The
// derived approval state is filtered after the store query: both approval and
// confirmation present as PENDING_CONFIRMATION in storage.
func (s *Service) List(ctx context.Context, statusRaw string, limit, offset int) ([]Entry, error) {
	filter := ListFilter{Limit: limit, Offset: offset}

	var wanted Status
	if statusRaw != "" {
		status, err := ParseStatus(statusRaw)
		if err != nil {
			return nil, err
		}
		wanted = status
		stored := status
		if status == StatusPendingApproval {
			stored = StatusPendingConfirmation
		}
		filter.Statuses = []Status{stored}
	}

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if wanted != StatusPendingApproval && wanted != StatusPendingConfirmation {
		return list, nil
	}

	out := list[:0]
	for _, entry := range list {
		if entry.EffectiveStatus() == wanted {
			out = append(out, entry)
		}
	}
	return out, nil
}

// AssignProject moves a PENDING_PROJECT entry forward by assigning its
// destination project.
func (s *Service) AssignProject(ctx context.Context, id, projectID string) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPendingProject {
		return Entry{}, fmt.Errorf("%w: assign project from %s", ErrInvalidTransition, entry.Status)
	}

	project, err := s.catalog.FindProject(ctx, projectID)
	if err != nil {
		return Entry{}, fmt.Errorf("lookup project: %w", err)
	}
	if project == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidProject, projectID)
	}

	status := StatusPendingConfirmation
	return s.store.Update(ctx, id, Patch{Status: &status, ProjectID: &projectID}, StatusPendingProject)
}

// MappingUpdate is one operator-chosen part number for a line.
type MappingUpdate struct {
	ItemIndex    int
	PartNumberID *string
}

// UpdateMappings replaces the entry's mappings with operator choices. The
// update must cover every line exactly once. Changing any mapping invalidates
// a prior review: approval covers a specific mapping configuration.
func (s *Service) UpdateMappings(ctx context.Context, id string, updates []MappingUpdate) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPendingConfirmation && entry.Status != StatusPendingProject {
		return Entry{}, fmt.Errorf("%w: update mappings from %s", ErrInvalidTransition, entry.Status)
	}
	if len(updates) != len(entry.Items) {
		return Entry{}, fmt.Errorf("%w: got %d updates for %d items", ErrMappingCountMismatch, len(updates), len(entry.Items))
	}

	next := make([]mapping.FieldMapping, len(entry.Items))
	changed := false
	for _, upd := range updates {
		if upd.ItemIndex < 0 || upd.ItemIndex >= len(entry.Items) {
			return Entry{}, fmt.Errorf("%w: item index %d out of range", ErrMappingCountMismatch, upd.ItemIndex)
		}
		if upd.PartNumberID != nil && *upd.PartNumberID != "" {
			part, err := s.findPartNumberByID(ctx, *upd.PartNumberID)
			if err != nil {
				return Entry{}, err
			}
			if part == nil {
				return Entry{}, fmt.Errorf("%w: %s", ErrInvalidPartNumber, *upd.PartNumberID)
			}
		}

		current := mapping.FieldMapping{ItemIndex: upd.ItemIndex}
		if upd.ItemIndex < len(entry.Mappings) {
			current = entry.Mappings[upd.ItemIndex]
		}

		m := mapping.FieldMapping{
			ItemIndex:    upd.ItemIndex,
			PartNumberID: upd.PartNumberID,
			Confidence:   current.Confidence,
			Manual:       current.Manual,
		}
		if !samePartNumber(current.PartNumberID, upd.PartNumberID) {
			m.Manual = true
			m.Confidence = 1.0
			changed = true
		}
		next[upd.ItemIndex] = m
	}

	patch := Patch{Mappings: next}
	if changed && entry.Reviewed {
		reviewed := false
		patch.Reviewed = &reviewed
	}
	return s.store.Update(ctx, id, patch, entry.Status)
}

// RefreshMappings re-resolves automatic mappings against the current catalog,
// keeping every manual override in place.
func (s *Service) RefreshMappings(ctx context.Context, id string) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPendingConfirmation && entry.Status != StatusPendingProject {
		return Entry{}, fmt.Errorf("%w: refresh mappings from %s", ErrInvalidTransition, entry.Status)
	}

	parts, err := s.catalog.PartNumbers(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("load part numbers: %w", err)
	}
	merged := mapping.Merge(entry.Mappings, mapping.Resolve(entry.Items, parts))
	if mapping.Equal(entry.Mappings, merged) {
		return entry, nil
	}

	patch := Patch{Mappings: merged}
	if entry.Reviewed {
		reviewed := false
		patch.Reviewed = &reviewed
	}
	return s.store.Update(ctx, id, patch, entry.Status)
}

// MarkReviewed records operator approval of a flagged entry.
func (s *Service) MarkReviewed(ctx context.Context, id string) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.EffectiveStatus() != StatusPendingApproval {
		return Entry{}, fmt.Errorf("%w: review from %s", ErrInvalidTransition, entry.EffectiveStatus())
	}

	reviewed := true
	return s.store.Update(ctx, id, Patch{Reviewed: &reviewed}, StatusPendingConfirmation)
}

// Confirm commits the entry to the inventory ledger.
func (s *Service) Confirm(ctx context.Context, id string) (CommitResult, error) {
	return s.committer.Confirm(ctx, id)
}

// Reject discards an entry the operator decided not to receive. Only entries
// waiting for approval or confirmation can be rejected.
func (s *Service) Reject(ctx context.Context, id string) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPendingConfirmation {
		return Entry{}, fmt.Errorf("%w: reject from %s", ErrInvalidTransition, entry.Status)
	}
	status := StatusRejected
	return s.store.Update(ctx, id, Patch{Status: &status}, StatusPendingConfirmation)
}

// Cancel abandons an entry before any commit starts. A PROCESSING entry can
// no longer be cancelled: the commit wins and runs to completion.
func (s *Service) Cancel(ctx context.Context, id string) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPendingProject && entry.Status != StatusPendingConfirmation {
		return Entry{}, fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, entry.Status)
	}
	status := StatusCancelled
	return s.store.Update(ctx, id, Patch{Status: &status}, entry.Status)
}

// OpenDocument streams the stored source document.
func (s *Service) OpenDocument(ctx context.Context, id string) (io.ReadCloser, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.StorageKey == "" {
		return nil, ErrNotFound
	}
	return s.objects.Open(ctx, entry.StorageKey)
}

func (s *Service) findPartNumberByID(ctx context.Context, id string) (*catalog.PartNumber, error) {
	parts, err := s.catalog.PartNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load part numbers: %w", err)
	}
	for i := range parts {
		if parts[i].ID == id {
			return &parts[i], nil
		}
	}
	return nil, nil
}

func samePartNumber(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
