package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archlens/archlens/pkg/logging"
	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/orchestrator"
	"github.com/archlens/archlens/pkg/storage"
)

// ReviewService manages review request records and reacts to execution
// completion events. It implements orchestrator.ExecutionListener, keeping the
// orchestrator decoupled from the review request's storage shape.
type ReviewService struct {
	store  storage.ReviewRequestStore
	logger logging.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store storage.ReviewRequestStore, logger logging.Logger) *ReviewService {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &ReviewService{
		store:  store,
		logger: logger,
	}
}

// Submit creates a new review request for a document version
func (s *ReviewService) Submit(documentID, documentVersion, submittedBy string) (models.ReviewRequest, error) {
	if documentID == "" {
		return models.ReviewRequest{}, models.NewValidationError("document_id is required")
	}

	now := time.Now()
	request := models.ReviewRequest{
		ID:              uuid.New().String(),
		DocumentID:      documentID,
		DocumentVersion: documentVersion,
		SubmittedBy:     submittedBy,
		Status:          models.ReviewRequestSubmitted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.SaveReviewRequest(request); err != nil {
		return models.ReviewRequest{}, fmt.Errorf("failed to save review request: %w", err)
	}

	return request, nil
}

// Get retrieves a review request
func (s *ReviewService) Get(id string) (models.ReviewRequest, error) {
	request, err := s.store.GetReviewRequest(id)
	if err != nil {
		if err == storage.ErrReviewRequestNotFound {
			return models.ReviewRequest{}, models.NewNotFoundError("review request", id)
		}
		return models.ReviewRequest{}, fmt.Errorf("failed to get review request: %w", err)
	}

	return request, nil
}

// ExecutionCompleted updates the originating review request when an execution
// reaches a terminal state
func (s *ReviewService) ExecutionCompleted(event orchestrator.ExecutionCompletedEvent) error {
	status := models.ReviewRequestReviewed
	if event.Status == models.ExecutionFailed {
		status = models.ReviewRequestFailed
	}

	if err := s.store.UpdateReviewRequestStatus(event.ReviewRequestID, status, event.ExecutionID); err != nil {
		return fmt.Errorf("failed to update review request %s: %w", event.ReviewRequestID, err)
	}

	s.logger.Info("review request updated",
		logging.F("review_request_id", event.ReviewRequestID),
		logging.F("execution_id", event.ExecutionID),
		logging.F("status", string(status)))

	return nil
}
