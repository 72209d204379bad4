package repository

import (
	"context"
	"dob-oracle/internal/core/ports"
	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository
func NewSubmissionRepository(db *gorm.DB) ports.SubmissionRepository {
	return &submissionRepository{db: db}
}

// Migrate creates or updates the submissions table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Submission{})
}

func (r *submissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) AttachWorkflow(ctx context.Context, submissionID uuid.UUID, workflowID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ?", submissionID).
		Update("workflow_id", workflowID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Finish writes the terminal outcome. The status guard in the WHERE clause
// keeps a late poll from overwriting a row that already finished.
func (r *submissionRepository) Finish(ctx context.Context, submission *domain.Submission) error {
	return r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ? AND status = ?", submission.ID, domain.WorkflowRunning).
		Updates(map[string]interface{}{
			"status":       submission.Status,
			"current_step": submission.CurrentStep,
			"steps":        submission.Steps,
			"error":        submission.Error,
			"finished_at":  submission.FinishedAt,
		}).Error
}

func (r *submissionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Submission, error) {
	var submissions []domain.Submission
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&submissions).Error

	return submissions, err
}
