package repository

import (
	"context"
	"os"
	"testing"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Needs a scratch database: ORACLE_TEST_POSTGRES_DSN="host=localhost user=postgres dbname=oracle_test sslmode=disable"
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("ORACLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ORACLE_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	return db
}

func TestSubmissionRepository_Lifecycle(t *testing.T) {
	repo := NewSubmissionRepository(testDB(t))
	ctx := context.Background()
	sessionID := uuid.New()

	s := domain.NewSubmission(sessionID, "2000-01-01")
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.AttachWorkflow(ctx, s.ID, "wf-1"))

	s.Finish(domain.WorkflowCompleted, &domain.WorkflowStatus{CurrentStep: 7, Steps: []string{"validate_date", "complete"}}, "")
	require.NoError(t, repo.Finish(ctx, s))

	// A late failure must not overwrite the finished row.
	late := *s
	late.Status = domain.WorkflowFailed
	late.Error = "late"
	require.NoError(t, repo.Finish(ctx, &late))

	rows, err := repo.ListBySession(ctx, sessionID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wf-1", rows[0].WorkflowID)
	assert.Equal(t, domain.WorkflowCompleted, rows[0].Status)
	assert.Equal(t, 7, rows[0].CurrentStep)
	assert.Equal(t, []string{"validate_date", "complete"}, []string(rows[0].Steps))
	assert.Empty(t, rows[0].Error)
	assert.NotNil(t, rows[0].FinishedAt)
}

func TestSubmissionRepository_AttachUnknown(t *testing.T) {
	repo := NewSubmissionRepository(testDB(t))
	err := repo.AttachWorkflow(context.Background(), uuid.New(), "wf-x")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
