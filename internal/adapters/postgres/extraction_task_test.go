package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

var extractionTaskRowCols = []string{
	"id", "user_id", "agent_id", "user_message", "ai_response", "status", "attempts", "error", "created_at", "completed_at",
}

func TestExtractionTaskRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	task := models.NewExtractionTask("task-1", "user-1", "agent-1", "hi", "hello there")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO extraction_tasks")).
		WithArgs(task.ID, task.UserID, task.AgentID, task.UserMessage, task.AIResponse,
			task.Status, task.Attempts, task.Error, task.CreatedAt, task.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewExtractionTaskRepo(mock)
	if err := repo.Insert(context.Background(), task); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestExtractionTaskRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	task := models.NewExtractionTask("missing", "user-1", "agent-1", "hi", "hello there")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE extraction_tasks SET")).
		WithArgs(task.ID, task.UserID, task.AgentID, task.UserMessage, task.AIResponse,
			task.Status, task.Attempts, task.Error, task.CompletedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewExtractionTaskRepo(mock)
	err = repo.Update(context.Background(), task)
	if !errors.Is(err, domain.ErrExtractionTaskNotFound) {
		t.Errorf("err = %v, want ErrExtractionTaskNotFound", err)
	}
}

func TestExtractionTaskRepo_ClaimPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	task := models.NewExtractionTask("task-1", "user-1", "agent-1", "hi", "hello there")
	task.Status = models.ExtractionProcessing

	rows := pgxmock.NewRows(extractionTaskRowCols).AddRow(
		task.ID, task.UserID, task.AgentID, task.UserMessage, task.AIResponse,
		task.Status, task.Attempts, task.Error, task.CreatedAt, task.CompletedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE extraction_tasks SET status = 'processing'")).
		WithArgs(5).
		WillReturnRows(rows)

	repo := NewExtractionTaskRepo(mock)
	got, err := repo.ClaimPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(got) != 1 || got[0].Status != models.ExtractionProcessing {
		t.Errorf("got = %+v, want single processing task", got)
	}
}
