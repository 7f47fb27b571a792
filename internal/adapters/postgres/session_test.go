package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

func TestSessionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	s := &models.Session{
		ID: "sess-1", UserID: "user-1", AgentID: "agent-1",
		Type: "voice", Title: "", Active: true, StartedAt: time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(s.ID, s.UserID, s.AgentID, s.Type, s.Title, s.Active, s.StartedAt, s.EndedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSessionRepo(mock)
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSessionRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	s := &models.Session{ID: "missing", UserID: "u", AgentID: "a", Type: "voice"}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET")).
		WithArgs(s.ID, s.UserID, s.AgentID, s.Type, s.Title, s.Active, s.StartedAt, s.EndedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewSessionRepo(mock)
	err = repo.Update(context.Background(), s)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "user_id", "agent_id", "type", "title", "active", "started_at", "ended_at"}).
		AddRow("sess-1", "user-1", "agent-1", "voice", "", true, now, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM sessions WHERE id = $1")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	repo := NewSessionRepo(mock)
	s, err := repo.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.Active {
		t.Errorf("Active = false, want true")
	}
}
