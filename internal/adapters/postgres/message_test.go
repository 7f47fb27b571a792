package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

func TestMessageRepo_Insert_NoDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	m := models.NewMessage("msg-1", "sess-1", models.RoleUser, "hello")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + messageColumns + " FROM messages")).
		WithArgs(m.SessionID, m.Role, m.Content).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "role", "content", "timestamp", "llm_latency_ms", "tts_latency_ms"}))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs(m.ID, m.SessionID, m.Role, m.Content, m.Timestamp, m.LLMLatencyMs, m.TTSLatencyMs).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewMessageRepo(mock)
	got, err := repo.Insert(context.Background(), m)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.ID != m.ID {
		t.Errorf("ID = %q, want %q", got.ID, m.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMessageRepo_Insert_ReturnsExistingDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	existingTS := time.Now().UTC()
	m := models.NewMessage("msg-new", "sess-1", models.RoleUser, "hello")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + messageColumns + " FROM messages")).
		WithArgs(m.SessionID, m.Role, m.Content).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "role", "content", "timestamp", "llm_latency_ms", "tts_latency_ms"}).
			AddRow("msg-existing", "sess-1", models.RoleUser, "hello", existingTS, nil, nil))

	repo := NewMessageRepo(mock)
	got, err := repo.Insert(context.Background(), m)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.ID != "msg-existing" {
		t.Errorf("Insert returned %q, want existing duplicate msg-existing", got.ID)
	}
	// No Exec expectation was set, so ExpectationsWereMet fails if Insert
	// tried to insert a second row.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMessageRepo_RecentBySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "session_id", "role", "content", "timestamp", "llm_latency_ms", "tts_latency_ms"}).
		AddRow("msg-2", "sess-1", models.RoleAssistant, "hi there", now, nil, nil).
		AddRow("msg-1", "sess-1", models.RoleUser, "hello", now.Add(-time.Second), nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + messageColumns + " FROM messages\nWHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2")).
		WithArgs("sess-1", 10).
		WillReturnRows(rows)

	repo := NewMessageRepo(mock)
	got, err := repo.RecentBySession(context.Background(), "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentBySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "msg-2" {
		t.Errorf("got[0].ID = %q, want msg-2", got[0].ID)
	}
}
