package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/feedboost/internal/ledger"
)

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 0, nil }

// mockDB はDBTXのExecContextを記録するモック。
type mockDB struct {
	execCalls int
	query     string
	args      []interface{}
	err       error
}

func (m *mockDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalls++
	m.query = query
	m.args = args
	return fakeResult{}, m.err
}

func (m *mockDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

// TestPostgresLedgerRepo_ImplementsInterfaces はPostgresLedgerRepoが各インターフェースを満たすことを検証する。
func TestPostgresLedgerRepo_ImplementsInterfaces(t *testing.T) {
	var _ LedgerRepository = (*PostgresLedgerRepo)(nil)
	var _ ledger.Store = (*PostgresLedgerRepo)(nil)
}

func TestPostgresLedgerRepo_Save_InsertsOnlyAddedIDs(t *testing.T) {
	db := &mockDB{}
	repo := NewPostgresLedgerRepo(db)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	l := ledger.New("at://old")
	l.Add("at://new-1")
	l.Add("at://new-2")

	key := ledger.Key{Account: "BG", Feed: "at://feed"}
	if err := repo.Save(context.Background(), key, l); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	if db.execCalls != 1 {
		t.Fatalf("ExecContext calls = %d, want 1", db.execCalls)
	}
	if !strings.Contains(db.query, "ON CONFLICT (account, feed, item_id) DO NOTHING") {
		t.Errorf("query should be idempotent, got: %s", db.query)
	}
	if len(db.args) != 4 {
		t.Fatalf("args = %d, want 4", len(db.args))
	}
	if db.args[0] != "BG" || db.args[1] != "at://feed" {
		t.Errorf("account/feed args = %v, %v", db.args[0], db.args[1])
	}
	arr, ok := db.args[2].(*pq.StringArray)
	if !ok {
		t.Fatalf("item ids arg type = %T, want *pq.StringArray", db.args[2])
	}
	if len(*arr) != 2 || (*arr)[0] != "at://new-1" || (*arr)[1] != "at://new-2" {
		t.Errorf("item ids = %v, want [at://new-1 at://new-2]", *arr)
	}
	if db.args[3] != fixed {
		t.Errorf("recorded_at = %v, want %v", db.args[3], fixed)
	}
}

func TestPostgresLedgerRepo_Save_NoAdditionsSkipsQuery(t *testing.T) {
	db := &mockDB{}
	repo := NewPostgresLedgerRepo(db)

	if err := repo.Save(context.Background(), ledger.Key{Account: "BG"}, ledger.New("at://old")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if db.execCalls != 0 {
		t.Errorf("ExecContext calls = %d, want 0", db.execCalls)
	}
}

func TestPostgresLedgerRepo_Save_WrapsError(t *testing.T) {
	dbErr := errors.New("connection reset")
	db := &mockDB{err: dbErr}
	repo := NewPostgresLedgerRepo(db)

	l := ledger.New()
	l.Add("at://a")

	err := repo.Save(context.Background(), ledger.Key{Account: "BG"}, l)
	if !errors.Is(err, dbErr) {
		t.Errorf("Save error = %v, want wrapped %v", err, dbErr)
	}
}
