package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/feedboost/internal/ledger"
)

// PostgresLedgerRepo はPostgreSQLを使用した台帳リポジトリ。
// ledger.Storeとしても利用できる。
type PostgresLedgerRepo struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresLedgerRepo はPostgresLedgerRepoを生成する。
func NewPostgresLedgerRepo(db DBTX) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ListItemIDs はアカウント×フィードの処理済みアイテムIDを取得する。
func (r *PostgresLedgerRepo) ListItemIDs(ctx context.Context, account, feed string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id FROM ledger_entries WHERE account = $1 AND feed = $2`,
		account, feed,
	)
	if err != nil {
		return nil, fmt.Errorf("台帳の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("台帳行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("台帳の取得に失敗しました: %w", err)
	}

	return ids, nil
}

// InsertItemIDs はアイテムIDを1文で冪等に追加する。
// UNIQUE(account, feed, item_id)制約を利用したINSERT ON CONFLICT DO NOTHINGで実装する。
func (r *PostgresLedgerRepo) InsertItemIDs(ctx context.Context, account, feed string, itemIDs []string, recordedAt time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (account, feed, item_id, recorded_at)
		 SELECT $1, $2, id, $4 FROM unnest($3::text[]) AS id
		 ON CONFLICT (account, feed, item_id) DO NOTHING`,
		account, feed, pq.Array(itemIDs), recordedAt,
	)
	if err != nil {
		return fmt.Errorf("台帳の追加に失敗しました: %w", err)
	}

	return nil
}

// Load はledger.Storeを実装する。
func (r *PostgresLedgerRepo) Load(ctx context.Context, key ledger.Key) (*ledger.Ledger, error) {
	ids, err := r.ListItemIDs(ctx, key.Account, key.Feed)
	if err != nil {
		return nil, err
	}
	return ledger.New(ids...), nil
}

// Save はledger.Storeを実装する。
// 読み込み後に追加されたIDのみを書き込み、既存行は削除しない。
func (r *PostgresLedgerRepo) Save(ctx context.Context, key ledger.Key, l *ledger.Ledger) error {
	return r.InsertItemIDs(ctx, key.Account, key.Feed, l.Added(), r.now())
}
