// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX は*sql.DBと*sql.Txの共通操作を抽象化するインターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// LedgerEntry は台帳テーブルの1行を表す。
type LedgerEntry struct {
	Account    string
	Feed       string
	ItemID     string
	RecordedAt time.Time
}

// LedgerRepository は処理済みアイテムIDの永続化インターフェース。
// (account, feed, item_id) の組で一意となる。
type LedgerRepository interface {
	// ListItemIDs はアカウント×フィードの処理済みアイテムIDを取得する。
	ListItemIDs(ctx context.Context, account, feed string) ([]string, error)

	// InsertItemIDs はアイテムIDを冪等に追加する。既存の組は変更しない。
	InsertItemIDs(ctx context.Context, account, feed string, itemIDs []string, recordedAt time.Time) error
}
