// Package ledger は処理済みアイテムIDの台帳を提供する。
// 台帳は実行開始時に1回読み込まれ、実行中に追記され、実行終了時に1回だけ永続化される。
package ledger

import (
	"context"
	"sort"
)

// Key は台帳のスコープ（アカウント×フィード）を表す。
type Key struct {
	Account string
	Feed    string
}

// Store は台帳の永続化インターフェース。
// 同一Keyに対する並行実行は想定しない。
// スコープの粒度は実装ごとに異なる。PostgresLedgerRepoはアカウント×フィード単位、
// FileStoreの既定ファイルはアカウント単位（フィードを切り替えても同じ台帳を引き継ぐ）。
type Store interface {
	// Load はKeyに対応する台帳のスナップショットを読み込む。
	// 台帳が存在しない場合は空の台帳を返す。
	Load(ctx context.Context, key Key) (*Ledger, error)

	// Save は台帳を永続化する。既存のIDは削除されない。
	Save(ctx context.Context, key Key, l *Ledger) error
}

// Ledger は処理済みアイテムIDの集合。
// 1回の実行が所有し、パイプラインに参照で渡す。
type Ledger struct {
	ids   map[string]struct{}
	added []string
}

// New は指定IDを含む台帳を生成する。
func New(ids ...string) *Ledger {
	l := &Ledger{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		l.ids[id] = struct{}{}
	}
	return l
}

// Contains はIDが台帳に含まれるかを返す。
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Add はIDを台帳に追加する。新規に追加された場合はtrueを返す。
func (l *Ledger) Add(id string) bool {
	if id == "" || l.Contains(id) {
		return false
	}
	l.ids[id] = struct{}{}
	l.added = append(l.added, id)
	return true
}

// Len は台帳のID数を返す。
func (l *Ledger) Len() int {
	return len(l.ids)
}

// Added は読み込み後に追加されたIDを追加順で返す。
func (l *Ledger) Added() []string {
	out := make([]string, len(l.added))
	copy(out, l.added)
	return out
}

// Dirty は読み込み後に追加があったかを返す。
func (l *Ledger) Dirty() bool {
	return len(l.added) > 0
}

// IDs は全IDをソート済みで返す。
func (l *Ledger) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
