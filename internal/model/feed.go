// Package model はドメインモデルを定義する。
package model

// FeedEntry はフィードソースから取得した生のエントリを表す。
// 外部から受け取る読み取り専用の値で、抽出処理以外では参照しない。
type FeedEntry struct {
	Post PostView
	// HasReason はエントリ自体がリポスト等の「理由」付きエントリであることを示す。
	// オリジナルのコンテンツではないため、抽出対象外となる。
	HasReason bool
}

// PostView はフィードエントリに含まれる投稿情報を表す。
type PostView struct {
	URI       string
	CID       string
	Author    Author
	IndexedAt string
	Record    PostRecord
	// Fields は投稿ビューのトップレベルにある文字列フィールド（IndexedAt以外）。
	// タイムスタンプのフォールバック探索にのみ使用する。
	Fields map[string]string
}

// PostRecord は投稿のレコード本体を表す。
type PostRecord struct {
	CreatedAt string
	IsReply   bool
	// Fields はレコードのトップレベルにある文字列フィールド（CreatedAt以外）。
	Fields map[string]string
}

// Author は投稿者の情報を表す。
type Author struct {
	DID    string
	Handle string
}

// QuotaKey は投稿者ごとの上限判定に使うキーを返す。
// DIDを優先し、なければハンドル、どちらもなければ "unknown" を返す。
func (a Author) QuotaKey() string {
	if a.DID != "" {
		return a.DID
	}
	if a.Handle != "" {
		return a.Handle
	}
	return "unknown"
}
