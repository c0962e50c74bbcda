package model

// Credentials はアカウントのログイン情報を表す。
type Credentials struct {
	Identifier string
	Password   string
}

// Actor はログイン済みアカウント自身の識別情報を表す。
// アクションのリポジトリ指定に使用する。
type Actor struct {
	DID    string
	Handle string
}
