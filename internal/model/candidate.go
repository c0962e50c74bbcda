package model

import "time"

// ContentRef はリモートのアクション呼び出しが対象を特定するために必要な参照の組。
// URI（位置）とCID（内容の整合性）は常に一緒に扱い、片方だけでは対象を特定できない。
type ContentRef struct {
	URI string
	CID string
}

// Candidate は抽出ルールをすべて通過したアクション候補を表す。
// 生成後はイミュータブルとして扱う。
type Candidate struct {
	ItemID    string
	Ref       ContentRef
	AuthorID  string
	CreatedAt time.Time
}

// Window は1回の実行で行うアクションの範囲を定める静的な設定。
type Window struct {
	Lookback     time.Duration
	MaxPerRun    int
	MaxPerAuthor int
}

// Cutoff はnowを基準にした検索範囲の下限時刻を返す。
// 下限ちょうどの候補は範囲に含まれる。
func (w Window) Cutoff(now time.Time) time.Time {
	return now.Add(-w.Lookback)
}

// ActionKind はリモートアクションの種別を表す。
type ActionKind string

const (
	// ActionAmplify は拡散（リポスト相当）アクション。
	ActionAmplify ActionKind = "amplify"
	// ActionEndorse は支持（いいね相当）アクション。
	ActionEndorse ActionKind = "endorse"
)

// ActionStatus は1つのアクションの結果状態を表す。
type ActionStatus int

const (
	// ActionNotAttempted はアクションが実行されていない状態。
	ActionNotAttempted ActionStatus = iota
	// ActionSucceeded はアクションが成功した状態。
	ActionSucceeded
	// ActionFailed はアクションが失敗した状態。
	ActionFailed
)

// String はログ出力用の文字列表現を返す。
func (s ActionStatus) String() string {
	switch s {
	case ActionSucceeded:
		return "succeeded"
	case ActionFailed:
		return "failed"
	default:
		return "not_attempted"
	}
}

// ActionResult は1つのアクションの結果と失敗理由を保持する。
type ActionResult struct {
	Status ActionStatus
	Err    error
}

// PlanEntry はアクションプランの1エントリ。
// 候補と、拡散・支持それぞれの独立した結果スロットを持つ。
type PlanEntry struct {
	Candidate Candidate
	Amplify   ActionResult
	Endorse   ActionResult
}

// Summary は1回の実行（アカウント×フィード）の集計結果を表す。
type Summary struct {
	Account       string
	Feed          string
	Candidates    int
	Selected      int
	Amplified     int
	Endorsed      int
	AmplifyFailed int
	EndorseFailed int
	DryRun        bool
	StartedAt     time.Time
	Duration      time.Duration
}
