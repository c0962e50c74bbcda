package model

import "time"

// RunStatus は直近の実行結果を運用向けに公開するための表現。
type RunStatus struct {
	Account       string    `json:"account"`
	Feed          string    `json:"feed"`
	RunID         string    `json:"run_id"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Candidates    int       `json:"candidates"`
	Selected      int       `json:"selected"`
	Amplified     int       `json:"amplified"`
	Endorsed      int       `json:"endorsed"`
	AmplifyFailed int       `json:"amplify_failed"`
	EndorseFailed int       `json:"endorse_failed"`
	DryRun        bool      `json:"dry_run"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}
