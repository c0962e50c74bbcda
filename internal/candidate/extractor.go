// Package candidate はフィードエントリからアクション候補を抽出する。
package candidate

import (
	"time"

	"github.com/hitoshi/feedboost/internal/model"
)

// Membership は抽出時点の台帳スナップショットへの所属判定インターフェース。
type Membership interface {
	Contains(id string) bool
}

// Reason はエントリが除外された理由を表す。
type Reason string

const (
	ReasonReshare      Reason = "reshare"
	ReasonReply        Reason = "reply"
	ReasonAlreadyDone  Reason = "already_processed"
	ReasonNoTimestamp  Reason = "no_timestamp"
	ReasonTooOld       Reason = "too_old"
	ReasonDuplicate    Reason = "duplicate_in_page"
	ReasonMissingIdent Reason = "missing_identifier"
)

// Result は抽出結果と除外理由ごとの件数を保持する。
type Result struct {
	Candidates []model.Candidate
	Excluded   map[Reason]int
}

// Extract はフィードエントリを順に評価し、候補を生成する。
// ルールは次の順で適用し、最初に該当したルールでエントリを除外する:
//  1. リポスト等の理由付きエントリ
//  2. 返信
//  3. 台帳に記録済みのID（同一ページ内の重複も含む）
//  4. createdAtがパースできない
//  5. createdAtがcutoffより古い
//
// 不正なエントリはエラーとせず、個別にスキップする。
func Extract(entries []model.FeedEntry, cutoff time.Time, done Membership) Result {
	res := Result{Excluded: make(map[Reason]int)}
	seen := make(map[string]struct{}, len(entries))

	for i := range entries {
		e := &entries[i]

		if e.HasReason {
			res.Excluded[ReasonReshare]++
			continue
		}
		if e.Post.Record.IsReply {
			res.Excluded[ReasonReply]++
			continue
		}

		id := e.Post.URI
		if id == "" || e.Post.CID == "" {
			res.Excluded[ReasonMissingIdent]++
			continue
		}
		if done != nil && done.Contains(id) {
			res.Excluded[ReasonAlreadyDone]++
			continue
		}
		if _, dup := seen[id]; dup {
			res.Excluded[ReasonDuplicate]++
			continue
		}

		createdAt, ok := CreatedAt(e)
		if !ok {
			res.Excluded[ReasonNoTimestamp]++
			continue
		}
		if createdAt.Before(cutoff) {
			res.Excluded[ReasonTooOld]++
			continue
		}

		seen[id] = struct{}{}
		res.Candidates = append(res.Candidates, model.Candidate{
			ItemID:    id,
			Ref:       model.ContentRef{URI: e.Post.URI, CID: e.Post.CID},
			AuthorID:  e.Post.Author.QuotaKey(),
			CreatedAt: createdAt,
		})
	}

	return res
}
