// Package selection は候補の並び替えと上限適用によりアクションプランを構築する。
package selection

import (
	"sort"

	"github.com/hitoshi/feedboost/internal/model"
)

// Select は候補をcreatedAt昇順（古い順）に安定ソートし、
// 投稿者ごとの上限と実行あたりの上限を適用したアクションプランを返す。
//
// 上限は1回の実行内の上限であり、実行をまたいだ公平性は保証しない。
// 常にソート順の先頭付近にいる投稿者は、毎回の枠を占有し続けることがある。
// 入力のスライスは変更しない。
func Select(candidates []model.Candidate, w model.Window) []model.PlanEntry {
	if w.MaxPerRun <= 0 || w.MaxPerAuthor <= 0 || len(candidates) == 0 {
		return nil
	}

	sorted := make([]model.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	capacity := w.MaxPerRun
	if len(sorted) < capacity {
		capacity = len(sorted)
	}
	plan := make([]model.PlanEntry, 0, capacity)
	perAuthor := make(map[string]int)

	for _, c := range sorted {
		if len(plan) >= w.MaxPerRun {
			break
		}
		if perAuthor[c.AuthorID] >= w.MaxPerAuthor {
			continue
		}
		perAuthor[c.AuthorID]++
		plan = append(plan, model.PlanEntry{Candidate: c})
	}

	return plan
}
