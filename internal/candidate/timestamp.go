package candidate

import (
	"strings"
	"time"

	"github.com/hitoshi/feedboost/internal/model"
)

// TimestampFields はcreatedAtのフォールバック探索で試すフィールド名の順序。
// 各フィールド名について、レコードの値を投稿ビューの値より優先する。
var TimestampFields = []string{"createdAt", "indexedAt", "created_at", "timestamp"}

// timestampProbe はフィードエントリから1つのフィールド名の値を取り出すアクセサ。
type timestampProbe struct {
	field string
	get   func(e *model.FeedEntry) string
}

// timestampProbes はTimestampFieldsの順序でアクセサを構築する。
func timestampProbes() []timestampProbe {
	probes := make([]timestampProbe, 0, len(TimestampFields))
	for _, field := range TimestampFields {
		f := field
		probes = append(probes, timestampProbe{
			field: f,
			get: func(e *model.FeedEntry) string {
				if v := recordField(&e.Post.Record, f); v != "" {
					return v
				}
				return postField(&e.Post, f)
			},
		})
	}
	return probes
}

var probes = timestampProbes()

func recordField(r *model.PostRecord, field string) string {
	if field == "createdAt" && r.CreatedAt != "" {
		return r.CreatedAt
	}
	return r.Fields[field]
}

func postField(p *model.PostView, field string) string {
	if field == "indexedAt" && p.IndexedAt != "" {
		return p.IndexedAt
	}
	return p.Fields[field]
}

// timestampLayouts はISO-8601形式として受け付けるレイアウト。
// タイムゾーンのない値はUTCとして扱う。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp はISO-8601形式の文字列をパースする。
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// CreatedAt はフォールバック順にフィールドを探索し、最初にパースできた時刻を返す。
// 値が空のフィールドは飛ばし、パースできない値の場合は次のフィールド名を試す。
func CreatedAt(e *model.FeedEntry) (time.Time, bool) {
	for _, p := range probes {
		v := p.get(e)
		if v == "" {
			continue
		}
		if t, ok := ParseTimestamp(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
