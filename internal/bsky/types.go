package bsky

import (
	"encoding/json"

	"github.com/hitoshi/feedboost/internal/model"
)

const (
	methodCreateSession = "com.atproto.server.createSession"
	methodGetFeed       = "app.bsky.feed.getFeed"
	methodCreateRecord  = "com.atproto.repo.createRecord"

	collectionRepost = "app.bsky.feed.repost"
	collectionLike   = "app.bsky.feed.like"
)

type createSessionInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionOutput struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
}

type getFeedOutput struct {
	Cursor string         `json:"cursor,omitempty"`
	Feed   []feedViewPost `json:"feed"`
}

type feedViewPost struct {
	Post   json.RawMessage `json:"post"`
	Reason json.RawMessage `json:"reason,omitempty"`
}

type postView struct {
	URI       string          `json:"uri"`
	CID       string          `json:"cid"`
	Author    profileView     `json:"author"`
	Record    json.RawMessage `json:"record"`
	IndexedAt string          `json:"indexedAt"`
}

type profileView struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// subjectRecord はリポストといいねで共通のレコード形式。
type subjectRecord struct {
	Type      string    `json:"$type"`
	Subject   strongRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

type createRecordInput struct {
	Repo       string        `json:"repo"`
	Collection string        `json:"collection"`
	Record     subjectRecord `json:"record"`
}

type xrpcErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// collectionFor はアクション種別に対応するコレクションNSIDを返す。
func collectionFor(kind model.ActionKind) (string, bool) {
	switch kind {
	case model.ActionAmplify:
		return collectionRepost, true
	case model.ActionEndorse:
		return collectionLike, true
	default:
		return "", false
	}
}

// isPresent はJSON値が存在しnullでないかを返す。
func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// stringFields はJSONオブジェクトのトップレベルにある文字列値を抽出する。
func stringFields(raw json.RawMessage) map[string]string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
		}
	}
	return out
}

// toFeedEntry はFeedViewPostをドメインのFeedEntryに変換する。
// 投稿ビューが壊れている場合はfalseを返す。
func toFeedEntry(item feedViewPost) (model.FeedEntry, bool) {
	var pv postView
	if err := json.Unmarshal(item.Post, &pv); err != nil {
		return model.FeedEntry{}, false
	}

	postFields := stringFields(item.Post)
	delete(postFields, "uri")
	delete(postFields, "cid")
	delete(postFields, "indexedAt")

	var record model.PostRecord
	if isPresent(pv.Record) {
		var rec map[string]json.RawMessage
		if err := json.Unmarshal(pv.Record, &rec); err == nil {
			record.IsReply = isPresent(rec["reply"])
		}
		record.Fields = stringFields(pv.Record)
		record.CreatedAt = record.Fields["createdAt"]
		delete(record.Fields, "createdAt")
	}

	return model.FeedEntry{
		HasReason: isPresent(item.Reason),
		Post: model.PostView{
			URI:       pv.URI,
			CID:       pv.CID,
			Author:    model.Author{DID: pv.Author.DID, Handle: pv.Author.Handle},
			IndexedAt: pv.IndexedAt,
			Record:    record,
			Fields:    postFields,
		},
	}, true
}
