// Package bsky はAT Protocol（Bluesky）のXRPC APIクライアントを提供する。
// ログイン、フィード取得、リポスト・いいねレコードの作成のみを扱う。
package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/feedboost/internal/model"
)

const (
	// DefaultHost は既定のPDSホスト。
	DefaultHost = "https://bsky.social"
	// MaxFeedLimit はgetFeedの1ページあたりの最大件数。
	MaxFeedLimit = 100
	// maxResponseSize はレスポンスボディの読み取り上限。
	maxResponseSize = 8 << 20
	userAgent       = "feedboost/1.0"
)

// Client はXRPC APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	host       string
	now        func() time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// hostが空の場合はDefaultHostを使用する。
func NewClient(httpClient *http.Client, host string, logger *slog.Logger) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		host:       strings.TrimRight(host, "/"),
		now:        time.Now,
	}
}

// Session はログイン済みのセッション。
// フィード取得とアクション実行はセッションのアクセストークンで行う。
type Session struct {
	client    *Client
	accessJwt string
	actor     model.Actor
}

// Login はcom.atproto.server.createSessionでセッションを作成する。
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*Session, error) {
	var out createSessionOutput
	in := createSessionInput{Identifier: creds.Identifier, Password: creds.Password}
	if err := c.procedure(ctx, "", methodCreateSession, in, &out); err != nil {
		return nil, err
	}
	if out.AccessJwt == "" || out.DID == "" {
		return nil, fmt.Errorf("xrpc %s: session response is missing token or did", methodCreateSession)
	}

	return &Session{
		client:    c,
		accessJwt: out.AccessJwt,
		actor:     model.Actor{DID: out.DID, Handle: out.Handle},
	}, nil
}

// Actor はログインしたアカウント自身の識別情報を返す。
func (s *Session) Actor() model.Actor {
	return s.actor
}

// FetchFeed はapp.bsky.feed.getFeedでフィードの1ページを取得する。
// 個々の壊れたエントリは読み飛ばし、ページ全体のデコード失敗はエラーを返す。
func (s *Session) FetchFeed(ctx context.Context, feedURI string, limit int) ([]model.FeedEntry, error) {
	if limit <= 0 || limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	q := url.Values{}
	q.Set("feed", feedURI)
	q.Set("limit", strconv.Itoa(limit))

	var out getFeedOutput
	if err := s.client.query(ctx, s.accessJwt, methodGetFeed, q, &out); err != nil {
		return nil, err
	}

	entries := make([]model.FeedEntry, 0, len(out.Feed))
	skipped := 0
	for _, item := range out.Feed {
		entry, ok := toFeedEntry(item)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if skipped > 0 {
		s.client.logger.Debug("skipped malformed feed entries",
			slog.Int("skipped", skipped),
		)
	}

	return entries, nil
}

// Perform はcom.atproto.repo.createRecordで拡散（リポスト）または支持（いいね）のレコードを作成する。
func (s *Session) Perform(ctx context.Context, kind model.ActionKind, actor string, ref model.ContentRef) error {
	collection, ok := collectionFor(kind)
	if !ok {
		return fmt.Errorf("unsupported action kind: %q", kind)
	}
	if ref.URI == "" || ref.CID == "" {
		return errors.New("content reference requires both uri and cid")
	}

	in := createRecordInput{
		Repo:       actor,
		Collection: collection,
		Record: subjectRecord{
			Type:      collection,
			Subject:   strongRef{URI: ref.URI, CID: ref.CID},
			CreatedAt: s.client.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		},
	}
	return s.client.procedure(ctx, s.accessJwt, methodCreateRecord, in, nil)
}

// query はXRPCのquery（GET）を呼び出す。
func (c *Client) query(ctx context.Context, token, method string, params url.Values, out any) error {
	reqURL := c.host + "/xrpc/" + method
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	return c.do(req, token, method, out)
}

// procedure はXRPCのprocedure（POST）を呼び出す。
func (c *Client) procedure(ctx context.Context, token, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, method, out)
}

func (c *Client) do(req *http.Request, token, method string, out any) error {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("XRPCの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("xrpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("xrpc %s: レスポンスボディの読み取りに失敗しました: %w", method, err)
	}

	if ClassifyHTTPStatus(resp.StatusCode) != StatusOK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode}
		var eb xrpcErrorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Name = eb.Error
			apiErr.Message = eb.Message
		}
		c.logger.Warn("XRPCがエラーステータスを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
			slog.String("class", apiErr.Class().String()),
			slog.String("xrpc_error", apiErr.Name),
		)
		return apiErr
	}

	c.logger.Debug("xrpc call completed",
		slog.String("method", method),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("xrpc %s: レスポンスJSONのパースに失敗しました: %w", method, err)
	}
	return nil
}
