package ledger

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore は改行区切りのテキストファイルに台帳を保存するStore実装。
// 保存時はソート順でファイル全体を書き直す（追記はしない）。
type FileStore struct {
	dir string
	// paths はKeyごとのファイルパスの上書き設定。
	paths map[Key]string
}

// NewFileStore はdir配下に台帳ファイルを置くFileStoreを生成する。
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:   dir,
		paths: make(map[Key]string),
	}
}

// SetPath はKeyの台帳ファイルパスを明示的に指定する。
// 相対パスはdir基準で解決する。
func (s *FileStore) SetPath(key Key, path string) {
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	s.paths[key] = path
}

// Path はKeyに対応する台帳ファイルのパスを返す。
// 既定のファイル名は reposted_<account>.txt で、Key.Feedは参照しない。
// フィードごとに台帳を分ける場合はSetPathでファイルを指定する。
func (s *FileStore) Path(key Key) string {
	if p, ok := s.paths[key]; ok {
		return p
	}
	return filepath.Join(s.dir, "reposted_"+strings.ToLower(key.Account)+".txt")
}

// Load は台帳ファイルを読み込む。ファイルが存在しない場合は空の台帳を返す。
func (s *FileStore) Load(ctx context.Context, key Key) (*Ledger, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}

	return New(ids...), nil
}

// Save は台帳をソート順で一時ファイルに書き出し、renameで置き換える。
func (s *FileStore) Save(ctx context.Context, key Key, l *Ledger) error {
	path := s.Path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	var buf bytes.Buffer
	for _, id := range l.IDs() {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}
