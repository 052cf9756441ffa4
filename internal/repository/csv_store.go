package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tasksFileName = "tasks.csv"
	chatFileName  = "chat.csv"
)

var (
	tasksHeader = []string{"date", "start_time", "end_time", "task", "source"}
	chatHeader  = []string{"sender", "message", "timestamp"}
)

// CSVStore はユーザーごとのディレクトリにCSVファイルを置くストレージ。
// レイアウトは <root>/<user>/tasks.csv と <root>/<user>/chat.csv で、
// 既存のデータディレクトリをそのまま読み書きできる。
type CSVStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCSVStore はCSVStoreを生成する。
func NewCSVStore(root string) *CSVStore {
	return &CSVStore{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

// PingContext はルートディレクトリが作成可能かつディレクトリであることを確認する。
func (s *CSVStore) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("データディレクトリを作成できません: %w", err)
	}
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("データディレクトリにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("データディレクトリがディレクトリではありません: %s", s.root)
	}
	return nil
}

// filePath はユーザーのCSVファイルパスを返す。
// ユーザーIDがルート外を指す場合はエラーとする。
func (s *CSVStore) filePath(userID, name string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\`) || !filepath.IsLocal(userID) {
		return "", fmt.Errorf("invalid user id for file storage: %q", userID)
	}
	return filepath.Join(s.root, userID, name), nil
}

// lockFor はファイルパスごとのミューテックスを返す。
func (s *CSVStore) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// appendRecord はCSVファイルに1レコードを追記する。
func (s *CSVStore) appendRecord(path string, header, record []string) error {
	return s.appendRecords(path, header, [][]string{record})
}

// appendRecords はCSVファイルにレコードを追記する。
// ファイルが空の場合はヘッダー行も書き込む。
// レコードはバッファで組み立ててから1回のWriteで書き込み、途中までのレコードを残さない。
func (s *CSVStore) appendRecords(path string, header []string, records [][]string) error {
	l := s.lockFor(path)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ユーザーディレクトリの作成に失敗しました: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("CSVファイルを開けません: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("CSVファイルの状態を取得できません: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("CSVヘッダーの生成に失敗しました: %w", err)
		}
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("CSVレコードの生成に失敗しました: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("CSVレコードの生成に失敗しました: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("CSVレコードの書き込みに失敗しました: %w", err)
	}

	return f.Close()
}

// readRecords はCSVファイルをヘッダー名をキーとするマップの列として読み出す。
// ファイルが存在しない場合は空を返す。
func (s *CSVStore) readRecords(path string) ([]map[string]string, error) {
	l := s.lockFor(path)
	l.Lock()
	defer l.Unlock()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CSVファイルを開けません: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}

	var records []map[string]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSVレコードの読み込みに失敗しました: %w", err)
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
