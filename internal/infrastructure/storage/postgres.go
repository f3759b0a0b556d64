package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"dairy-advisor/internal/pkg/common"
)

// SavedQuery 使用者儲存的推薦查詢
type SavedQuery struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Request     json.RawMessage `json:"request"`
	Summary     json.RawMessage `json:"summary,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate 檢查必要欄位
func (q *SavedQuery) Validate() error {
	switch {
	case strings.TrimSpace(q.UserID) == "":
		return &common.InvalidInputError{Field: "user_id", Reason: "must not be empty"}
	case strings.TrimSpace(q.Title) == "":
		return &common.InvalidInputError{Field: "title", Reason: "must not be empty"}
	case len(q.Title) > 200:
		return &common.InvalidInputError{Field: "title", Reason: "must be at most 200 characters"}
	case len(q.Request) == 0 || !json.Valid(q.Request):
		return &common.InvalidInputError{Field: "request", Reason: "must be a JSON document"}
	case len(q.Summary) > 0 && !json.Valid(q.Summary):
		return &common.InvalidInputError{Field: "summary", Reason: "must be a JSON document"}
	}
	return nil
}

// QueryStore 以 PostgreSQL 保存查詢
type QueryStore struct {
	db *sql.DB
}

// NewQueryStore 連線、重試 ping 並建立資料表
func NewQueryStore(ctx context.Context, dsn string) (*QueryStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &QueryStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *QueryStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS saved_queries (
			id          UUID         PRIMARY KEY,
			user_id     VARCHAR(128) NOT NULL,
			title       VARCHAR(200) NOT NULL,
			description TEXT         NOT NULL DEFAULT '',
			request     JSONB        NOT NULL,
			summary     JSONB,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_saved_queries_user ON saved_queries(user_id, created_at DESC);
	`)
	return err
}

// Save 寫入查詢並回傳帶 ID 與建立時間的紀錄
func (s *QueryStore) Save(ctx context.Context, q SavedQuery) (*SavedQuery, error) {
	if s == nil {
		return nil, common.ErrStoreDisabled
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	q.ID = common.GenerateUUID()
	var summary interface{}
	if len(q.Summary) > 0 {
		summary = []byte(q.Summary)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO saved_queries (id, user_id, title, description, request, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, q.ID, q.UserID, q.Title, q.Description, []byte(q.Request), summary).Scan(&q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert saved query: %w", err)
	}
	return &q, nil
}

// List 依建立時間由新到舊列出使用者的查詢
func (s *QueryStore) List(ctx context.Context, userID string) ([]SavedQuery, error) {
	if s == nil {
		return nil, common.ErrStoreDisabled
	}
	if strings.TrimSpace(userID) == "" {
		return nil, &common.InvalidInputError{Field: "user_id", Reason: "must not be empty"}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, request, summary, created_at
		FROM saved_queries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list saved queries: %w", err)
	}
	defer rows.Close()

	out := []SavedQuery{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Get 依 ID 讀取查詢，不存在時回傳 common.ErrNotFound
func (s *QueryStore) Get(ctx context.Context, id string) (*SavedQuery, error) {
	if s == nil {
		return nil, common.ErrStoreDisabled
	}
	if !common.IsUUID(id) {
		return nil, common.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, request, summary, created_at
		FROM saved_queries
		WHERE id = $1
	`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return q, err
}

// Delete 刪除查詢，不存在時回傳 common.ErrNotFound
func (s *QueryStore) Delete(ctx context.Context, id string) error {
	if s == nil {
		return common.ErrStoreDisabled
	}
	if !common.IsUUID(id) {
		return common.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_queries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete saved query: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete saved query: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Ping 檢查連線
func (s *QueryStore) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Close 關閉連線
func (s *QueryStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuery(row scanner) (*SavedQuery, error) {
	var (
		q       SavedQuery
		request []byte
		summary []byte
	)
	if err := row.Scan(&q.ID, &q.UserID, &q.Title, &q.Description, &request, &summary, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan saved query: %w", err)
	}
	q.Request = json.RawMessage(request)
	if len(summary) > 0 {
		q.Summary = json.RawMessage(summary)
	}
	return &q, nil
}
