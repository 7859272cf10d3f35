package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nftgen/core"

	"github.com/google/uuid"
)

// Generation statuses.
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Generation modes.
const (
	ModeDiffusion = "diffusion"
	ModeBasic     = "basic"
	ModeOriginal  = "original" // both pipelines failed; the upload was echoed back
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000000"

// ErrNotFound is returned when no generation has the requested id.
var ErrNotFound = errors.New("history: generation not found")

// Generation is one request to the generation service.
type Generation struct {
	ID           string         `json:"id"`
	Style        string         `json:"style"`
	CustomPrompt string         `json:"customPrompt,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
	Status       string         `json:"status"`
	Mode         string         `json:"mode,omitempty"`
	Provider     string         `json:"provider,omitempty"`
	InputPath    string         `json:"inputPath,omitempty"`
	OutputPath   string         `json:"outputPath,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ProcessingMS int64          `json:"processingTimeMs"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Store persists generations.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open creates the database file and its directory if needed, applies
// migrations and returns a ready Store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := core.EnsureParentDir(path); err != nil {
		return nil, err
	}
	if err := MigrateUp(path); err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the connection. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Insert stores g, assigning an id and creation time when unset, and returns
// the id.
func (s *Store) Insert(ctx context.Context, g Generation) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if g.Status == "" {
		g.Status = StatusGenerating
	}

	meta, err := encodeMetadata(g.Metadata)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", fmt.Errorf("database connection is closed")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generations (
			id, style, custom_prompt, prompt, status, mode, provider,
			input_path, output_path, metadata, processing_ms, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Style, nullString(g.CustomPrompt), nullString(g.Prompt), g.Status,
		nullString(g.Mode), nullString(g.Provider), nullString(g.InputPath), nullString(g.OutputPath),
		meta, g.ProcessingMS, nullString(g.Error), g.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("failed to insert generation: %w", err)
	}
	return g.ID, nil
}

// Finish records the outcome of generation id.
func (s *Store) Finish(ctx context.Context, id, status, mode, outputPath string, processing time.Duration, genErr error) error {
	var errMsg string
	if genErr != nil {
		errMsg = genErr.Error()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return fmt.Errorf("database connection is closed")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET status = ?, mode = ?, output_path = ?, processing_ms = ?, error_message = ?
		WHERE id = ?`,
		status, nullString(mode), nullString(outputPath), processing.Milliseconds(), nullString(errMsg), id)
	if err != nil {
		return fmt.Errorf("failed to update generation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MergeMetadata merges fields into the metadata of generation id. Keys
// already present are overwritten.
func (s *Store) MergeMetadata(ctx context.Context, id string, fields map[string]any) error {
	patch, err := encodeMetadata(fields)
	if err != nil || patch == nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return fmt.Errorf("database connection is closed")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET metadata = json_patch(COALESCE(metadata, '{}'), ?)
		WHERE id = ?`,
		patch, id)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const selectColumns = `
	SELECT id, style, COALESCE(custom_prompt, ''), COALESCE(prompt, ''), status,
	       COALESCE(mode, ''), COALESCE(provider, ''), COALESCE(input_path, ''),
	       COALESCE(output_path, ''), COALESCE(metadata, ''), processing_ms,
	       COALESCE(error_message, ''), created_at
	FROM generations`

// Get returns the generation with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	g, err := scanGeneration(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return g, err
}

// Recent returns up to limit generations, newest first. limit <= 0 means 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	out := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}
	return out, nil
}

// Count returns the number of stored generations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, fmt.Errorf("database connection is closed")
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return n, nil
}

// Cleanup deletes generations older than retentionDays and returns how many
// were removed.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retentionDays must be non-negative, got %d", retentionDays)
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UTC().Format(timeLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("database connection is closed")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old generations: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*Generation, error) {
	var g Generation
	var meta, createdAt string
	err := row.Scan(&g.ID, &g.Style, &g.CustomPrompt, &g.Prompt, &g.Status, &g.Mode, &g.Provider,
		&g.InputPath, &g.OutputPath, &meta, &g.ProcessingMS, &g.Error, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan generation row: %w", err)
	}

	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &g.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", g.ID, err)
		}
	}
	g.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &g, nil
}

func encodeMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
