package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/snapcache/data"
)

const rootMode = data.ModeDir | 0755

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStat(row rowScanner) (*data.FileStat, error) {
	var stat data.FileStat
	var mode, modifyTime, createTime int64

	if err := row.Scan(&stat.Key, &mode, &stat.Size, &modifyTime, &createTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	stat.Mode = data.FileMode(mode)
	stat.ModifyTime = time.Unix(0, modifyTime)
	stat.CreateTime = time.Unix(0, createTime)
	return &stat, nil
}

func (sb *SQLiteBackend) headObject(ctx context.Context, key string) (*data.FileStat, error) {
	row := sb.db.QueryRowContext(ctx, `
		SELECT key, mode, size, modify_time, create_time
		FROM snapcache_objects WHERE key = ?
	`, key)

	return scanStat(row)
}

func (sb *SQLiteBackend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, exists := sb.keys.Get(key); exists || key == "" {
		return nil, data.ErrExist
	}

	// Verify parent directory exists
	parentKey := data.ParentKey(key)
	parent, err := sb.headObject(ctx, parentKey)
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, data.ErrNotDirectory
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapcache_objects (id, key, parent, mode, size, modify_time, create_time)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, id, key, parentKey, int64(mode), now.UnixNano(), now.UnixNano()); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE snapcache_objects SET modify_time = ? WHERE key = ?",
		now.UnixNano(), parentKey); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sb.keys.Set(key, id)
	return data.NewFileStat(key, mode, now), nil
}

func (sb *SQLiteBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var mode int64
	var content []byte
	err := sb.db.QueryRowContext(ctx,
		"SELECT mode, content FROM snapcache_objects WHERE key = ?",
		key).Scan(&mode, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, data.ErrNotExist
	}
	if err != nil {
		return 0, err
	}

	if data.FileMode(mode).IsDir() {
		return 0, data.ErrIsDirectory
	}
	if offset >= int64(len(content)) {
		return 0, io.EOF
	}

	return copy(buf, content[offset:]), nil
}

func (sb *SQLiteBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var mode int64
	var content []byte
	err = tx.QueryRowContext(ctx,
		"SELECT mode, content FROM snapcache_objects WHERE key = ?",
		key).Scan(&mode, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, data.ErrNotExist
	}
	if err != nil {
		return 0, err
	}
	if data.FileMode(mode).IsDir() {
		return 0, data.ErrIsDirectory
	}

	writeEnd := offset + int64(len(buf))
	if int64(len(content)) < writeEnd {
		expanded := make([]byte, writeEnd)
		copy(expanded, content)
		content = expanded
	}
	copy(content[offset:], buf)

	if _, err := tx.ExecContext(ctx,
		"UPDATE snapcache_objects SET content = ?, size = ?, modify_time = ? WHERE key = ?",
		content, len(content), time.Now().UnixNano(), key); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return len(buf), nil
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return err
	}

	keys := []string{key}
	if stat.IsDir() {
		prefix := key + "/"
		sb.keys.Ascend(prefix, func(child string, _ string) bool {
			if !strings.HasPrefix(child, prefix) {
				return false
			}
			keys = append(keys, child)
			return true
		})

		if len(keys) > 1 && !force {
			return data.ErrDirectoryNotEmpty
		}
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM snapcache_objects WHERE key = ?", k); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE snapcache_objects SET modify_time = ? WHERE key = ?",
		time.Now().UnixNano(), data.ParentKey(key)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, k := range keys {
		sb.keys.Delete(k)
	}
	return nil
}

func (sb *SQLiteBackend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, data.ErrNotDirectory
	}

	rows, err := sb.db.QueryContext(ctx, `
		SELECT key, mode, size, modify_time, create_time
		FROM snapcache_objects WHERE parent = ? ORDER BY key
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*data.FileStat, 0)
	for rows.Next() {
		child, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, child)
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.headObject(ctx, key)
}
