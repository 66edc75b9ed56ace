package postgres

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mwantia/snapcache/data"
)

func scanStat(row pgx.Row) (*data.FileStat, error) {
	var stat data.FileStat
	var mode, modifyTime, createTime int64

	if err := row.Scan(&stat.Key, &mode, &stat.Size, &modifyTime, &createTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	stat.Mode = data.FileMode(mode)
	stat.ModifyTime = time.Unix(0, modifyTime)
	stat.CreateTime = time.Unix(0, createTime)
	return &stat, nil
}

func (pb *PostgresBackend) headObject(ctx context.Context, q pgx.Tx, key string) (*data.FileStat, error) {
	const query = `SELECT key, mode, size, modify_time, create_time FROM snapcache_objects WHERE key = $1`
	if q != nil {
		return scanStat(q.QueryRow(ctx, query, key))
	}

	return scanStat(pb.pool.QueryRow(ctx, query, key))
}

func (pb *PostgresBackend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if key == "" {
		return nil, data.ErrExist
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := pb.headObject(ctx, tx, key); err == nil {
		return nil, data.ErrExist
	} else if !errors.Is(err, data.ErrNotExist) {
		return nil, err
	}

	parentKey := data.ParentKey(key)
	parent, err := pb.headObject(ctx, tx, parentKey)
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, data.ErrNotDirectory
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO snapcache_objects (id, key, parent, mode, size, modify_time, create_time)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
	`, uuid.Must(uuid.NewV7()).String(), key, parentKey, int64(mode), now.UnixNano()); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE snapcache_objects SET modify_time = $1 WHERE key = $2",
		now.UnixNano(), parentKey); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return data.NewFileStat(key, mode, now), nil
}

func (pb *PostgresBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var mode int64
	var content []byte
	err := pb.pool.QueryRow(ctx,
		"SELECT mode, content FROM snapcache_objects WHERE key = $1",
		key).Scan(&mode, &content)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (pb *PostgresBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var mode int64
	var content []byte
	err = tx.QueryRow(ctx,
		"SELECT mode, content FROM snapcache_objects WHERE key = $1 FOR UPDATE",
		key).Scan(&mode, &content)
	if errors.Is(err, pgx.ErrNoRows) {
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

	if _, err := tx.Exec(ctx,
		"UPDATE snapcache_objects SET content = $1, size = $2, modify_time = $3 WHERE key = $4",
		content, int64(len(content)), time.Now().UnixNano(), key); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return len(buf), nil
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string, force bool) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stat, err := pb.headObject(ctx, tx, key)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		var children int64
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM snapcache_objects WHERE parent = $1",
			key).Scan(&children); err != nil {
			return err
		}

		if children > 0 && !force {
			return data.ErrDirectoryNotEmpty
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM snapcache_objects WHERE key LIKE $1",
			escapeLike(key)+"/%"); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM snapcache_objects WHERE key = $1", key); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE snapcache_objects SET modify_time = $1 WHERE key = $2",
		time.Now().UnixNano(), data.ParentKey(key)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (pb *PostgresBackend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	stat, err := pb.headObject(ctx, nil, key)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, data.ErrNotDirectory
	}

	rows, err := pb.pool.Query(ctx, `
		SELECT key, mode, size, modify_time, create_time
		FROM snapcache_objects WHERE parent = $1 ORDER BY key
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

func (pb *PostgresBackend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.headObject(ctx, nil, key)
}

// escapeLike escapes LIKE wildcards using the default backslash escape.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}

	return string(out)
}
