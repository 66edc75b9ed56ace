package s3

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/snapcache/data"
)

func (sb *S3Backend) headObject(ctx context.Context, key string) (*data.FileStat, error) {
	if key != "" {
		info, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.fileKey(key), minio.StatObjectOptions{})
		if err == nil {
			return sb.toFileStat(info), nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	info, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.dirKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	return sb.toFileStat(info), nil
}

func (sb *S3Backend) CreateObject(ctx context.Context, key string, mode data.FileMode) (*data.FileStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, err := sb.headObject(ctx, key); err == nil {
		return nil, data.ErrExist
	}

	parentKey := data.ParentKey(key)
	parent, err := sb.headObject(ctx, parentKey)
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, data.ErrNotDirectory
	}

	now := time.Now()
	if err := sb.putMarker(ctx, key, mode, now); err != nil {
		return nil, err
	}

	// Rewrite the parent marker to advance its modification time
	if err := sb.putMarker(ctx, parentKey, parent.Mode, now); err != nil {
		return nil, err
	}

	return data.NewFileStat(key, mode, now), nil
}

func (sb *S3Backend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return 0, err
	}
	if stat.IsDir() {
		return 0, data.ErrIsDirectory
	}
	if offset >= stat.Size {
		return 0, io.EOF
	}

	object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.fileKey(key), minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer object.Close()

	n, err := object.ReadAt(buf, offset)
	if err == io.EOF && n > 0 {
		return n, nil
	}

	return n, err
}

func (sb *S3Backend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return 0, err
	}
	if stat.IsDir() {
		return 0, data.ErrIsDirectory
	}

	// S3 doesn't support partial writes - read-modify-write the whole object
	var existing []byte
	if stat.Size > 0 {
		object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.fileKey(key), minio.GetObjectOptions{})
		if err != nil {
			return 0, err
		}
		existing, err = io.ReadAll(object)
		object.Close()
		if err != nil {
			return 0, err
		}
	}

	writeEnd := offset + int64(len(buf))
	content := make([]byte, max(writeEnd, int64(len(existing))))
	copy(content, existing)
	copy(content[offset:], buf)

	_, err = sb.client.PutObject(ctx, sb.config.Bucket, sb.fileKey(key), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  string(data.GetMIMEType(key)),
		UserMetadata: map[string]string{
			mtimeMetadata: strconv.FormatInt(time.Now().UnixNano(), 10),
			modeMetadata:  strconv.FormatUint(uint64(stat.Mode), 10),
		},
	})
	if err != nil {
		return 0, err
	}

	return len(buf), nil
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string, force bool) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if key == "" {
		return data.ErrInvalid
	}

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return err
	}

	if !stat.IsDir() {
		if err := sb.client.RemoveObject(ctx, sb.config.Bucket, sb.fileKey(key), minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	} else {
		marker := sb.dirKey(key)
		var objects []string
		for info := range sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
			Prefix:    marker,
			Recursive: true,
		}) {
			if info.Err != nil {
				return info.Err
			}
			if info.Key != marker {
				objects = append(objects, info.Key)
			}
		}

		if len(objects) > 0 && !force {
			return data.ErrDirectoryNotEmpty
		}

		errs := data.Errors{}
		for _, objectKey := range append(objects, marker) {
			errs.Add(sb.client.RemoveObject(ctx, sb.config.Bucket, objectKey, minio.RemoveObjectOptions{}))
		}
		if err := errs.Errors(); err != nil {
			return err
		}
	}

	parentKey := data.ParentKey(key)
	parent, err := sb.headObject(ctx, parentKey)
	if err != nil {
		return err
	}

	return sb.putMarker(ctx, parentKey, parent.Mode, time.Now())
}

func (sb *S3Backend) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	stat, err := sb.headObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, data.ErrNotDirectory
	}

	marker := sb.dirKey(key)
	result := make([]*data.FileStat, 0)

	for info := range sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:       marker,
		Recursive:    false,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return nil, info.Err
		}
		if info.Key == marker {
			continue
		}

		// Common prefixes carry no metadata, stat the child marker instead
		if info.LastModified.IsZero() {
			child, err := sb.client.StatObject(ctx, sb.config.Bucket, info.Key, minio.StatObjectOptions{})
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, err
			}
			info = child
		}

		result = append(result, sb.toFileStat(info))
	}

	return result, nil
}

func (sb *S3Backend) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.headObject(ctx, key)
}
