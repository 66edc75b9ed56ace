package s3

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/data"
)

const (
	// User metadata carrying the nanosecond modification time. S3 itself only
	// reports LastModified with second precision.
	mtimeMetadata = "Snapcache-Mtime"
	modeMetadata  = "Snapcache-Mode"
)

// S3Backend stores objects in an S3 compatible bucket below a key prefix.
//
// Directories are zero-byte marker objects ending in "/". The marker is
// rewritten whenever a direct child is created or removed, which is how the
// directory modification time advances.
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
}

// S3BackendConfig contains configuration options for the S3 backend
type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Prefix for all object keys (default: "snapcache")
	Prefix string
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, data.ErrInvalid
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "snapcache"
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return data.ErrMountFailed
	}

	// Make sure the root directory marker exists
	if _, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.dirKey(""), minio.StatObjectOptions{}); err != nil {
		if !isNotFound(err) {
			return err
		}

		return sb.putMarker(ctx, "", data.ModeDir|0755, time.Now())
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
			backend.CapabilityShared,
		},
	}
}

func (sb *S3Backend) fileKey(key string) string {
	return sb.config.Prefix + "/" + key
}

func (sb *S3Backend) dirKey(key string) string {
	if key == "" {
		return sb.config.Prefix + "/"
	}

	return sb.config.Prefix + "/" + key + "/"
}

// toKey converts an object key back into a backend key.
func (sb *S3Backend) toKey(objectKey string) string {
	key := strings.TrimPrefix(objectKey, sb.config.Prefix+"/")
	return strings.TrimSuffix(key, "/")
}

// putMarker writes a directory marker (or empty file) carrying mode and mtime.
func (sb *S3Backend) putMarker(ctx context.Context, key string, mode data.FileMode, now time.Time) error {
	objectKey := sb.fileKey(key)
	opts := minio.PutObjectOptions{
		UserMetadata: map[string]string{
			mtimeMetadata: strconv.FormatInt(now.UnixNano(), 10),
			modeMetadata:  strconv.FormatUint(uint64(mode), 10),
		},
	}

	if mode.IsDir() {
		objectKey = sb.dirKey(key)
		opts.ContentType = string(data.ContentTypeDirectory)
	} else {
		opts.ContentType = string(data.GetMIMEType(key))
	}

	_, err := sb.client.PutObject(ctx, sb.config.Bucket, objectKey, bytes.NewReader([]byte{}), 0, opts)
	return err
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func metadataValue(info minio.ObjectInfo, name string) (string, bool) {
	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, name) || strings.EqualFold(k, "X-Amz-Meta-"+name) {
			return v, true
		}
	}

	return "", false
}

func (sb *S3Backend) toFileStat(info minio.ObjectInfo) *data.FileStat {
	isDir := strings.HasSuffix(info.Key, "/") || info.ContentType == string(data.ContentTypeDirectory)

	stat := &data.FileStat{
		Key:        sb.toKey(info.Key),
		Mode:       0644,
		Size:       info.Size,
		ModifyTime: info.LastModified,
		CreateTime: info.LastModified,
	}

	if v, ok := metadataValue(info, modeMetadata); ok {
		if mode, err := strconv.ParseUint(v, 10, 32); err == nil {
			stat.Mode = data.FileMode(mode)
		}
	}
	if isDir {
		stat.Mode |= data.ModeDir
		stat.Size = 0
	}

	if v, ok := metadataValue(info, mtimeMetadata); ok {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			stat.ModifyTime = time.Unix(0, ns)
		}
	}

	return stat
}
