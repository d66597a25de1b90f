package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"asset-pipeline/core/storage"

	"github.com/minio/minio-go/v7"
)

// ObjectIO serves a bucket prefix in object storage as an asset
// source. It implements Read, Write and List; object stores emit no
// change notifications, so there is no Watch (remote sources reload
// only on explicit request).
//
// PutObject is atomic at the object level, which satisfies the Writer
// contract without a rename dance.
type ObjectIO struct {
	client storage.Client
	bucket string
	prefix string
}

// NewObjectIO creates an object-storage source over the given bucket
// and optional key prefix.
func NewObjectIO(client storage.Client, bucket, prefix string) *ObjectIO {
	prefix = strings.Trim(prefix, "/")
	return &ObjectIO{client: client, bucket: bucket, prefix: prefix}
}

func (o *ObjectIO) key(path string) string {
	if o.prefix == "" {
		return path
	}
	return o.prefix + "/" + path
}

func (o *ObjectIO) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read object %q: %w", path, err)
	}
	return data, nil
}

func (o *ObjectIO) Write(ctx context.Context, path string, data []byte) error {
	_, err := o.client.PutObject(ctx, o.bucket, o.key(path),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put object %q: %w", path, err)
	}
	return nil
}

func (o *ObjectIO) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix := o.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []Entry
	for info := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list %q: %w", dir, info.Err)
		}
		rel := strings.TrimPrefix(info.Key, o.prefix)
		rel = strings.Trim(rel, "/")
		if rel == "" {
			continue
		}
		entries = append(entries, Entry{
			Path: rel,
			Dir:  strings.HasSuffix(info.Key, "/"),
		})
	}
	return entries, nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
