// Package storage provides an abstraction layer for object storage
// services.
//
// It wraps the MinIO Go client to provide a simplified interface for
// the operations the asset source layer performs: fetching object
// bytes, writing import artifacts and listing prefixes. The
// abstraction supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider,
// making it easy to mock remote sources for unit testing (see
// core/storage/mocks). core/source.ObjectIO builds the SourceIO
// capability on top of it.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "assets")
package storage
