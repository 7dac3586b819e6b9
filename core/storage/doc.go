// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for common
// operations like checking bucket existence, uploading objects and generating
// presigned URLs. This abstraction supports both AWS S3 and self-hosted MinIO
// instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easy to mock storage interactions for unit testing (see core/storage/mocks).
//
// # ImageStore
//
// ImageStore is the catalog's view of storage: it resolves the image
// references carried on product, variant and group rows into fetchable URLs
// (presigned for bucket objects, passed through for absolute links). The
// catalog never reads or writes pixels itself.
package storage
