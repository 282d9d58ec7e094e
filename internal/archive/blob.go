// Package archive writes terminal execution records to cold storage
package archive

import (
	"context"
	"encoding/json"
	"errors"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/nodebase/engine/pkg/api"
)

// BlobArchiver stores execution records using gocloud.dev/blob, supporting
// S3, GCS, Azure Blob Storage, and S3-compatible stores
type BlobArchiver struct {
	bucket *blob.Bucket
	prefix string
}

// ErrArchiveNotFound is returned when no record exists for an execution
var ErrArchiveNotFound = errors.New("archive record not found")

// NewBlobArchiver opens the bucket at the supplied URL
func NewBlobArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*BlobArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobArchiver{bucket: bucket, prefix: prefix}, nil
}

// Archive writes the execution record as JSON
func (a *BlobArchiver) Archive(
	ctx context.Context, exec *api.Execution,
) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(exec.ID), data, nil)
}

// Get reads back an archived execution record
func (a *BlobArchiver) Get(
	ctx context.Context, id api.ExecutionID,
) (*api.Execution, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrArchiveNotFound
		}
		return nil, err
	}
	var exec api.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// Delete removes an archived record. Deleting a missing record is not an
// error
func (a *BlobArchiver) Delete(
	ctx context.Context, id api.ExecutionID,
) error {
	err := a.bucket.Delete(ctx, a.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (a *BlobArchiver) Close() error {
	return a.bucket.Close()
}

func (a *BlobArchiver) keyFor(id api.ExecutionID) string {
	return a.prefix + string(id) + ".json"
}
