// SPDX-License-Identifier: MIT

package domainstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/metrics"
)

// uploadDataType is the data_type form field for worker-produced artifacts.
const uploadDataType = "task_output"

// MultipartUpload is a chunked artifact writer. The default sink does not
// support it; callers must be prepared for ErrMultipartUnsupported.
type MultipartUpload interface {
	WriteChunk(data []byte) error
	Finish() error
}

// Sink uploads task outputs under the session's logical path prefix and
// records each success in the artifact table.
type Sink struct {
	client    *Client
	prefix    string
	artifacts *ArtifactTable
}

// NewSink creates a sink. An empty prefix is legal; the once-per-session
// debug event for a missing outputs_prefix is emitted by the session during
// binding, not here.
func NewSink(client *Client, prefix string, artifacts *ArtifactTable) *Sink {
	return &Sink{client: client, prefix: prefix, artifacts: artifacts}
}

// logicalPath joins the configured prefix with the artifact's relative path.
// With no prefix the relative path is used as-is.
func (s *Sink) logicalPath(relPath string) string {
	if s.prefix == "" {
		return relPath
	}
	return path.Join(s.prefix, relPath)
}

// PutBytes uploads an in-memory artifact.
func (s *Sink) PutBytes(ctx context.Context, relPath string, data []byte) error {
	return s.put(ctx, relPath, bytes.NewReader(data))
}

// PutFile streams a file from disk under the same envelope.
func (s *Sink) PutFile(ctx context.Context, relPath, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return &StorageError{Sentinel: ErrNetwork, Operation: "upload", Err: err}
	}
	defer func() { _ = f.Close() }()
	return s.put(ctx, relPath, f)
}

// OpenMultipart is not supported by the plain HTTP sink.
func (s *Sink) OpenMultipart(_ context.Context, _ string) (MultipartUpload, error) {
	return nil, ErrMultipartUnsupported
}

func (s *Sink) put(ctx context.Context, relPath string, r io.Reader) error {
	logical := s.logicalPath(relPath)
	dataID, err := s.client.upload(ctx, path.Base(relPath), uploadDataType, logical, r)
	if err != nil {
		metrics.RecordStorageError("upload")
		return err
	}
	s.artifacts.Record(relPath, dataID)
	logger := log.WithComponentFromContext(ctx, "domainstore")
	logger.Debug().
		Str(log.FieldLogicalPath, logical).
		Str(log.FieldDataID, dataID).
		Msg("artifact uploaded")
	return nil
}
