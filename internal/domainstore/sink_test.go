// SPDX-License-Identifier: MIT

package domainstore

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadRecord struct {
	name        string
	dataType    string
	logicalPath string
	body        []byte
	auth        string
}

func newUploadServer(t *testing.T, records *[]uploadRecord, nextID func() string) *Sink {
	t.Helper()
	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		*records = append(*records, uploadRecord{
			name:        r.FormValue("name"),
			dataType:    r.FormValue("data_type"),
			logicalPath: r.FormValue("logical_path"),
			body:        body,
			auth:        r.Header.Get("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"` + nextID() + `"}]}`))
	}
	client, _, _ := newStore(t, handler)
	return NewSink(client, "out", NewArtifactTable())
}

func TestPutBytes_FormEnvelope(t *testing.T) {
	var records []uploadRecord
	sink := newUploadServer(t, &records, func() string { return "data-1" })

	require.NoError(t, sink.PutBytes(context.Background(), "ack.txt", []byte("hi")))

	require.Len(t, records, 1)
	assert.Equal(t, "ack.txt", records[0].name)
	assert.Equal(t, "task_output", records[0].dataType)
	assert.Equal(t, "out/ack.txt", records[0].logicalPath)
	assert.Equal(t, "hi", string(records[0].body))
	assert.Equal(t, "Bearer tA", records[0].auth)

	assert.Equal(t, map[string]string{"ack.txt": "data-1"}, sink.artifacts.Snapshot())
}

func TestPutBytes_EmptyPrefixUsesBarePath(t *testing.T) {
	var records []uploadRecord
	sink := newUploadServer(t, &records, func() string { return "data-1" })
	sink.prefix = ""

	require.NoError(t, sink.PutBytes(context.Background(), "ack.txt", []byte("hi")))
	require.Len(t, records, 1)
	assert.Equal(t, "ack.txt", records[0].logicalPath)
}

func TestPutBytes_DuplicatePathLastWriterWins(t *testing.T) {
	var records []uploadRecord
	ids := []string{"data-1", "data-2"}
	sink := newUploadServer(t, &records, func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})

	require.NoError(t, sink.PutBytes(context.Background(), "ack.txt", []byte("first")))
	require.NoError(t, sink.PutBytes(context.Background(), "ack.txt", []byte("second")))

	snapshot := sink.artifacts.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "data-2", snapshot["ack.txt"])
}

func TestPutFile_StreamsFromDisk(t *testing.T) {
	var records []uploadRecord
	sink := newUploadServer(t, &records, func() string { return "data-9" })

	path := filepath.Join(t.TempDir(), "result.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o640))

	require.NoError(t, sink.PutFile(context.Background(), "result.bin", path))
	require.Len(t, records, 1)
	assert.Equal(t, "payload", string(records[0].body))
	assert.Equal(t, "out/result.bin", records[0].logicalPath)
}

func TestOpenMultipart_Unsupported(t *testing.T) {
	client := NewClient("http://unused", uuid.New(), NewTokenRef(""), time.Second)
	sink := NewSink(client, "", NewArtifactTable())

	_, err := sink.OpenMultipart(context.Background(), "big.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipartUnsupported)
}

func TestPut_UploadErrorSurfacesStorageError(t *testing.T) {
	client, _, _ := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	sink := NewSink(client, "out", NewArtifactTable())

	err := sink.PutBytes(context.Background(), "x.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, sink.artifacts.Len(), "failed upload must not be recorded")
}
