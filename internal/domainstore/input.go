// SPDX-License-Identifier: MIT

package domainstore

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/fleetnode/internal/log"
)

// primaryDataType marks the part a runner should treat as the main payload
// when a download carries several sibling parts.
const primaryDataType = "refined_scan_zip"

// MaterializedInput describes one content ID fetched to local disk.
type MaterializedInput struct {
	CID            string
	Path           string // primary local file
	DataID         string
	Name           string
	DataType       string
	DomainID       string
	RootDir        string
	RelatedFiles   []string // sibling parts delivered in the same response
	ExtractedPaths []string // archive members the runner may read directly
}

// Input materialises content IDs from the domain storage service into a
// session-scoped temp root.
type Input struct {
	client  *Client
	rootDir string
}

// NewInput creates an input source writing under rootDir.
func NewInput(client *Client, rootDir string) *Input {
	return &Input{client: client, rootDir: rootDir}
}

// GetBytesByCID materialises the content ID and returns the bytes of the
// primary extracted file if the payload was an archive, else the downloaded
// file itself.
func (in *Input) GetBytesByCID(ctx context.Context, cid string) ([]byte, error) {
	mat, err := in.MaterializeCIDWithMeta(ctx, cid)
	if err != nil {
		return nil, err
	}
	path := mat.Path
	if len(mat.ExtractedPaths) > 0 {
		path = mat.ExtractedPaths[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Sentinel: ErrNetwork, Operation: "read", Err: err}
	}
	return data, nil
}

// MaterializeCIDToTemp materialises the content ID and returns the primary
// local path.
func (in *Input) MaterializeCIDToTemp(ctx context.Context, cid string) (string, error) {
	mat, err := in.MaterializeCIDWithMeta(ctx, cid)
	if err != nil {
		return "", err
	}
	return mat.Path, nil
}

// MaterializeCIDWithMeta downloads all parts for the content ID, writes them
// under the temp root and extracts the primary archive when there is one.
func (in *Input) MaterializeCIDWithMeta(ctx context.Context, cid string) (*MaterializedInput, error) {
	parts, err := in.client.fetchParts(ctx, cid)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(in.rootDir, sanitizeComponent(cid))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &StorageError{Sentinel: ErrNetwork, Operation: "materialize", Err: err}
	}

	primary := 0
	for i, p := range parts {
		if p.DataType == primaryDataType {
			primary = i
			break
		}
	}

	mat := &MaterializedInput{CID: cid, RootDir: dir}
	for i, p := range parts {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("part-%d", i)
		}
		path := filepath.Join(dir, sanitizeComponent(name))
		if err := renameio.WriteFile(path, p.Body, 0o640); err != nil {
			return nil, &StorageError{Sentinel: ErrNetwork, Operation: "materialize", Err: err}
		}
		if i == primary {
			mat.Path = path
			mat.DataID = p.DataID
			mat.Name = name
			mat.DataType = p.DataType
			mat.DomainID = p.DomainID
		} else {
			mat.RelatedFiles = append(mat.RelatedFiles, path)
		}
	}

	if isZipPayload(parts[primary].DataType, mat.Name, parts[primary].Body) {
		extracted, err := extractZip(parts[primary].Body, filepath.Join(dir, "extracted"))
		if err != nil {
			logger := log.WithComponentFromContext(ctx, "domainstore")
			logger.Warn().
				Err(err).
				Str(log.FieldCID, cid).
				Msg("primary payload looks like an archive but extraction failed")
		} else {
			mat.ExtractedPaths = extracted
		}
	}

	return mat, nil
}

func isZipPayload(dataType, name string, body []byte) bool {
	if dataType == primaryDataType {
		return true
	}
	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		return true
	}
	return len(body) >= 4 && bytes.HasPrefix(body, []byte("PK\x03\x04"))
}

// extractZip unpacks the archive under destDir and returns the member paths
// in archive order. Entries escaping destDir are rejected.
func extractZip(data []byte, destDir string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range zr.File {
		cleaned := filepath.Clean(f.Name)
		if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
			return nil, fmt.Errorf("archive member escapes destination: %s", f.Name)
		}
		target := filepath.Join(destDir, cleaned)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		if err := renameio.WriteFile(target, body, 0o640); err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}

// sanitizeComponent keeps downloaded names from escaping the session root.
func sanitizeComponent(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(os.PathSeparator) {
		return "_"
	}
	return name
}
