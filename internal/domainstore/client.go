// SPDX-License-Identifier: MIT

package domainstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 2048

// Client is the HTTP client for one domain storage service. It is scoped to
// a single domain_server_url and domain_id for the lifetime of a lease.
type Client struct {
	base     string
	domainID uuid.UUID
	token    *TokenRef
	http     *http.Client
}

// NewClient builds a client for the given domain. token is read immediately
// before every request so heartbeat-driven rotation applies to in-flight
// sessions.
func NewClient(base string, domainID uuid.UUID, token *TokenRef, timeout time.Duration) *Client {
	return &Client{
		base:     strings.TrimRight(base, "/"),
		domainID: domainID,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) dataURL() string {
	return fmt.Sprintf("%s/api/v1/domains/%s/data", c.base, c.domainID)
}

func (c *Client) authorize(req *http.Request) {
	if tok := c.token.Get(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// downloadedPart is one part of a multipart data response.
type downloadedPart struct {
	Name     string
	DataID   string
	DataType string
	DomainID string
	Body     []byte
}

// fetchParts downloads all parts the service returns for one content ID.
func (c *Client) fetchParts(ctx context.Context, cid string) ([]downloadedPart, error) {
	u := c.dataURL() + "?ids=" + cid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &StorageError{Sentinel: ErrNetwork, Operation: "download", Err: err}
	}
	req.Header.Set("Accept", "multipart/form-data")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &StorageError{Sentinel: ErrNetwork, Operation: "download", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &StorageError{
			Sentinel:  mapStatus(res.StatusCode),
			Operation: "download",
			Status:    res.StatusCode,
			Body:      string(body),
		}
	}

	mediaType, params, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, &StorageError{Sentinel: ErrNetwork, Operation: "download", Err: fmt.Errorf("unexpected content type %q", res.Header.Get("Content-Type"))}
	}

	mr := multipart.NewReader(res.Body, params["boundary"])
	var parts []downloadedPart
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &StorageError{Sentinel: ErrNetwork, Operation: "download", Err: err}
		}
		body, err := io.ReadAll(p)
		if err != nil {
			return nil, &StorageError{Sentinel: ErrNetwork, Operation: "download", Err: err}
		}

		// Content-Disposition carries the part metadata: data-type, id,
		// domain-id, size, created-at, updated-at.
		_, dparams, _ := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
		name := p.FileName()
		if name == "" {
			name = p.FormName()
		}
		parts = append(parts, downloadedPart{
			Name:     name,
			DataID:   dparams["id"],
			DataType: dparams["data-type"],
			DomainID: dparams["domain-id"],
			Body:     body,
		})
	}
	if len(parts) == 0 {
		return nil, &StorageError{Sentinel: ErrNotFound, Operation: "download", Err: fmt.Errorf("no parts returned for cid %s", cid)}
	}
	return parts, nil
}

// uploadResponse is the success envelope of a data upload.
type uploadResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// upload POSTs one artifact as multipart form-data and returns the storage id
// assigned by the service.
func (c *Client) upload(ctx context.Context, name, dataType, logicalPath string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if err := mw.WriteField("name", name); err != nil {
				return err
			}
			if err := mw.WriteField("data_type", dataType); err != nil {
				return err
			}
			if err := mw.WriteField("logical_path", logicalPath); err != nil {
				return err
			}
			fw, err := mw.CreateFormFile("file", name)
			if err != nil {
				return err
			}
			if _, err := io.Copy(fw, r); err != nil {
				return err
			}
			return mw.Close()
		}()
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL(), pr)
	if err != nil {
		return "", &StorageError{Sentinel: ErrNetwork, Operation: "upload", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return "", &StorageError{Sentinel: ErrNetwork, Operation: "upload", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return "", &StorageError{
			Sentinel:  mapStatus(res.StatusCode),
			Operation: "upload",
			Status:    res.StatusCode,
			Body:      string(body),
		}
	}

	var parsed uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", &StorageError{Sentinel: ErrNetwork, Operation: "upload", Err: err}
	}
	if len(parsed.Data) == 0 {
		return "", &StorageError{Sentinel: ErrNetwork, Operation: "upload", Err: fmt.Errorf("upload response carries no data entries")}
	}
	return parsed.Data[0].ID, nil
}
