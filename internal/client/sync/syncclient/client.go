// Package syncclient is the typed HTTP client the consumer loop uses to
// talk to a cache server's /sync/* surface. It wraps req.Client the same
// way internal/syftsdk wraps it for the datasite/blob/events APIs, but
// speaks the rsync-diff sync protocol rather than blob storage.
package syncclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"

	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/core/rsync"
)

const (
	pathDatasiteStates = "/sync/datasites"
	pathRemoteState    = "/sync/state"
	pathMetadata       = "/sync/metadata"
	pathDiff           = "/sync/diff"
	pathApplyDiff      = "/sync/apply"
	pathCreate         = "/sync/create"
	pathDelete         = "/sync/delete"
	pathDownload       = "/sync/download"
	pathDownloadBulk   = "/sync/download_bulk"
)

// Config describes how to reach and authenticate against a cache server.
type Config struct {
	BaseURL     string
	Email       string
	AccessToken string
}

// Client is the sync-protocol HTTP client for one authenticated user
// against one cache server.
type Client struct {
	http *req.Client
}

// New builds a Client against cfg. It does not perform any network I/O.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("syncclient: base url required")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("syncclient: email required")
	}

	c := req.C().
		SetBaseURL(cfg.BaseURL).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS12}).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(500 * time.Millisecond).
		SetCommonHeader("X-Syft-User", cfg.Email).
		SetCommonQueryParam("user", cfg.Email).
		SetCommonErrorResult(&APIError{})

	if cfg.AccessToken != "" {
		c.SetCommonBearerAuthToken(cfg.AccessToken)
	}

	return &Client{http: c}, nil
}

// DatasiteSummary is one entry of the full-datasite-list response: an
// email and the server's root hash over that datasite's file hashes. The
// producer uses only the email.
type DatasiteSummary struct {
	Email    string `json:"email"`
	RootHash string `json:"root_hash"`
}

// GetDatasiteStates lists every datasite the authenticated user can see.
func (c *Client) GetDatasiteStates(ctx context.Context) ([]DatasiteSummary, error) {
	var out []DatasiteSummary
	if err := c.get(ctx, pathDatasiteStates, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoteEntry is one path's metadata as reported by the server, as part of
// a datasite directory listing.
type RemoteEntry struct {
	Path         string    `json:"path"`
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// GetRemoteState lists every path under dir (a datasite email, or a
// sub-directory within one) known to the server.
func (c *Client) GetRemoteState(ctx context.Context, dir string) ([]RemoteEntry, error) {
	var out []RemoteEntry
	if err := c.get(ctx, pathRemoteState, map[string]string{"dir": dir}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMetadata fetches the single current metadata record for path.
func (c *Client) GetMetadata(ctx context.Context, path string) (*metadata.FileMetadata, error) {
	var out metadata.FileMetadata
	if err := c.get(ctx, pathMetadata, map[string]string{"path": path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDiff asks the server to compute an rsync delta of path against a
// signature the caller computed over its local copy. The returned ops,
// applied via rsync.Apply against the caller's local bytes, should
// reconstruct the server's current content.
func (c *Client) GetDiff(ctx context.Context, path string, localSig rsync.Signature) ([]rsync.Op, error) {
	var sdkErr APIError
	var raw []byte

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(toWireSignature(localSig)).
		SetQueryParam("path", path).
		SetError(&sdkErr).
		SetSuccessResult(&raw).
		Post(pathDiff)
	if err != nil {
		return nil, fmt.Errorf("syncclient: get diff: %w", err)
	}
	if classifyErr := classify(resp, &sdkErr); classifyErr != nil {
		return nil, classifyErr
	}

	return fromWireOps(raw)
}

// ApplyDiffRequest is the body sent to the server's apply endpoint: the
// literal/copy ops to replay against the server's current bytes, and the
// hash the caller expects the result to have once applied.
type ApplyDiffRequest struct {
	Path         string   `json:"path"`
	Ops          []wireOp `json:"ops"`
	ExpectedHash string   `json:"expected_hash"`
}

// ApplyDiff pushes a locally computed delta to the server. The server
// rejects with ErrConflict if applying ops does not produce ExpectedHash,
// meaning the remote changed between GetDiff and ApplyDiff.
func (c *Client) ApplyDiff(ctx context.Context, path string, ops []rsync.Op, expectedHash string) error {
	wireOps := make([]wireOp, len(ops))
	for i, op := range ops {
		wireOps[i] = wireOp{Data: op.Data, Start: op.Start, Count: op.Count}
	}

	var sdkErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ApplyDiffRequest{Path: path, Ops: wireOps, ExpectedHash: expectedHash}).
		SetError(&sdkErr).
		Post(pathApplyDiff)
	if err != nil {
		return fmt.Errorf("syncclient: apply diff: %w", err)
	}
	return classify(resp, &sdkErr)
}

// Create uploads a brand-new file in full; used when the server has no
// prior version to diff against.
func (c *Client) Create(ctx context.Context, path string, data []byte) error {
	var sdkErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetBody(data).
		SetError(&sdkErr).
		Post(pathCreate)
	if err != nil {
		return fmt.Errorf("syncclient: create: %w", err)
	}
	return classify(resp, &sdkErr)
}

// Delete removes path from the server.
func (c *Client) Delete(ctx context.Context, path string) error {
	var sdkErr APIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetError(&sdkErr).
		Post(pathDelete)
	if err != nil {
		return fmt.Errorf("syncclient: delete: %w", err)
	}
	return classify(resp, &sdkErr)
}

// Download fetches the full current bytes of path, used for first pulls
// and by the consumer's push path to obtain the server's current bytes.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	var sdkErr APIError
	var raw []byte
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		SetError(&sdkErr).
		SetSuccessResult(&raw).
		Get(pathDownload)
	if err != nil {
		return nil, fmt.Errorf("syncclient: download: %w", err)
	}
	if classifyErr := classify(resp, &sdkErr); classifyErr != nil {
		return nil, classifyErr
	}
	return raw, nil
}

// DownloadBulk fetches several files in one round trip.
func (c *Client) DownloadBulk(ctx context.Context, paths []string) (map[string][]byte, error) {
	var sdkErr APIError
	out := make(map[string][]byte)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"paths": paths}).
		SetError(&sdkErr).
		SetSuccessResult(&out).
		Post(pathDownloadBulk)
	if err != nil {
		return nil, fmt.Errorf("syncclient: download bulk: %w", err)
	}
	if classifyErr := classify(resp, &sdkErr); classifyErr != nil {
		return nil, classifyErr
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	var sdkErr APIError
	req := c.http.R().SetContext(ctx).SetError(&sdkErr).SetSuccessResult(out)
	if query != nil {
		req = req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("syncclient: get %s: %w", path, err)
	}
	return classify(resp, &sdkErr)
}

func classify(resp *req.Response, sdkErr *APIError) error {
	if resp.Err != nil {
		return resp.Err
	}
	if resp.IsError() {
		return classifyStatus(resp.StatusCode, sdkErr)
	}
	return nil
}

func classifyStatus(status int, sdkErr *APIError) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, sdkErr.Message)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, sdkErr.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, sdkErr.Message)
	default:
		return fmt.Errorf("%w (%d): %s", ErrServer, status, sdkErr.Message)
	}
}
