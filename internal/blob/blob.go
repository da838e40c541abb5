// Package blob uploads generated letters to object storage. Uploads are
// best-effort and parallel: the uploader returns once every file has settled,
// reporting per-file errors rather than failing the batch. Stored objects
// carry a fixed 72-hour URL expiry.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/letters"
)

// URLExpirationSeconds is the signed-URL lifetime: 72 hours.
const URLExpirationSeconds = 259_200

// unconfiguredError is the per-file error recorded when no storage token is set.
const unconfiguredError = "Blob storage not configured"

// UploadResult is the settled outcome of uploading one letter set.
type UploadResult struct {
	OK            bool              `json:"ok"`
	UploadedCount int               `json:"uploadedCount"`
	FailedCount   int               `json:"failedCount"`
	URLs          map[string]string `json:"urls"`   // filename -> public URL
	Errors        []string          `json:"errors"` // per-file failure messages
}

// Uploader stores letter PDFs in object storage.
type Uploader struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an uploader. An empty token leaves the uploader unconfigured;
// uploads then fail safely per file.
func New(token, baseURL string, logger *zap.Logger) *Uploader {
	return &Uploader{
		token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.Named("blob"),
	}
}

// Available reports whether storage is configured.
func (u *Uploader) Available() bool {
	return u.token != ""
}

// putResponse is the storage API's upload result.
type putResponse struct {
	URL string `json:"url"`
}

// UploadAll uploads every letter under the given path prefix in parallel and
// returns once all have settled. It never returns an error: failures are
// recorded per file. When storage is unconfigured every file fails with a
// fixed message and OK is false.
func (u *Uploader) UploadAll(ctx context.Context, prefix string, set []letters.Letter) UploadResult {
	result := UploadResult{
		URLs:   make(map[string]string, len(set)),
		Errors: []string{},
	}

	if !u.Available() {
		for range set {
			result.Errors = append(result.Errors, unconfiguredError)
		}
		result.FailedCount = len(set)
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, letter := range set {
		g.Go(func() error {
			url, err := u.put(gctx, prefix+"/"+letter.Filename, letter.Content)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				u.logger.Warn("letter upload failed",
					zap.String("filename", letter.Filename), zap.Error(err))
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", letter.Filename, err))
				return nil // best-effort: never cancel sibling uploads
			}
			result.UploadedCount++
			result.URLs[letter.Filename] = url
			return nil
		})
	}
	_ = g.Wait()

	result.OK = result.FailedCount == 0 && result.UploadedCount > 0
	return result
}

// put stores one object and returns its public URL.
func (u *Uploader) put(ctx context.Context, pathname string, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "PUT", u.baseURL+"/"+pathname, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("X-Url-Expiration-Seconds", strconv.Itoa(URLExpirationSeconds))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("storage error (%d): %s", resp.StatusCode, string(body))
	}

	var put putResponse
	if err := json.Unmarshal(body, &put); err != nil {
		return "", fmt.Errorf("failed to parse storage response: %w", err)
	}
	if put.URL == "" {
		return "", fmt.Errorf("storage returned no URL")
	}
	return put.URL, nil
}
