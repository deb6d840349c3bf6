package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/common"
)

type HTTPClient struct {
	baseURL  string
	clientID string
	http     *http.Client
}

// NewHTTPClient returns a client for baseURL. clientID, when set, is sent as
// X-Client-ID so the server can apply its monthly quota.
func NewHTTPClient(baseURL, clientID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		http:     &http.Client{Timeout: timeout},
	}
}

// errorBody is the union of error shapes the server returns.
type errorBody struct {
	Code        string `json:"code"`
	Error       string `json:"error"`
	CurrentTier string `json:"currentTier"`
	LimitBytes  int64  `json:"limitBytes"`
	ActualBytes int64  `json:"actualBytes"`
	Limit       int64  `json:"limit"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientID != "" {
		req.Header.Set(common.ClientIDHeaderName, c.clientID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %w", ErrServer, err)
		}
		return nil
	}

	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
	return mapError(resp.StatusCode, eb)
}

func mapError(status int, eb errorBody) error {
	switch eb.Code {
	case "FileTooLarge":
		return &common.LimitError{Err: common.ErrFileTooLarge, Tier: eb.CurrentTier, Limit: eb.LimitBytes, Actual: eb.ActualBytes}
	case "TierNotEligible":
		return &common.LimitError{Err: common.ErrTierNotEligible, Tier: eb.CurrentTier}
	case "MonthlyLimitReached":
		return &common.LimitError{Err: common.ErrMonthlyLimitReached, Tier: eb.CurrentTier, Limit: eb.Limit, Actual: eb.Limit}
	case "IncompleteParts":
		return fmt.Errorf("%w: %s", common.ErrIncompleteParts, eb.Error)
	}

	switch status {
	case http.StatusNotFound:
		if eb.Error == "NotFoundInStorage" {
			return common.ErrNotFoundInStorage
		}
		return common.ErrNotFound
	case http.StatusGone:
		return common.ErrExpired
	case http.StatusLocked:
		return common.ErrPending
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrInvalidRequest, eb.Error)
	case http.StatusServiceUnavailable:
		return common.ErrStorageUnavailable
	}
	if eb.Error == "UploadFailed" {
		return common.ErrUploadFailed
	}
	return fmt.Errorf("%w: status %d: %s", ErrServer, status, eb.Error)
}

func (c *HTTPClient) Ping(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	if h.Status != "healthy" {
		return &h, ErrUnavailable
	}
	return &h, nil
}

func (c *HTTPClient) RequestUpload(ctx context.Context, req models.UploadRequest) (*models.SingleTarget, error) {
	var t models.SingleTarget
	if err := c.do(ctx, http.MethodPost, "/s3/upload-url", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) RequestMultipart(ctx context.Context, req models.UploadRequest) (*models.MultipartTarget, error) {
	var t models.MultipartTarget
	if err := c.do(ctx, http.MethodPost, "/s3/multipart-upload", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) CompleteUpload(ctx context.Context, fileID string, size int64) error {
	in := map[string]any{"fileId": fileID, "fileSize": size}
	return c.do(ctx, http.MethodPost, "/s3/upload-complete", in, nil)
}

func (c *HTTPClient) CompleteMultipart(ctx context.Context, fileID, uploadID string, parts []models.Part) (*models.UploadResult, error) {
	in := map[string]any{"fileId": fileID, "uploadId": uploadID, "parts": parts}
	var res models.UploadResult
	if err := c.do(ctx, http.MethodPost, "/s3/complete-multipart", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) CancelMultipart(ctx context.Context, fileID, uploadID string) error {
	in := map[string]string{"fileId": fileID, "uploadId": uploadID}
	return c.do(ctx, http.MethodPost, "/s3/cancel-multipart", in, nil)
}

func (c *HTTPClient) CancelUpload(ctx context.Context, fileID string) error {
	err := c.do(ctx, http.MethodPost, "/s3/cancel-upload", map[string]string{"fileId": fileID}, nil)
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// DownloadLink is the share link for a finished single-part upload.
func (c *HTTPClient) DownloadLink(fileID string) string {
	return c.baseURL + "/download/" + fileID
}
