// Package netx streams request bodies straight to presigned blob-store URLs.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTransport marks failures that never produced an HTTP response.
var ErrTransport = errors.New("transfer failed")

// StatusError is a non-2xx answer from the blob store.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %d %s; body: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// PutRequest describes one streamed PUT.
//
// Size becomes the Content-Length when >= 0; S3 rejects chunked bodies on
// presigned PUTs, so callers should always know it. OnProgress, when set,
// receives the number of bytes sent since the previous call.
type PutRequest struct {
	URL         string
	Body        io.Reader
	Size        int64
	ContentType string
	OnProgress  func(delta int64)
}

// Put streams req.Body to req.URL and returns the ETag header of the answer.
func Put(ctx context.Context, client *http.Client, req PutRequest) (string, error) {
	body := req.Body
	if req.OnProgress != nil {
		body = &progressReader{r: body, fn: req.OnProgress}
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return "", err
	}
	if req.Size >= 0 {
		hr.ContentLength = req.Size
		if req.Size == 0 {
			hr.Body = http.NoBody
		}
	}
	ct := req.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	hr.Header.Set("Content-Type", ct)

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header.Get("ETag"), nil
}

type progressReader struct {
	r  io.Reader
	fn func(int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.fn(int64(n))
	}
	return n, err
}
