package driver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/netx"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// uploadMultipart streams the parts from the one open file handle. At most
// d.concurrency parts are in flight; the first failure cancels the rest and
// no further part is started.
func (d *Driver) uploadMultipart(ctx context.Context, s *Session, f *os.File, req models.UploadRequest) (*models.UploadResult, error) {
	target, err := d.api.RequestMultipart(ctx, req)
	if err != nil {
		return nil, err
	}
	s.setRemote(target.FileID, target.UploadID)

	partSize := target.PartSize
	if partSize <= 0 {
		partSize = tier.PartSize
	}
	want := int((s.Size + partSize - 1) / partSize)
	if want < 1 {
		want = 1
	}
	if len(target.PartURLs) != want {
		d.abortMultipart(ctx, target)
		return nil, fmt.Errorf("%w: got %d part urls for %d parts", client.ErrServer, len(target.PartURLs), want)
	}

	parts := make([]models.Part, len(target.PartURLs))
	pctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(pctx)
	sem := semaphore.NewWeighted(int64(d.concurrency))

	var acquireErr error
	for i, url := range target.PartURLs {
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		if err := gctx.Err(); err != nil {
			sem.Release(1)
			acquireErr = err
			break
		}

		number := i + 1
		offset := int64(i) * partSize
		length := partSize
		if rest := s.Size - offset; rest < length {
			length = rest
		}

		g.Go(func() error {
			defer sem.Release(1)
			etag, err := d.put(gctx, s, url, io.NewSectionReader(f, offset, length), length, "")
			if err == nil && etag == "" {
				err = fmt.Errorf("%w: no etag returned", common.ErrIncompleteParts)
			}
			if err != nil {
				// stop before the slot is released so the loop sees it
				stop()
				return fmt.Errorf("part %d: %w", number, err)
			}
			parts[i] = models.Part{PartNumber: int32(number), ETag: etag}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = acquireErr
	}
	if err != nil {
		if ctx.Err() == nil {
			d.abortMultipart(ctx, target)
		}
		return nil, err
	}

	res, err := d.api.CompleteMultipart(ctx, target.FileID, target.UploadID, parts)
	if err != nil {
		return nil, err
	}
	if res.DownloadLink == "" {
		res.DownloadLink = d.api.DownloadLink(target.FileID)
	}
	if res.FileName == "" {
		res.FileName = s.FileName
	}
	return res, nil
}

func (d *Driver) abortMultipart(ctx context.Context, target *models.MultipartTarget) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := d.api.CancelMultipart(cctx, target.FileID, target.UploadID); err != nil {
		d.logger.Warn(cctx, "failed to abort multipart upload", "file_id", target.FileID, "error", err)
	}
}

func (d *Driver) put(ctx context.Context, s *Session, url string, body io.Reader, size int64, contentType string) (string, error) {
	return netx.Put(ctx, d.transfer, netx.PutRequest{
		URL:         url,
		Body:        body,
		Size:        size,
		ContentType: contentType,
		OnProgress:  s.progress.add,
	})
}
