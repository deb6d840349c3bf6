package driver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/dmitrijs2005/quicksend/internal/client/client"
	"github.com/dmitrijs2005/quicksend/internal/client/models"
	"github.com/dmitrijs2005/quicksend/internal/common"
	"github.com/dmitrijs2005/quicksend/internal/netx"
	"github.com/dmitrijs2005/quicksend/internal/tier"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_SinglePart(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	path := writeFile(t, "notes.txt", []byte("hello quicksend"))

	var mu sync.Mutex
	var fractions []float64
	res, err := fx.driver.Upload(context.Background(), path, func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, "file-1", res.FileID)
	assert.Equal(t, "notes.txt", res.FileName)
	assert.Equal(t, int64(15), res.FileSize)
	assert.Equal(t, "https://qs.test/download/file-1", res.DownloadLink)

	n, ok := fx.blobs.got("/file-1")
	require.True(t, ok)
	assert.Equal(t, int64(15), n)

	size, ok := fx.api.completedSize("file-1")
	require.True(t, ok)
	assert.Equal(t, int64(15), size)

	calls := fx.api.calls()
	require.Len(t, calls.requests, 1)
	assert.Equal(t, "free", calls.requests[0].Tier)
	assert.Equal(t, "notes.txt", calls.requests[0].FileName)
	assert.Contains(t, calls.requests[0].MimeType, "text/plain")

	require.NotEmpty(t, fractions)
	assert.True(t, sort.Float64sAreSorted(fractions), "progress must not go backwards: %v", fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	assert.Equal(t, 1, fx.usage.counts["2026-10"])
	assert.Empty(t, fx.driver.Active())
}

func TestUpload_FreeTierNeverMultipart(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	path := sparseFile(t, "mid.bin", 60*tier.MB)

	res, err := fx.driver.Upload(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(60*tier.MB), res.FileSize)
	assert.Empty(t, fx.api.calls().completedParts)
}

func TestStart_FileTooLarge_NoNetwork(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	path := sparseFile(t, "big.bin", 150*tier.MB)

	_, err := fx.driver.Start(context.Background(), path, nil)
	require.ErrorIs(t, err, common.ErrFileTooLarge)

	var le *common.LimitError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, int64(104857600), le.Limit)
	assert.Equal(t, int64(157286400), le.Actual)
	assert.Equal(t, CategoryFileTooLarge, Classify(err))

	assert.Empty(t, fx.api.calls().requests)
	assert.Equal(t, 0, fx.usage.total())
}

func TestStart_MonthlyLimitReached(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.usage.counts["2026-10"] = 10
	path := writeFile(t, "a.txt", []byte("a"))

	_, err := fx.driver.Start(context.Background(), path, nil)
	require.ErrorIs(t, err, common.ErrMonthlyLimitReached)
	assert.Equal(t, CategoryMonthlyLimit, Classify(err))
	assert.Empty(t, fx.api.calls().requests)

	// last month's count does not matter
	fx.usage.counts = map[string]int{"2026-09": 10}
	_, err = fx.driver.Upload(context.Background(), path, nil)
	require.NoError(t, err)
}

func TestPreflight_CounterErrorAllows(t *testing.T) {
	fx := newFixture(t, tier.Pro, 1)
	fx.usage.countErr = errors.New("locked")

	require.NoError(t, fx.driver.Preflight(context.Background(), tier.Pro, 10))
	require.ErrorIs(t, fx.driver.Preflight(context.Background(), tier.Pro, 2*tier.GB), common.ErrFileTooLarge)
}

func TestStart_MissingFileAndDirectory(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)

	_, err := fx.driver.Start(context.Background(), "/definitely/not/here.bin", nil)
	require.Error(t, err)

	_, err = fx.driver.Start(context.Background(), t.TempDir(), nil)
	require.ErrorContains(t, err, "is a directory")
}

func TestUpload_Multipart(t *testing.T) {
	fx := newFixture(t, tier.Business, 2)
	fx.api.partSize = 20 * tier.MB
	path := sparseFile(t, "big.bin", 51*tier.MB)

	res, err := fx.driver.Upload(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://qs.test/download/file-1", res.DownloadLink)

	want := []models.Part{
		{PartNumber: 1, ETag: `"etag-file-1-part1"`},
		{PartNumber: 2, ETag: `"etag-file-1-part2"`},
		{PartNumber: 3, ETag: `"etag-file-1-part3"`},
	}
	if diff := cmp.Diff(want, fx.api.calls().completedParts); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}

	for i, size := range []int64{20 * tier.MB, 20 * tier.MB, 11 * tier.MB} {
		n, ok := fx.blobs.got("/file-1/part" + string(rune('1'+i)))
		require.True(t, ok)
		assert.Equal(t, size, n)
	}
	assert.Equal(t, 1, fx.usage.total())
}

func TestUpload_Multipart_PartFailureStopsRemaining(t *testing.T) {
	fx := newFixture(t, tier.Pro, 1)
	fx.api.partSize = 20 * tier.MB
	fx.blobs.fail["/file-1/part2"] = http.StatusInternalServerError
	path := sparseFile(t, "big.bin", 51*tier.MB)

	_, err := fx.driver.Upload(context.Background(), path, nil)
	require.Error(t, err)

	var se *netx.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, CategoryServer, Classify(err))

	_, ok := fx.blobs.got("/file-1/part1")
	assert.True(t, ok)
	_, ok = fx.blobs.got("/file-1/part3")
	assert.False(t, ok, "no part may start after a failure")

	calls := fx.api.calls()
	assert.Equal(t, []string{"file-1"}, calls.cancelledMultipart)
	assert.Empty(t, calls.completedParts)
	assert.Equal(t, 0, fx.usage.total())
}

func TestUpload_CompletionRetriesNotFoundInStorage(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.api.completeErrs = []error{common.ErrNotFoundInStorage, common.ErrNotFoundInStorage}
	path := writeFile(t, "a.txt", []byte("abc"))

	_, err := fx.driver.Upload(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.usage.total())
}

func TestUpload_CompletionGivesUp(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.api.completeErrs = []error{common.ErrNotFoundInStorage, common.ErrNotFoundInStorage, common.ErrNotFoundInStorage}
	path := writeFile(t, "a.txt", []byte("abc"))

	_, err := fx.driver.Upload(context.Background(), path, nil)
	require.ErrorIs(t, err, common.ErrNotFoundInStorage)
	assert.Equal(t, CategoryServer, Classify(err))
	assert.Equal(t, 0, fx.usage.total())
}

func TestUpload_ServerUnreachable(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.api.requestErr = client.ErrUnavailable
	path := writeFile(t, "a.txt", []byte("abc"))

	_, err := fx.driver.Upload(context.Background(), path, nil)
	require.Error(t, err)
	assert.Equal(t, CategoryNetwork, Classify(err))
	assert.Equal(t, 0, fx.usage.total())
}

func TestCancel_TearsDownTransfer(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.blobs.block = true
	path := writeFile(t, "a.txt", []byte("abc"))

	s, err := fx.driver.Start(context.Background(), path, nil)
	require.NoError(t, err)
	waitStarted(t, fx.blobs)

	active := fx.driver.Active()
	require.Len(t, active, 1)
	assert.Equal(t, s.ID, active[0].ID)
	assert.Equal(t, tier.SinglePart, active[0].Strategy)

	assert.True(t, fx.driver.Cancel(s.ID))
	assert.False(t, fx.driver.Cancel("nope"))

	_, err = s.Wait()
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, CategoryCancelled, Classify(err))

	assert.Equal(t, []string{"file-1"}, fx.api.calls().cancelledUploads)
	assert.Empty(t, fx.driver.Active())
	assert.Equal(t, 0, fx.usage.total())
}

func TestCancelAll(t *testing.T) {
	fx := newFixture(t, tier.Free, 1)
	fx.blobs.block = true

	var sessions []*Session
	for _, name := range []string{"a.txt", "b.txt"} {
		s, err := fx.driver.Start(context.Background(), writeFile(t, name, []byte(name)), nil)
		require.NoError(t, err)
		sessions = append(sessions, s)
		waitStarted(t, fx.blobs)
	}

	active := fx.driver.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "1", active[0].ID)
	assert.Equal(t, "2", active[1].ID)

	assert.Equal(t, 2, fx.driver.CancelAll())
	for _, s := range sessions {
		_, err := s.Wait()
		require.ErrorIs(t, err, ErrCancelled)
	}
	assert.Equal(t, 0, fx.driver.CancelAll())
	assert.Len(t, fx.api.calls().cancelledUploads, 2)
}

func TestUsage(t *testing.T) {
	fx := newFixture(t, tier.Pro, 1)
	fx.usage.counts["2026-10"] = 7

	u, err := fx.driver.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Usage{Period: "2026-10", Tier: tier.Pro, Used: 7, Limit: 100}, u)
}
