package image

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-hosting/internal/processor"
	imagerepo "github.com/aliskhannn/image-hosting/internal/repository/image"
	"github.com/aliskhannn/image-hosting/internal/storage/file"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// countingResizer wraps the real processor and counts Fit calls, so tests
// can assert that cache hits perform no resize work.
type countingResizer struct {
	inner *processor.Processor
	fits  atomic.Int32
}

func (r *countingResizer) Probe(src io.Reader) (int, int, string, error) {
	return r.inner.Probe(src)
}

func (r *countingResizer) Fit(src io.Reader, width, height int) ([]byte, error) {
	r.fits.Add(1)
	return r.inner.Fit(src, width, height)
}

type testEnv struct {
	service *Service
	resizer *countingResizer
	blobDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	blobDir := t.TempDir()
	blobs, err := file.NewStorage(blobDir)
	require.NoError(t, err)

	repo, err := imagerepo.NewRepository(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repo.Close()
	})

	resizer := &countingResizer{inner: processor.New(85)}

	cfg := Config{
		MaxUploadBytes:    10 << 20,
		MaxDimension:      5000,
		AllowedMediaTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}

	return &testEnv{
		service: NewService(cfg, blobs, repo, resizer, nil),
		resizer: resizer,
		blobDir: blobDir,
	}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	buf := new(bytes.Buffer)
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))

	return buf.Bytes()
}

// blobsWithPrefix lists files under subdir whose name starts with prefix.
func blobsWithPrefix(t *testing.T, blobDir, subdir, prefix string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(blobDir, subdir))
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	return names
}

func TestIngest_ThenServeOriginal_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := pngBytes(t, 200, 100)
	img, err := env.service.Ingest(ctx, payload, "cat.png", "image/png")
	require.NoError(t, err)
	require.Equal(t, 200, img.Width)
	require.Equal(t, 100, img.Height)
	require.Equal(t, "png", img.Format)
	require.Equal(t, int64(len(payload)), img.Size)

	data, contentType, cacheControl, err := env.service.Resolve(ctx, img.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, payload, data)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, CacheControl, cacheControl)
}

func TestResolve_GeneratesAndCachesVariant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img, err := env.service.Ingest(ctx, pngBytes(t, 2000, 1000), "wide.png", "image/png")
	require.NoError(t, err)

	first, contentType, _, err := env.service.Resolve(ctx, img.ID, 100, 100)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", contentType)
	require.EqualValues(t, 1, env.resizer.fits.Load())

	// The fit-inside policy makes a 2000x1000 original come out 100x50.
	width, height, _, err := env.resizer.inner.Probe(bytes.NewReader(first))
	require.NoError(t, err)
	require.Equal(t, 100, width)
	require.Equal(t, 50, height)

	// Second call must hit the cache: identical bytes, no resize work.
	second, _, _, err := env.service.Resolve(ctx, img.ID, 100, 100)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, env.resizer.fits.Load())
}

func TestResolve_UnknownIdentity(t *testing.T) {
	env := newTestEnv(t)

	_, _, _, err := env.service.Resolve(context.Background(), uuid.New(), 100, 100)
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)
}

func TestResolve_DimensionsOutOfBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img, err := env.service.Ingest(ctx, pngBytes(t, 200, 100), "cat.png", "image/png")
	require.NoError(t, err)

	for _, dims := range [][2]int{{6000, 6000}, {-1, 100}, {100, 0}} {
		_, _, _, err := env.service.Resolve(ctx, img.ID, dims[0], dims[1])
		require.ErrorIs(t, err, ErrInvalidDimensions, "dims %v", dims)
	}
}

func TestResolve_ConcurrentColdCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img, err := env.service.Ingest(ctx, pngBytes(t, 800, 400), "race.png", "image/png")
	require.NoError(t, err)

	const n = 8
	results := make([][]byte, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _, errs[i] = env.service.Resolve(ctx, img.ID, 100, 100)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0], results[i], "request %d returned different bytes", i)
	}

	// Exactly one variant file must exist, and it must be a valid image.
	variants := blobsWithPrefix(t, env.blobDir, "variants", img.ID.String()+"_")
	require.Len(t, variants, 1)

	cached, err := os.ReadFile(filepath.Join(env.blobDir, "variants", variants[0]))
	require.NoError(t, err)
	_, err = imaging.Decode(bytes.NewReader(cached))
	require.NoError(t, err)
	require.Equal(t, results[0], cached)
}

func TestIngest_RejectsUndeclaredMediaType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Ingest(context.Background(), pngBytes(t, 10, 10), "cat.bmp", "image/bmp")
	require.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestIngest_RejectsOversizedPayload(t *testing.T) {
	env := newTestEnv(t)
	env.service.cfg.MaxUploadBytes = 16

	_, err := env.service.Ingest(context.Background(), pngBytes(t, 10, 10), "cat.png", "image/png")
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestIngest_InvalidImageLeavesNoResidue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Ingest(ctx, []byte("not a jpeg at all"), "fake.jpg", "image/jpeg")
	require.ErrorIs(t, err, processor.ErrDecode)

	require.Empty(t, blobsWithPrefix(t, env.blobDir, "originals", ""))

	images, err := env.service.ListImages(ctx)
	require.NoError(t, err)
	require.Empty(t, images)
}

func TestDelete_RemovesRecordAndAllBlobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img, err := env.service.Ingest(ctx, pngBytes(t, 400, 200), "cat.png", "image/png")
	require.NoError(t, err)

	// Populate a couple of cached variants first.
	for _, dims := range [][2]int{{100, 100}, {200, 200}} {
		_, _, _, err := env.service.Resolve(ctx, img.ID, dims[0], dims[1])
		require.NoError(t, err)
	}

	require.NoError(t, env.service.DeleteImage(ctx, img.ID))

	_, _, _, err = env.service.Resolve(ctx, img.ID, 100, 100)
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)

	require.Empty(t, blobsWithPrefix(t, env.blobDir, "originals", img.ID.String()))
	require.Empty(t, blobsWithPrefix(t, env.blobDir, "variants", img.ID.String()+"_"))
}

func TestDelete_UnknownIdentity(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.DeleteImage(context.Background(), uuid.New())
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)
}

func TestResolve_MissingOriginalReportsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img, err := env.service.Ingest(ctx, pngBytes(t, 200, 100), "cat.png", "image/png")
	require.NoError(t, err)

	// Simulate index/filesystem divergence by removing the blob directly.
	require.NoError(t, os.Remove(filepath.Join(env.blobDir, "originals", img.ID.String()+".png")))

	_, _, _, err = env.service.Resolve(ctx, img.ID, 0, 0)
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)

	_, _, _, err = env.service.Resolve(ctx, img.ID, 100, 100)
	require.ErrorIs(t, err, imagerepo.ErrImageNotFound)
}
