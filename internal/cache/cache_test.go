package cache

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filmstrip/internal/adapter"
	"filmstrip/internal/domain"
)

// entryBytes is the cost of one 4x4 RGBA test image.
const entryBytes = 4 * 4 * 4

type fakeTexture struct {
	disposed bool
}

func (t *fakeTexture) Dispose() { t.disposed = true }

type fakeDisplay struct {
	fail     bool
	title    string
	textures []*fakeTexture
}

func (d *fakeDisplay) CreateTexture(img *image.RGBA) (domain.Texture, error) {
	if d.fail {
		return nil, errors.New("no gpu context")
	}
	tex := &fakeTexture{}
	d.textures = append(d.textures, tex)
	return tex, nil
}

func (d *fakeDisplay) SetTitle(name string) { d.title = name }

// makeImageDir writes n 4x4 PNGs named img-0.png .. img-(n-1).png.
func makeImageDir(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = uint8(40 * i)
			img.Pix[p+3] = 255
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("img-%d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func imgPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("img-%d.png", i))
}

func newTestCache(t *testing.T, dir string, budget int64) *Cache {
	t.Helper()
	c := New(dir, budget, 1, adapter.NullLogger())
	t.Cleanup(c.Close)
	require.NoError(t, c.UpdateDirectory())
	return c
}

func TestLoadJumpWraps(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	tex, name, err := c.LoadJump(d, 0)
	require.NoError(t, err)
	require.NotNil(t, tex)
	assert.Equal(t, "img-0.png", name)

	_, name, err = c.LoadNext(d)
	require.NoError(t, err)
	assert.Equal(t, "img-1.png", name)

	_, name, err = c.LoadJump(d, 2)
	require.NoError(t, err)
	assert.Equal(t, "img-0.png", name, "jump should wrap at the directory end")

	_, name, err = c.LoadPrev(d)
	require.NoError(t, err)
	assert.Equal(t, "img-2.png", name, "previous from the first entry should wrap backward")
}

func TestLoadHitReturnsSameTexture(t *testing.T) {
	dir := makeImageDir(t, 2)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	first, _, err := c.LoadJump(d, 0)
	require.NoError(t, err)
	_, _, err = c.LoadNext(d)
	require.NoError(t, err)

	again, _, err := c.LoadPrev(d)
	require.NoError(t, err)
	assert.Same(t, first, again, "a cache hit should not re-upload")
	assert.Len(t, d.textures, 2)
}

func TestLoadSpecific(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	tex, err := c.LoadSpecific(d, imgPath(dir, 2))
	require.NoError(t, err)
	require.NotNil(t, tex)
	assert.Equal(t, "img-2.png", c.CurrentFilename())

	_, err = c.LoadSpecific(d, filepath.Join(dir, "unlisted.png"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "img-2.png", c.CurrentFilename(), "failed load must not move the position")
}

func TestLoadEmptyDirectory(t *testing.T) {
	c := newTestCache(t, t.TempDir(), 1<<20)

	_, _, err := c.LoadNext(&fakeDisplay{})
	assert.ErrorIs(t, err, domain.ErrEmptyDirectory)
}

func TestBudgetHeldAfterLoads(t *testing.T) {
	dir := makeImageDir(t, 6)
	budget := int64(3 * entryBytes)
	c := newTestCache(t, dir, budget)
	d := &fakeDisplay{}

	for i := 0; i < 6; i++ {
		_, _, err := c.LoadNext(d)
		require.NoError(t, err)
		assert.LessOrEqual(t, c.UsedBytes(), budget)
	}
}

func TestEvictionDropsFarthestKeepsCurrent(t *testing.T) {
	dir := makeImageDir(t, 7)
	// Room for three entries: loading a fourth forces one eviction.
	c := newTestCache(t, dir, 3*entryBytes)
	d := &fakeDisplay{}

	_, _, err := c.LoadJump(d, 0)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, _, err = c.LoadNext(d)
		require.NoError(t, err)
	}

	// Position is img-3; img-0 is the farthest cached entry and must go.
	assert.NotContains(t, c.entries, imgPath(dir, 0))
	assert.Contains(t, c.entries, imgPath(dir, 2))
	assert.Contains(t, c.entries, imgPath(dir, 3), "the current entry is never evicted")
	assert.LessOrEqual(t, c.UsedBytes(), int64(3*entryBytes))
}

func TestEvictionNeverDropsCurrentEvenUnderTinyBudget(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1) // smaller than any single entry
	d := &fakeDisplay{}

	_, name, err := c.LoadJump(d, 0)
	require.NoError(t, err)
	assert.Equal(t, "img-0.png", name)
	assert.Contains(t, c.entries, imgPath(dir, 0))

	_, _, err = c.LoadNext(d)
	require.NoError(t, err)
	assert.Contains(t, c.entries, imgPath(dir, 1))
	assert.NotContains(t, c.entries, imgPath(dir, 0))
}

// processUntil drives the prefetch pipeline until cond holds or a deadline
// passes.
func processUntil(t *testing.T, c *Cache, d domain.Display, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "timed out waiting for prefetched entries")
		require.NoError(t, c.ProcessPrefetched(d))
		time.Sleep(time.Millisecond)
	}
}

func TestPrefetchFillsNeighborhood(t *testing.T) {
	dir := makeImageDir(t, 5)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	_, _, err := c.LoadJump(d, 0)
	require.NoError(t, err)

	c.SendLoadRequests()
	processUntil(t, c, d, func() bool { return len(c.entries) == 5 })

	assert.Empty(t, c.pending)
	assert.Equal(t, int64(5*entryBytes), c.UsedBytes())
}

func TestProcessPrefetchedEvictsFarthest(t *testing.T) {
	dir := makeImageDir(t, 5)
	c := newTestCache(t, dir, 3*entryBytes)
	d := &fakeDisplay{}

	_, _, err := c.LoadJump(d, 2) // current = img-2
	require.NoError(t, err)

	// Prefetch admits the whole neighborhood; the two farthest entries
	// (img-0 and img-4, both two steps away) must be evicted to hold the
	// budget.
	c.SendLoadRequests()
	deadline := time.Now().Add(5 * time.Second)
	for len(c.pending) > 0 {
		require.True(t, time.Now().Before(deadline), "timed out draining prefetches")
		require.NoError(t, c.ProcessPrefetched(d))
		time.Sleep(time.Millisecond)
	}

	assert.LessOrEqual(t, c.UsedBytes(), int64(3*entryBytes))
	assert.Contains(t, c.entries, imgPath(dir, 1))
	assert.Contains(t, c.entries, imgPath(dir, 2))
	assert.Contains(t, c.entries, imgPath(dir, 3))
	assert.NotContains(t, c.entries, imgPath(dir, 0))
	assert.NotContains(t, c.entries, imgPath(dir, 4))
}

func TestUploadFailureIsUploadKind(t *testing.T) {
	c := newTestCache(t, makeImageDir(t, 1), 1<<20)

	_, _, err := c.LoadJump(&fakeDisplay{fail: true}, 0)
	assert.ErrorIs(t, err, domain.ErrUpload)
}

func TestPrefetchUploadFailureIsIsolated(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{fail: true}

	c.SendLoadRequests()

	// Drain everything; every upload fails but draining must not abort.
	deadline := time.Now().Add(5 * time.Second)
	sawError := false
	for len(c.pending) > 0 {
		require.True(t, time.Now().Before(deadline), "timed out draining failed prefetches")
		if err := c.ProcessPrefetched(d); err != nil {
			assert.ErrorIs(t, err, domain.ErrUpload)
			sawError = true
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, sawError)
	assert.Empty(t, c.entries)

	// The pipeline recovers once uploads work again.
	d.fail = false
	c.SendLoadRequests()
	processUntil(t, c, d, func() bool { return len(c.entries) == 2 })
}

func TestStalePrefetchResultDiscarded(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	// Synchronous load wins the race against its own prefetch.
	c.SendLoadRequests()
	_, _, err := c.LoadNext(d)
	require.NoError(t, err)
	uploads := len(d.textures)

	deadline := time.Now().Add(5 * time.Second)
	for len(c.pending) > 0 {
		require.True(t, time.Now().Before(deadline), "timed out draining stale prefetches")
		require.NoError(t, c.ProcessPrefetched(d))
		time.Sleep(time.Millisecond)
	}
	// img-1 arrived from the worker after the sync load cached it; the
	// stale buffer is discarded, not uploaded twice.
	assert.Contains(t, c.entries, imgPath(dir, 1))
	assert.GreaterOrEqual(t, uploads, 1)
	count := 0
	for _, tex := range d.textures {
		if !tex.disposed {
			count++
		}
	}
	assert.Equal(t, len(c.entries), count, "every live texture should belong to exactly one entry")
}

func TestUpdateDirectoryDropsRemovedEntries(t *testing.T) {
	dir := makeImageDir(t, 3)
	c := newTestCache(t, dir, 1<<20)
	d := &fakeDisplay{}

	_, _, err := c.LoadJump(d, 0)
	require.NoError(t, err)
	_, _, err = c.LoadNext(d)
	require.NoError(t, err)
	require.Len(t, d.textures, 2)

	require.NoError(t, os.Remove(imgPath(dir, 0)))
	require.NoError(t, c.UpdateDirectory())

	assert.NotContains(t, c.entries, imgPath(dir, 0))
	assert.True(t, d.textures[0].disposed, "evicted entry should release its texture")
	assert.Contains(t, c.entries, imgPath(dir, 1))
}
