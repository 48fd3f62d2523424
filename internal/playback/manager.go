// Package playback drives the image cache from an external render loop,
// reconciling wall-clock time against a fixed frame rate while playing and
// turning navigation requests into cache loads.
package playback

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"filmstrip/internal/cache"
	"filmstrip/internal/domain"
)

const (
	defaultFrameRate = 25.0
	nanosPerSecond   = 1_000_000_000

	// Past this fraction of the frame interval the caller busy-waits to the
	// next frame boundary instead of sleeping, to keep presentation jitter
	// down.
	busyWaitThreshold = 0.8

	// Fallback cache budget when the host memory size cannot be determined.
	defaultCacheBytes = 500_000_000

	// Title shown when no image is displayed.
	noImageTitle = "[none]"
)

// Options parameterize a Manager. Zero values resolve against the host:
// FrameRate defaults to 25 fps, CacheBytes to an eighth of total memory and
// Workers to the CPU core count clamped to [2, 4].
type Options struct {
	Dir        string
	FrameRate  float64
	CacheBytes int64
	Workers    int
}

// Manager owns the image cache and the playback clock. It is driven by one
// render thread calling UpdateImage once per tick; only RequestLoad may be
// called concurrently.
type Manager struct {
	state domain.PlaybackState
	cache *cache.Cache

	frameRate float64

	playbackStart time.Time
	frameCount    int64

	reqMu   sync.Mutex
	request domain.NavigationRequest

	shouldSleep bool

	texture       domain.Texture
	filename      string
	displayedPath string // absolute path backing texture, "" when none

	now    func() time.Time
	logger *slog.Logger
}

// NewManager resolves host capacity once and builds the manager with its
// cache and decode pool. The directory listing is empty until
// UpdateDirectory is called.
func NewManager(opts Options, host domain.HostInfo, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	frameRate := opts.FrameRate
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}

	cacheBytes := opts.CacheBytes
	if cacheBytes <= 0 {
		if total, err := host.TotalMemoryBytes(); err == nil {
			cacheBytes = int64(total / 8)
		} else {
			logger.Warn("could not determine host memory size, using default cache budget", "error", err)
			cacheBytes = defaultCacheBytes
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		cores, err := host.CPUCoreCount()
		if err != nil {
			cores = 4
		}
		workers = clampWorkers(cores)
	}

	logger.Info("playback manager created",
		"dir", opts.Dir, "frame_rate", frameRate, "cache_bytes", cacheBytes, "workers", workers)

	return &Manager{
		state:         domain.Paused,
		cache:         cache.New(opts.Dir, cacheBytes, workers, logger),
		frameRate:     frameRate,
		playbackStart: time.Now(),
		request:       domain.NoRequest,
		shouldSleep:   true,
		now:           time.Now,
		logger:        logger,
	}
}

// clampWorkers bounds the decode pool size regardless of how many cores the
// host reports.
func clampWorkers(cores int) int {
	return min(max(cores, 2), 4)
}

// State returns the current playback state.
func (m *Manager) State() domain.PlaybackState { return m.state }

// StartPlaybackForward resets the clock and frame counter and starts playing.
func (m *Manager) StartPlaybackForward() {
	m.playbackStart = m.now()
	m.frameCount = 0
	m.state = domain.PlayingForward
}

// PausePlayback stops playback unconditionally.
func (m *Manager) PausePlayback() {
	m.state = domain.Paused
}

// CurrentFilename returns the file name of the displayed image, or "" when
// none is displayed.
func (m *Manager) CurrentFilename() string { return m.filename }

// CurrentFilePath returns the absolute path of the cache's current entry.
func (m *Manager) CurrentFilePath() (string, error) { return m.cache.CurrentFilePath() }

// UpdateDirectory re-enumerates the viewed directory. When the displayed
// file is no longer listed its cache entry is gone along with its texture,
// so the display slot is released here, within the same call, and a reload
// of the new current entry is queued for the next tick. Texture handles a
// caller got from Texture() are therefore never disposed behind its back.
func (m *Manager) UpdateDirectory() error {
	if err := m.cache.UpdateDirectory(); err != nil {
		return err
	}
	if m.displayedPath == "" {
		return nil
	}
	if current, err := m.cache.CurrentFilePath(); err != nil || current != m.displayedPath {
		m.texture = nil
		m.filename = ""
		m.displayedPath = ""
		m.RequestLoad(domain.Jump(0))
	}
	return nil
}

// RequestLoad sets the pending navigation request, replacing any unconsumed
// one. Safe to call from input handlers.
func (m *Manager) RequestLoad(req domain.NavigationRequest) {
	m.reqMu.Lock()
	m.request = req
	m.reqMu.Unlock()
}

// Request returns the pending navigation request.
func (m *Manager) Request() domain.NavigationRequest {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	return m.request
}

// takeRequest consumes the pending request. Taking it up front guarantees a
// request is consumed exactly once per tick no matter how the tick ends.
func (m *Manager) takeRequest() domain.NavigationRequest {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	req := m.request
	m.request = domain.NoRequest
	return req
}

// ShouldSleep reports whether the caller may block until the next external
// event. False means re-render immediately or busy-wait toward an imminent
// frame boundary.
func (m *Manager) ShouldSleep() bool { return m.shouldSleep }

// Texture returns the displayed texture, or nil after a failed load.
func (m *Manager) Texture() domain.Texture { return m.texture }

// UpdateImage runs one tick: it advances the playback clock, resolves the
// pending navigation request against the cache and keeps background prefetch
// flowing. Load failures degrade to the no-image state; errors are logged,
// never propagated, so the render loop keeps ticking.
func (m *Manager) UpdateImage(d domain.Display) {
	m.shouldSleep = true

	request := m.takeRequest()

	frameDelta := int64(nanosPerSecond / m.frameRate)

	if m.state == domain.Paused {
		if err := m.cache.ProcessPrefetched(d); err != nil {
			m.logger.Warn("prefetch processing failed", "error", err)
		}
		m.cache.SendLoadRequests()
	} else if request.IsNone() {
		elapsedNanos := m.now().Sub(m.playbackStart).Nanoseconds()
		frameStep := elapsedNanos/frameDelta - m.frameCount
		if frameStep > 0 {
			switch m.state {
			case domain.PlayingForward:
				request = domain.Jump(int(frameStep))
			default:
				panic("unreachable playback state")
			}
			m.frameCount += frameStep
		} else {
			if err := m.cache.ProcessPrefetched(d); err != nil {
				m.logger.Warn("prefetch processing failed", "error", err)
			}

			nanosSinceLastFrame := elapsedNanos % frameDelta
			if float64(nanosSinceLastFrame) > float64(frameDelta)*busyWaitThreshold {
				// Close to the next frame swap: spin instead of sleeping.
				m.shouldSleep = false
			} else {
				m.cache.SendLoadRequests()
			}
		}
	}

	texture, filename, loaded, err := m.resolve(d, request)
	if !loaded {
		return
	}

	if err != nil {
		m.texture = nil
		m.filename = ""
		m.displayedPath = ""
		d.SetTitle(noImageTitle)
		m.reportLoadError(err)
	} else {
		m.texture = texture
		m.filename = filename
		m.displayedPath, _ = m.cache.CurrentFilePath()
		// Title updates hang inside the windowing layer when they race a
		// resize, so they are suppressed during playback. Known limitation.
		if m.state == domain.Paused {
			d.SetTitle(filename)
		}
	}

	m.shouldSleep = false
}

// resolve executes one navigation request against the cache. loaded is false
// only for the empty request.
func (m *Manager) resolve(d domain.Display, req domain.NavigationRequest) (domain.Texture, string, bool, error) {
	switch req.Kind {
	case domain.NavNone:
		return nil, "", false, nil
	case domain.NavNext:
		tex, name, err := m.cache.LoadNext(d)
		return tex, name, true, err
	case domain.NavPrevious:
		tex, name, err := m.cache.LoadPrev(d)
		return tex, name, true, err
	case domain.NavJump:
		tex, name, err := m.cache.LoadJump(d, req.Offset)
		return tex, name, true, err
	case domain.NavSpecific:
		// The file name must be extractable before any cache work happens.
		name := filepath.Base(req.Path)
		if name == "." || name == string(filepath.Separator) {
			return nil, "", true, domain.ErrNoFileName
		}
		tex, err := m.cache.LoadSpecific(d, req.Path)
		return tex, name, true, err
	default:
		panic("unreachable navigation request kind")
	}
}

// reportLoadError writes the full causal chain to the log, one line per
// cause, plus the worker stack when a background decode captured one.
func (m *Manager) reportLoadError(err error) {
	m.logger.Error("image load failed", "error", err)
	m.logCauses(err)
	var dec *domain.DecodeError
	if errors.As(err, &dec) && len(dec.Stack) > 0 {
		m.logger.Error("decode stack", "stack", string(dec.Stack))
	}
}

// logCauses walks both single- and multi-wrapped causes, one line each.
func (m *Manager) logCauses(err error) {
	switch v := err.(type) {
	case interface{ Unwrap() []error }:
		for _, cause := range v.Unwrap() {
			m.logger.Error("caused by", "error", cause)
			m.logCauses(cause)
		}
	case interface{ Unwrap() error }:
		if cause := v.Unwrap(); cause != nil {
			m.logger.Error("caused by", "error", cause)
			m.logCauses(cause)
		}
	}
}

// Close releases the cache, its textures and the decode pool.
func (m *Manager) Close() {
	m.cache.Close()
}
