// Package render adapts the playback core to an ebiten window: it owns the
// render loop that ticks the playback manager, translates keyboard input
// into navigation requests and uploads decoded buffers as GPU textures.
package render

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"filmstrip/internal/domain"
	"filmstrip/internal/playback"
	"filmstrip/internal/store"
)

const (
	defaultWidth  = 1024
	defaultHeight = 768

	titlePrefix = "filmstrip"

	pageJump = 10
)

// texture wraps an ebiten image as a domain texture.
type texture struct {
	img *ebiten.Image
}

func (t *texture) Dispose() { t.img.Deallocate() }

// Window is the ebiten game driving the playback manager once per tick. It
// also implements domain.Display: texture upload and title changes happen
// here, on the render goroutine, never on decode workers.
type Window struct {
	manager  *playback.Manager
	sessions *store.SessionStore
	dir      string

	lastSaved string
	logger    *slog.Logger
}

// NewWindow builds the render adapter. sessions may be a memory-less store.
func NewWindow(manager *playback.Manager, sessions *store.SessionStore, dir string, logger *slog.Logger) *Window {
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{
		manager:  manager,
		sessions: sessions,
		dir:      dir,
		logger:   logger,
	}
}

// CreateTexture uploads a decoded pixel buffer to the GPU.
func (w *Window) CreateTexture(img *image.RGBA) (domain.Texture, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty pixel buffer")
	}
	return &texture{img: ebiten.NewImageFromImage(img)}, nil
}

// SetTitle replaces the window title with the given file name.
func (w *Window) SetTitle(name string) {
	ebiten.SetWindowTitle(titlePrefix + " - " + name)
}

// Update is the external render tick: handle input, then let the manager
// update the cache and the displayed texture. The manager's sleep/spin hint
// is informational here since ebiten paces frames itself.
func (w *Window) Update() error {
	w.handleInput()
	w.manager.UpdateImage(w)
	w.saveSession()
	return nil
}

func (w *Window) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyRight), inpututil.IsKeyJustPressed(ebiten.KeySpace):
		w.manager.RequestLoad(domain.Next())
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		w.manager.RequestLoad(domain.Previous())
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		w.manager.RequestLoad(domain.Jump(pageJump))
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		w.manager.RequestLoad(domain.Jump(-pageJump))
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		if w.manager.State() == domain.Paused {
			w.manager.StartPlaybackForward()
		} else {
			w.manager.PausePlayback()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		if err := w.manager.UpdateDirectory(); err != nil {
			w.logger.Error("directory refresh failed", "error", err)
		}
	}
}

// saveSession records the displayed file while paused, so reopening the
// directory resumes here.
func (w *Window) saveSession() {
	if w.manager.State() != domain.Paused {
		return
	}
	path, err := w.manager.CurrentFilePath()
	if err != nil || path == w.lastSaved {
		return
	}
	if err := w.sessions.SaveViewed(w.dir, path); err != nil {
		w.logger.Warn("saving session failed", "error", err)
		return
	}
	w.lastSaved = path
}

// Draw paints the displayed texture scaled to fit the window, letterboxed.
func (w *Window) Draw(screen *ebiten.Image) {
	tex, ok := w.manager.Texture().(*texture)
	if !ok || tex == nil {
		return
	}

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	iw, ih := tex.img.Bounds().Dx(), tex.img.Bounds().Dy()
	if iw == 0 || ih == 0 {
		return
	}

	scale := min(float64(sw)/float64(iw), float64(sh)/float64(ih))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(
		(float64(sw)-float64(iw)*scale)/2,
		(float64(sh)-float64(ih)*scale)/2,
	)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(tex.img, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it is closed.
func (w *Window) Run() error {
	ebiten.SetWindowTitle(titlePrefix)
	ebiten.SetWindowSize(defaultWidth, defaultHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(w)
}
