package domain

import "image"

// Texture is a GPU-resident image handle created by a Display. Dispose
// releases the GPU memory; only the render goroutine may call it.
type Texture interface {
	Dispose()
}

// Display is the rendering-capable window handle the render loop passes into
// each tick. Implementations are bound to a single GPU context, so both
// operations must be called from the render goroutine only; decode workers
// never see a Display.
type Display interface {
	// CreateTexture uploads a decoded pixel buffer as a 2D color texture.
	CreateTexture(img *image.RGBA) (Texture, error)

	// SetTitle replaces the window title with the given file name.
	SetTitle(name string)
}

// HostInfo reports host capacity. It is queried once at construction to size
// the cache budget and the decode worker pool; no global state is kept.
type HostInfo interface {
	TotalMemoryBytes() (uint64, error)
	CPUCoreCount() (int, error)
}
