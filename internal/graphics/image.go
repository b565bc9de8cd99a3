package graphics

// Image is one stored image: its identity, declared geometry and staging
// state. Data is display-ready only once Loaded reports true.
type Image struct {
	// ClientID is the id chosen by the client; 0 means anonymous.
	ClientID uint32
	// InternalID is unique for the lifetime of the IDCounter that issued it.
	InternalID uint64

	Width  uint32
	Height uint32

	refCount int
	loaded   bool
	load     loadData
}

// Loaded reports whether a complete, decoded pixel buffer is available.
func (img *Image) Loaded() bool {
	return img.loaded
}

// Data returns the display-ready pixel data, or nil if the image is not
// loaded. RGB images hold 3 bytes per pixel, everything else 4. PNG
// images are stored bottom row first.
func (img *Image) Data() []byte {
	if !img.loaded {
		return nil
	}
	return img.load.data
}

// Format returns the pixel format the image was transmitted in. Data of a
// PNG image is RGBA.
func (img *Image) Format() Format {
	return img.load.format
}

// DeclaredSize is the expected decoded byte length.
func (img *Image) DeclaredSize() int {
	return img.load.declaredSize
}

// Is4ByteAligned reports whether rows of the pixel data start on 4-byte
// boundaries.
func (img *Image) Is4ByteAligned() bool {
	return img.load.is4ByteAligned
}

// RefCount returns the number of external references.
func (img *Image) RefCount() int {
	return img.refCount
}

// Ref records an external reference, such as a placement on screen.
func (img *Image) Ref() {
	img.refCount++
}

// Unref drops an external reference.
func (img *Image) Unref() {
	if img.refCount > 0 {
		img.refCount--
	}
}

// reset discards staged and decoded data, keeping identifiers.
func (img *Image) reset() {
	img.load.release()
	img.load = loadData{}
	img.loaded = false
}

func (img *Image) free() {
	img.load.release()
	img.loaded = false
}

// trimmable is the eviction predicate run before every new upload:
// anything not loaded, and anonymous images nothing refers to.
func trimmable(img *Image) bool {
	return !img.loaded || (img.ClientID == 0 && img.refCount == 0)
}
