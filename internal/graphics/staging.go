package graphics

// stagingKind tags which backing store a loadData currently holds.
type stagingKind int

const (
	stagingEmpty stagingKind = iota
	stagingInline
	stagingMapped
)

// loadData is the transient staging area of an image. It holds either an
// inline buffer or a read-only file mapping, never both.
type loadData struct {
	kind stagingKind

	// inline: bytes accumulated so far, bounded by limit.
	buf   []byte
	limit int

	// mapped: the whole source file, released through unmap.
	mapping *mapping

	// Taken from the command that started the upload; continuation
	// chunks do not repeat them.
	format      Format
	compression Compression

	// declaredSize is width*height*bytesPerPixel for the current upload.
	declaredSize   int
	is4ByteAligned bool

	// aborted marks a chunked upload that failed before its last chunk.
	// Its remaining chunks are dropped.
	aborted bool

	// data is the validated display-ready slice once loading succeeded.
	data []byte
}

// startInline switches the staging area to an inline buffer that accepts
// at most limit bytes. prealloc bounds the initial allocation.
func (ld *loadData) startInline(limit, prealloc int) {
	ld.release()
	ld.aborted = false
	ld.kind = stagingInline
	ld.limit = limit
	ld.buf = make([]byte, 0, min(limit, prealloc))
}

// appendChunk adds a chunk to the inline buffer. It reports false without
// touching the buffer if the chunk does not fit.
func (ld *loadData) appendChunk(chunk []byte) bool {
	if ld.kind != stagingInline || len(chunk) > ld.limit-len(ld.buf) {
		return false
	}
	ld.buf = append(ld.buf, chunk...)
	return true
}

// setMapping switches the staging area to a file mapping.
func (ld *loadData) setMapping(m *mapping) {
	ld.release()
	ld.kind = stagingMapped
	ld.mapping = m
}

// replace swaps the staging contents for a freshly decoded buffer.
func (ld *loadData) replace(decoded []byte) {
	ld.release()
	ld.kind = stagingInline
	ld.buf = decoded
	ld.limit = len(decoded)
}

// bytes returns the staged payload regardless of its backing store.
func (ld *loadData) bytes() []byte {
	switch ld.kind {
	case stagingInline:
		return ld.buf
	case stagingMapped:
		return ld.mapping.data
	default:
		return nil
	}
}

// release frees the inline buffer or unmaps the file. Safe to call on an
// empty staging area.
func (ld *loadData) release() {
	if ld.kind == stagingMapped && ld.mapping != nil {
		_ = ld.mapping.close()
	}
	ld.kind = stagingEmpty
	ld.buf = nil
	ld.limit = 0
	ld.mapping = nil
	ld.data = nil
}
