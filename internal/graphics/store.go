package graphics

import (
	"slices"
	"sync/atomic"
)

const (
	defaultInitialCapacity = 64
	defaultMaxImageBytes   = 400 << 20
	defaultRawMargin       = 10
	defaultEncodedMargin   = 1024
	defaultMaxPNGPayload   = 64 << 20
	defaultShmDir          = "/dev/shm"

	maxInt = int(^uint(0) >> 1)
)

// Limits bounds what a Store accepts.
type Limits struct {
	// InitialCapacity is the number of image slots allocated up front.
	InitialCapacity int
	// MaxImageBytes caps the decoded size of a single image.
	MaxImageBytes int
	// RawMargin is the slack added to inline buffers for raw pixels.
	RawMargin int
	// EncodedMargin is the slack added for compressed or PNG payloads.
	EncodedMargin int
	// MaxPNGPayload caps inline PNG payloads of unknown geometry and the
	// inflated size of compressed PNG payloads.
	MaxPNGPayload int
	// ShmDir is where POSIX shared-memory objects live.
	ShmDir string
	// AllowFileTransport enables the file, temporary file and
	// shared-memory transmission types.
	AllowFileTransport bool
}

// DefaultLimits returns the limits used when none are given.
func DefaultLimits() Limits {
	return Limits{
		InitialCapacity:    defaultInitialCapacity,
		MaxImageBytes:      defaultMaxImageBytes,
		RawMargin:          defaultRawMargin,
		EncodedMargin:      defaultEncodedMargin,
		MaxPNGPayload:      defaultMaxPNGPayload,
		ShmDir:             defaultShmDir,
		AllowFileTransport: true,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.InitialCapacity <= 0 {
		l.InitialCapacity = d.InitialCapacity
	}
	if l.MaxImageBytes <= 0 {
		l.MaxImageBytes = d.MaxImageBytes
	}
	if l.RawMargin <= 0 {
		l.RawMargin = d.RawMargin
	}
	if l.EncodedMargin <= 0 {
		l.EncodedMargin = d.EncodedMargin
	}
	if l.MaxPNGPayload <= 0 {
		l.MaxPNGPayload = d.MaxPNGPayload
	}
	if l.ShmDir == "" {
		l.ShmDir = d.ShmDir
	}
	return l
}

// IDCounter issues internal image ids, starting at 1 and never reusing
// one. Stores that share a counter never collide.
type IDCounter struct {
	last atomic.Uint64
}

// NewIDCounter returns a counter whose first id is 1.
func NewIDCounter() *IDCounter {
	return &IDCounter{}
}

// Next returns the next unused id.
func (c *IDCounter) Next() uint64 {
	return c.last.Add(1)
}

// Option configures a Store.
type Option func(*Store)

// WithLimits sets the store limits. Zero numeric and string fields keep
// their defaults.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l.withDefaults() }
}

// WithReporter sets where failures are reported.
func WithReporter(r Reporter) Option {
	return func(s *Store) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithIDCounter shares an id counter between stores.
func WithIDCounter(c *IDCounter) Option {
	return func(s *Store) {
		if c != nil {
			s.ids = c
		}
	}
}

// Store holds the images of one terminal grid. It is not safe for
// concurrent use: commands are processed one at a time by its owner.
type Store struct {
	lines   int
	columns int

	images []*Image
	// inProgress is the internal id of the image receiving a chunked
	// upload, or 0.
	inProgress uint64

	ids      *IDCounter
	limits   Limits
	reporter Reporter
}

// New creates an empty store for a grid of the given size.
func New(lines, columns int, opts ...Option) *Store {
	s := &Store{
		lines:    lines,
		columns:  columns,
		limits:   DefaultLimits(),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewIDCounter()
	}
	s.images = make([]*Image, 0, s.limits.InitialCapacity)
	return s
}

// Resize returns a store for the new grid size that takes over every
// image, the upload in progress and the configuration of s. s must not
// be used afterwards.
func (s *Store) Resize(lines, columns int) *Store {
	ns := &Store{
		lines:      lines,
		columns:    columns,
		images:     s.images,
		inProgress: s.inProgress,
		ids:        s.ids,
		limits:     s.limits,
		reporter:   s.reporter,
	}
	s.images = nil
	s.inProgress = 0
	return ns
}

// Close releases every image. The store is empty afterwards.
func (s *Store) Close() {
	for _, img := range s.images {
		img.free()
	}
	s.images = nil
	s.inProgress = 0
}

// Clear drops every image, referenced or not, and forgets any upload in
// progress.
func (s *Store) Clear() {
	for i, img := range s.images {
		img.free()
		s.images[i] = nil
	}
	s.images = s.images[:0]
	s.inProgress = 0
}

// Lines returns the grid height the store was created or resized for.
func (s *Store) Lines() int { return s.lines }

// Columns returns the grid width the store was created or resized for.
func (s *Store) Columns() int { return s.columns }

// Len returns the number of stored images.
func (s *Store) Len() int { return len(s.images) }

// Cap returns the number of image slots currently allocated.
func (s *Store) Cap() int { return cap(s.images) }

// InProgress returns the internal id of the image receiving a chunked
// upload, or 0 if none.
func (s *Store) InProgress() uint64 { return s.inProgress }

// Images returns the stored images in store order.
func (s *Store) Images() []*Image {
	return slices.Clone(s.images)
}

// ImageByClientID looks up an image by its client id. Anonymous images
// cannot be looked up.
func (s *Store) ImageByClientID(id uint32) (*Image, bool) {
	if id == 0 {
		return nil, false
	}
	for _, img := range s.images {
		if img.ClientID == id {
			return img, true
		}
	}
	return nil, false
}

// ImageByInternalID looks up an image by its internal id.
func (s *Store) ImageByInternalID(id uint64) (*Image, bool) {
	for _, img := range s.images {
		if img.InternalID == id {
			return img, true
		}
	}
	return nil, false
}

// findOrCreate returns the image with the given client id, or appends a
// fresh one when id is 0 or unknown.
func (s *Store) findOrCreate(clientID uint32) (img *Image, existing bool) {
	if img, ok := s.ImageByClientID(clientID); ok {
		return img, true
	}
	s.ensureSpace()
	img = &Image{}
	s.images = append(s.images, img)
	return img, false
}

// ensureSpace doubles the capacity of the image slice when it is full.
func (s *Store) ensureSpace() {
	if len(s.images) < cap(s.images) {
		return
	}
	grown := make([]*Image, len(s.images), max(2*cap(s.images), 1))
	copy(grown, s.images)
	s.images = grown
}

// removeWhere frees and removes every image matching pred. Surviving
// images keep their relative order.
func (s *Store) removeWhere(pred func(*Image) bool) {
	for i := len(s.images) - 1; i >= 0; i-- {
		if pred(s.images[i]) {
			s.images[i].free()
			s.images = slices.Delete(s.images, i, i+1)
		}
	}
}
