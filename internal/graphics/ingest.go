package graphics

import (
	"fmt"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

// handleTransmit runs one transmit command against the store.
//
// An inline command received while a chunked upload is in progress is a
// continuation of that upload, whatever its other keys say. Any other
// command starts a new image; a non-inline start abandons the upload in
// progress, leaving its record unloaded for the next eviction sweep.
//
// A chunked upload that fails before its last chunk stays in progress,
// marked aborted: its remaining chunks are consumed silently and the last
// one ends the upload.
func (s *Store) handleTransmit(cmd *Command, payload []byte) error {
	tt := cmd.transmission()

	var img *Image
	if tt == TransmitDirect && s.inProgress != 0 {
		var ok bool
		img, ok = s.ImageByInternalID(s.inProgress)
		if !ok {
			id := s.inProgress
			s.inProgress = 0
			return protocolErrorf(errmsg.OpContinue, "continuation refers to nonexistent image %d", id)
		}
		if img.load.aborted {
			if !cmd.More {
				s.inProgress = 0
			}
			return nil
		}
	} else {
		var err error
		if img, err = s.startImage(cmd, tt); err != nil {
			return err
		}
	}

	switch tt {
	case TransmitDirect:
		if !img.load.appendChunk(payload) {
			img.load.aborted = true
			if !cmd.More {
				s.inProgress = 0
			}
			return protocolErrorf(errmsg.OpTransmit,
				"too much data transmitted: %d bytes with %d of %d already used",
				len(payload), len(img.load.buf), img.load.limit)
		}
		if cmd.More {
			return nil
		}
		s.inProgress = 0

	default:
		m, err := s.readTransport(tt, payload)
		if err != nil {
			return err
		}
		img.load.setMapping(m)
	}

	return s.finishLoad(img)
}

// startImage evicts stale images, then finds or creates the image the
// command targets and prepares its staging area.
func (s *Store) startImage(cmd *Command, tt Transmission) (*Image, error) {
	switch tt {
	case TransmitDirect, TransmitFile, TransmitTempFile, TransmitShm:
	default:
		return nil, protocolErrorf(errmsg.OpTransmit, "unknown transmission type %s", tt)
	}
	switch cmd.Compression {
	case CompressionNone, CompressionZlib:
	default:
		return nil, protocolErrorf(errmsg.OpTransmit, "unknown image compression %s", cmd.Compression)
	}

	s.inProgress = 0
	s.removeWhere(trimmable)

	img, existing := s.findOrCreate(cmd.ClientID)
	if existing {
		img.reset()
	} else {
		img.InternalID = s.ids.Next()
		img.ClientID = cmd.ClientID
	}
	img.Width, img.Height = cmd.Width, cmd.Height

	if err := s.initLoad(img, cmd, tt); err != nil {
		if tt == TransmitDirect && cmd.More {
			img.load.aborted = true
			s.inProgress = img.InternalID
		}
		return nil, err
	}
	if tt == TransmitDirect && cmd.More {
		s.inProgress = img.InternalID
	}
	return img, nil
}

// initLoad computes the declared size and, for inline uploads, allocates
// the staging buffer.
func (s *Store) initLoad(img *Image, cmd *Command, tt Transmission) error {
	bpp := cmd.Format.bytesPerPixel()
	if bpp == 0 {
		return protocolErrorf(errmsg.OpTransmit, "unknown image format %s", cmd.Format)
	}

	pixels := uint64(cmd.Width) * uint64(cmd.Height)
	if pixels > uint64(s.limits.MaxImageBytes)/uint64(bpp) {
		return newError(KindResource, errmsg.OpTransmit,
			fmt.Errorf("%dx%d %s image exceeds %d bytes", cmd.Width, cmd.Height, cmd.Format, s.limits.MaxImageBytes))
	}

	ld := &img.load
	ld.format = cmd.Format
	ld.compression = cmd.Compression
	ld.declaredSize = int(pixels) * bpp
	ld.is4ByteAligned = cmd.Format != FormatRGB || cmd.Width%4 == 0

	if tt != TransmitDirect {
		return nil
	}
	margin := s.limits.RawMargin
	if cmd.Compression != CompressionNone || cmd.Format == FormatPNG {
		margin = s.limits.EncodedMargin
	}
	limit := ld.declaredSize + margin
	if cmd.Format == FormatPNG && pixels == 0 {
		limit = s.limits.MaxPNGPayload
	}
	ld.startInline(limit, ld.declaredSize+margin)
	return nil
}

// finishLoad decodes the staged bytes and validates their size. On any
// failure the image stays unloaded.
func (s *Store) finishLoad(img *Image) error {
	ld := &img.load
	img.loaded = false

	if ld.compression == CompressionZlib {
		var (
			out []byte
			err error
		)
		if ld.format == FormatPNG {
			out, err = inflateBounded(ld.bytes(), s.limits.MaxPNGPayload)
		} else {
			out, err = inflateExact(ld.bytes(), ld.declaredSize)
		}
		if err != nil {
			return err
		}
		ld.replace(out)
	}

	if ld.format == FormatPNG {
		pixels, w, h, err := decodePNG(ld.bytes(), s.limits.MaxImageBytes)
		if err != nil {
			return err
		}
		ld.replace(pixels)
		img.Width, img.Height = uint32(w), uint32(h)
		ld.declaredSize = len(pixels)
	}

	data := ld.bytes()
	if len(data) < ld.declaredSize {
		return protocolErrorf(errmsg.OpTransmit, "insufficient image data: %d < %d", len(data), ld.declaredSize)
	}
	ld.data = data[:ld.declaredSize]
	img.loaded = true
	return nil
}
