package kittyimg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/llehouerou/termgfx/internal/errmsg"
	"github.com/llehouerou/termgfx/internal/graphics"
)

const maxSequenceSize = 64 << 20

var (
	apcStart = []byte("\x1b_")
	apcEnd   = []byte(escEnd)
)

// ScanAPC is a bufio.SplitFunc returning the body of every APC sequence
// (ESC _ ... ESC \) in the input. Bytes outside sequences and a truncated
// sequence at EOF are dropped.
func ScanAPC(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, apcStart)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing ESC: it may begin a sequence.
		if n := len(data); n > 0 && data[n-1] == 0x1b {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(apcStart):], apcEnd)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	bodyStart := start + len(apcStart)
	return bodyStart + end + len(apcEnd), data[bodyStart : bodyStart+end], nil
}

// Handler processes parsed graphics commands.
type Handler interface {
	HandleCommand(cmd *graphics.Command, payload []byte) error
}

// Stats counts what Feed saw.
type Stats struct {
	Commands  int // handled successfully
	Failed    int // rejected by the handler
	Malformed int // could not be parsed
	Ignored   int // APC sequences that are not graphics commands
}

// Feed reads every graphics command from r and passes it to h. Parse
// failures are sent to rep; handler failures are the handler's to report.
// The returned error is only set when reading r fails.
func Feed(r io.Reader, h Handler, rep graphics.Reporter) (Stats, error) {
	var stats Stats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSequenceSize)
	sc.Split(ScanAPC)

	for sc.Scan() {
		cmd, payload, err := Parse(sc.Bytes())
		switch {
		case errors.Is(err, ErrNotGraphics):
			stats.Ignored++
		case err != nil:
			stats.Malformed++
			if rep != nil {
				rep.Report(graphics.NewError(graphics.KindProtocol, errmsg.OpParseCommand, err))
			}
		case h.HandleCommand(cmd, payload) != nil:
			stats.Failed++
		default:
			stats.Commands++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("scan escape sequences: %w", err)
	}
	return stats, nil
}
