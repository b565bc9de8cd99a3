package graphics

import "github.com/llehouerou/termgfx/internal/errmsg"

// HandleCommand processes one parsed command with its payload: the image
// bytes for inline transmission, or a path or shared-memory name
// otherwise. Failures are reported and returned.
func (s *Store) HandleCommand(cmd *Command, payload []byte) error {
	var err error
	switch cmd.Action {
	case ActionNone, ActionTransmit:
		err = s.handleTransmit(cmd, payload)
	default:
		err = protocolErrorf(errmsg.OpDispatch, "unsupported graphics action %s", cmd.Action)
	}
	if err != nil {
		s.reporter.Report(err)
	}
	return err
}
