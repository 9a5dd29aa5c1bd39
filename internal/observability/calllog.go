package observability

import (
	"time"

	"github.com/danmuck/smpctl/internal/protocol"
	"github.com/rs/zerolog"
)

// LogCall writes one structured line per classified call. Successful calls
// log at debug, remote rejections at warn, everything else at error.
func LogCall(logger zerolog.Logger, group, command string, seq uint8, duration time.Duration, err error) {
	outcome := protocol.Classify(err)

	event := logger.Debug()
	switch outcome {
	case protocol.OutcomeOK:
	case protocol.OutcomeRemote:
		event = logger.Warn()
	default:
		event = logger.Error()
	}

	event.
		Str("group", group).
		Str("command", command).
		Uint8("seq", seq).
		Str("outcome", outcome).
		Dur("duration", duration).
		Err(err).
		Msg("smp_call")
}
