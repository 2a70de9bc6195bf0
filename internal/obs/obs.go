// Package obs is the runtime's one and only logging chokepoint.
//
// Every other package logs through Event/Eventf instead of touching
// zerolog directly, so call sites stay a single cheap branch on the hot
// path — the same discipline the teacher's debug.DropMessage used, just
// backed by a structured logger instead of log.Printf.
package obs

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
	logger.Store(&l)
}

// SetLogger replaces the package-wide logger. Tests use this to capture
// output or silence it entirely (zerolog.Nop()).
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Event logs a cheap cold-path trace or error.
//
//   - err != nil:  logs at warn level with the error attached.
//   - err == nil:  logs at debug level, used as a trace tag.
func Event(prefix string, err error) {
	l := logger.Load()
	if err != nil {
		l.Warn().Err(err).Msg(prefix)
		return
	}
	l.Debug().Msg(prefix)
}

// Eventf is Event with one integer field, used by hot-path call sites
// that need a cheap counter/id attached without building a map.
func Eventf(prefix string, field string, n int64) {
	logger.Load().Debug().Int64(field, n).Msg(prefix)
}

// Fatal logs at error level, in every build; it never panics. The
// panicking variant under the fiberrt_debug tag is Trap.
func Fatal(prefix string, err error) {
	logger.Load().Error().Err(err).Msg(prefix)
}
