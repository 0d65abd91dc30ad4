// Package log provides the key/value logger used by the consensus node.
// The API follows the usual form: a message followed by alternating keys
// and values, e.g. log.Info("block finalized", "number", 7, "hash", h).
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-isatty"
)

// Lvl is a log level. Lower values are more severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

// AlignedString returns a five-character level tag.
func (l Lvl) AlignedString() string {
	switch l {
	case LvlTrace:
		return "TRACE"
	case LvlDebug:
		return "DEBUG"
	case LvlInfo:
		return "INFO "
	case LvlWarn:
		return "WARN "
	case LvlError:
		return "ERROR"
	case LvlCrit:
		return "CRIT "
	default:
		panic("bad level")
	}
}

// Logger writes key/value log records.
type Logger interface {
	// New returns a child logger with ctx prepended to every record.
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	// Crit logs and then exits the process.
	Crit(msg string, ctx ...interface{})
}

var (
	mu       sync.Mutex
	maxLvl   = LvlInfo
	useColor = isatty.IsTerminal(os.Stderr.Fd())

	lvlColor = map[Lvl]*color.Color{
		LvlCrit:  color.New(color.FgMagenta, color.Bold),
		LvlError: color.New(color.FgRed),
		LvlWarn:  color.New(color.FgYellow),
		LvlInfo:  color.New(color.FgGreen),
		LvlDebug: color.New(color.FgCyan),
		LvlTrace: color.New(color.FgWhite),
	}
)

// SetVerbosity sets the most verbose level that will be written.
func SetVerbosity(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	maxLvl = l
}

type logger struct {
	ctx []interface{}
}

var root = &logger{}

// Root returns the root logger.
func Root() Logger { return root }

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{ctx: make([]interface{}, 0, len(l.ctx)+len(ctx))}
	child.ctx = append(child.ctx, l.ctx...)
	child.ctx = append(child.ctx, ctx...)
	return child
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(LvlCrit, msg, ctx)
	os.Exit(1)
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > maxLvl {
		return
	}

	var b strings.Builder
	tag := lvl.AlignedString()
	if useColor {
		tag = lvlColor[lvl].Sprint(tag)
	}
	fmt.Fprintf(&b, "%s[%s] %-40s", tag, time.Now().Format("01-02|15:04:05.000"), msg)

	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	if lvl <= LvlWarn {
		all = append(all, "caller", stack.Caller(2).String())
	}
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintln(os.Stderr, b.String())
}

// Package-level convenience functions logging through the root logger.

func Trace(msg string, ctx ...interface{}) { root.write(LvlTrace, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { root.write(LvlDebug, msg, ctx) }
func Info(msg string, ctx ...interface{})  { root.write(LvlInfo, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { root.write(LvlWarn, msg, ctx) }
func Error(msg string, ctx ...interface{}) { root.write(LvlError, msg, ctx) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
