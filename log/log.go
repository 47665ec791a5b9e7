// Package log provides the module-scoped logger used throughout the
// indexer. Every package obtains its own named logger at init via
// NewModuleLogger, in the same shape klaytn's storage/database package
// expects of github.com/klaytn/klaytn/log.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
)

// Lvl is a log severity level.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgWhite, color.BgRed, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgHiBlack),
}

// Module name constants, one per indexer subsystem. Mirrors klaytn's
// log.StorageDatabase / log.Common module tags.
const (
	NodeIndex   = "nodeindex"
	BlockFile   = "blockfile"
	IndexWriter = "indexwriter"
	Store       = "store"
	LiveSync    = "livesync"
	RPCClient   = "rpcclient"
	Common      = "common"
	Config      = "config"
)

// Logger is the interface every component logs through.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	NewWith(ctx ...interface{}) Logger
}

var (
	mu       sync.Mutex
	minLevel = LvlInfo
	out      io.Writer = colorable.NewColorableStdout()
	useColor           = true
)

// SetLevel sets the process-wide minimum level that is emitted.
func SetLevel(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects all loggers to w (used by tests).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	useColor = false
}

type logger struct {
	module string
	ctx    []interface{}
}

// NewModuleLogger returns a Logger tagged with module, the convention
// every package in this repository follows at init time.
func NewModuleLogger(module string) Logger {
	return &logger{module: module}
}

func (l *logger) NewWith(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{module: l.module, ctx: merged}
}

func (l *logger) log(lvl Lvl, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLevel {
		return
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	caller := ""
	if cs := stack.Caller(2); true {
		caller = fmt.Sprintf("%+v", cs)
	}

	line := fmt.Sprintf("%s [%-5s] %-12s %-28s %s", ts, lvl.String(), l.module, caller, msg)
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		line += fmt.Sprintf(" %v=%v", all[i], all[i+1])
	}

	if useColor {
		if c, ok := levelColor[lvl]; ok {
			line = c.Sprint(line)
		}
	}
	fmt.Fprintln(out, line)

	if lvl == LvlCrit {
		os.Exit(1)
	}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx) }
