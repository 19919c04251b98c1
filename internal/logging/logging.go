// Package logging provides logger creation.
package logging

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/dekarrin/jellog"
	"github.com/dekarrin/sms"
)

// New creates a new logger of the given provider. If filename is blank, it will
// not log to disk, only stderr, and the stderr logger will be configured at
// trace level instead of info level.
func New(p sms.LogProvider, filename string) (sms.Logger, error) {
	switch p {
	case sms.NoLog:
		return nil, errors.New("log provider cannot be NoLog")
	case sms.Jellog:
		j := jellog.New(jellog.Defaults[string]().WithComponent("sms"))

		if filename != "" {
			logOut, err := jellog.OpenFile(filename, nil)
			if err != nil {
				return nil, fmt.Errorf("open logfile: %q: %w", filename, err)
			}
			j.AddHandler(jellog.LvTrace, logOut)
			j.AddHandler(jellog.LvInfo, jellog.NewStderrHandler(nil))
		} else {
			j.AddHandler(jellog.LvTrace, jellog.NewStderrHandler(nil))
		}

		return jellogLogger{j: j}, nil
	case sms.StdLog:
		var w io.Writer = os.Stderr
		if filename != "" {
			f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				return nil, fmt.Errorf("open logfile: %q: %w", filename, err)
			}
			w = io.MultiWriter(os.Stderr, f)
		}
		return stdLogger{std: stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime|stdlog.LUTC)}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", p.String())
	}
}

// FromConfig creates the logger described by cfg. A disabled config gives a
// NoOpLogger.
func FromConfig(cfg sms.LogConfig) (sms.Logger, error) {
	if !cfg.Enabled {
		return NoOpLogger{}, nil
	}
	return New(cfg.Provider, cfg.File)
}

// WithPrefix returns a Logger that prepends prefix and a space to every
// message before passing it to log.
func WithPrefix(log sms.Logger, prefix string) sms.Logger {
	if log == nil {
		return NoOpLogger{}
	}
	if _, ok := log.(NoOpLogger); ok {
		return log
	}
	return prefixLogger{next: log, prefix: prefix + " "}
}

// NoOpLogger is a logger that performs no operations.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string)                 {}
func (NoOpLogger) Debugf(string, ...interface{}) {}
func (NoOpLogger) Error(string)                 {}
func (NoOpLogger) Errorf(string, ...interface{}) {}
func (NoOpLogger) Info(string)                  {}
func (NoOpLogger) Infof(string, ...interface{})  {}
func (NoOpLogger) Trace(string)                 {}
func (NoOpLogger) Tracef(string, ...interface{}) {}
func (NoOpLogger) Warn(string)                  {}
func (NoOpLogger) Warnf(string, ...interface{})  {}
func (NoOpLogger) DebugBreak()                  {}
func (NoOpLogger) ErrorBreak()                  {}
func (NoOpLogger) InfoBreak()                   {}
func (NoOpLogger) TraceBreak()                  {}
func (NoOpLogger) WarnBreak()                   {}

// stdLogger tags each line with a fixed-width level name.
type stdLogger struct {
	std *stdlog.Logger
}

func (log stdLogger) write(level, msg string, a ...interface{}) {
	if len(a) > 0 {
		msg = fmt.Sprintf(msg, a...)
	}
	log.std.Print(fmt.Sprintf("%-5s ", level) + msg)
}

func (log stdLogger) brk() {
	log.std.Print("")
}

func (log stdLogger) Debug(msg string)                      { log.write("DEBUG", msg) }
func (log stdLogger) Debugf(msg string, a ...interface{})   { log.write("DEBUG", msg, a...) }
func (log stdLogger) Error(msg string)                      { log.write("ERROR", msg) }
func (log stdLogger) Errorf(msg string, a ...interface{})   { log.write("ERROR", msg, a...) }
func (log stdLogger) Info(msg string)                       { log.write("INFO", msg) }
func (log stdLogger) Infof(msg string, a ...interface{})    { log.write("INFO", msg, a...) }
func (log stdLogger) Trace(msg string)                      { log.write("TRACE", msg) }
func (log stdLogger) Tracef(msg string, a ...interface{})   { log.write("TRACE", msg, a...) }
func (log stdLogger) Warn(msg string)                       { log.write("WARN", msg) }
func (log stdLogger) Warnf(msg string, a ...interface{})    { log.write("WARN", msg, a...) }
func (log stdLogger) DebugBreak()                           { log.brk() }
func (log stdLogger) ErrorBreak()                           { log.brk() }
func (log stdLogger) InfoBreak()                            { log.brk() }
func (log stdLogger) TraceBreak()                           { log.brk() }
func (log stdLogger) WarnBreak()                            { log.brk() }

type jellogLogger struct {
	j jellog.Logger[string]
}

func (log jellogLogger) Debug(msg string)                    { log.j.Debug(msg) }
func (log jellogLogger) Debugf(msg string, a ...interface{}) { log.j.Debugf(msg, a...) }
func (log jellogLogger) Error(msg string)                    { log.j.Error(msg) }
func (log jellogLogger) Errorf(msg string, a ...interface{}) { log.j.Errorf(msg, a...) }
func (log jellogLogger) Info(msg string)                     { log.j.Info(msg) }
func (log jellogLogger) Infof(msg string, a ...interface{})  { log.j.Infof(msg, a...) }
func (log jellogLogger) Trace(msg string)                    { log.j.Trace(msg) }
func (log jellogLogger) Tracef(msg string, a ...interface{}) { log.j.Tracef(msg, a...) }
func (log jellogLogger) Warn(msg string)                     { log.j.Warn(msg) }
func (log jellogLogger) Warnf(msg string, a ...interface{})  { log.j.Warnf(msg, a...) }
func (log jellogLogger) DebugBreak()                         { log.j.InsertBreak(jellog.LvDebug) }
func (log jellogLogger) ErrorBreak()                         { log.j.InsertBreak(jellog.LvError) }
func (log jellogLogger) InfoBreak()                          { log.j.InsertBreak(jellog.LvInfo) }
func (log jellogLogger) TraceBreak()                         { log.j.InsertBreak(jellog.LvTrace) }
func (log jellogLogger) WarnBreak()                          { log.j.InsertBreak(jellog.LvWarn) }

type prefixLogger struct {
	next   sms.Logger
	prefix string
}

func (log prefixLogger) Debug(msg string) { log.next.Debug(log.prefix + msg) }
func (log prefixLogger) Debugf(msg string, a ...interface{}) {
	log.next.Debugf(log.prefix+msg, a...)
}
func (log prefixLogger) Error(msg string) { log.next.Error(log.prefix + msg) }
func (log prefixLogger) Errorf(msg string, a ...interface{}) {
	log.next.Errorf(log.prefix+msg, a...)
}
func (log prefixLogger) Info(msg string) { log.next.Info(log.prefix + msg) }
func (log prefixLogger) Infof(msg string, a ...interface{}) {
	log.next.Infof(log.prefix+msg, a...)
}
func (log prefixLogger) Trace(msg string) { log.next.Trace(log.prefix + msg) }
func (log prefixLogger) Tracef(msg string, a ...interface{}) {
	log.next.Tracef(log.prefix+msg, a...)
}
func (log prefixLogger) Warn(msg string) { log.next.Warn(log.prefix + msg) }
func (log prefixLogger) Warnf(msg string, a ...interface{}) {
	log.next.Warnf(log.prefix+msg, a...)
}
func (log prefixLogger) DebugBreak() { log.next.DebugBreak() }
func (log prefixLogger) ErrorBreak() { log.next.ErrorBreak() }
func (log prefixLogger) InfoBreak()  { log.next.InfoBreak() }
func (log prefixLogger) TraceBreak() { log.next.TraceBreak() }
func (log prefixLogger) WarnBreak()  { log.next.WarnBreak() }
