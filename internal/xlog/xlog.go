// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package xlog is the process-wide structured logging setup: a
// logrus.Logger with key/value call sites in the style the rest of the
// pack uses (log.Info("message", "key", value, "key2", value2)), rotated
// to disk via lumberjack and colorized on an interactive terminal.
package xlog

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a logrus.Entry so call sites use geth-style alternating
// key/value pairs instead of logrus's WithFields map literal.
type Logger struct {
	entry *logrus.Entry
}

var root = New()

// New builds a Logger writing to stderr, colorized if stderr is a
// terminal, at Info level.
func New() *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   !isatty.IsTerminal(os.Stderr.Fd()),
		ForceColors:     isatty.IsTerminal(os.Stderr.Fd()),
		TimestampFormat: "15:04:05.000",
	})
	l.SetOutput(colorable.NewColorableStderr())
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: logrus.NewEntry(l)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		root = l
	}
}

// Default returns the process-wide default Logger.
func Default() *Logger { return root }

// SetLevel adjusts the minimum emitted level ("debug", "info", "warn",
// "error"); an unrecognised name leaves the level unchanged.
func (l *Logger) SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return
	}
	l.entry.Logger.SetLevel(lvl)
}

// AddFileOutput tees output to a size/age-rotated log file under dataDir,
// in addition to stderr.
func (l *Logger) AddFileOutput(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	l.entry.Logger.SetOutput(io.MultiWriter(colorable.NewColorableStderr(), rotator))
}

// Module returns a child logger tagging every line with a "module" field,
// the primary way a subsystem (bft, gossip, sync, mempool, ...) obtains
// its own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{entry: l.entry.WithField("module", name)}
}

// With returns a child logger carrying additional alternating key/value
// context applied to every subsequent line.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fieldsOf(kv))}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.entry.WithFields(fieldsOf(kv)).Debug(msg) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.entry.WithFields(fieldsOf(kv)).Info(msg) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.entry.WithFields(fieldsOf(kv)).Warn(msg) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.entry.WithFields(fieldsOf(kv)).Error(msg) }

// Crit logs at Error and terminates the process with exit code 1. The
// Coordinator calls it for errors its taxonomy classifies Fatal.
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.entry.WithFields(fieldsOf(kv)).Error(msg)
	os.Exit(1)
}

func fieldsOf(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}

// Package-level convenience functions delegate to the default Logger.
func Debug(msg string, kv ...interface{}) { root.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { root.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { root.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { root.Error(msg, kv...) }
func Crit(msg string, kv ...interface{})  { root.Crit(msg, kv...) }
