package mlog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log wraps logrus.Logger and holds information of logging file.
type Log struct {
	*logrus.Logger

	file     *os.File
	location string
	mu       sync.Mutex
}

var (
	global   *Log
	globalMu sync.RWMutex
)

// New creates Log object.
// The location "stderr" or an empty location prints to the standard error.
func New(location string) (*Log, error) {
	l := &Log{}

	l.Logger = logrus.New()
	l.location = location

	if l.location == "" || l.location == "stderr" {
		l.Out = os.Stderr
		l.file = nil
	} else {
		f, err := os.OpenFile(location, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		l.Out = f
		l.file = f
	}

	return l, nil
}

// Close closes the logging file if the log writes to a file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	l.Out = os.Stderr
	return err
}

// Init sets up the process wide logger with the given location.
func Init(location string) error {
	l, err := New(location)
	if err != nil {
		return err
	}

	globalMu.Lock()
	old := global
	global = l
	globalMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// GetLogger returns the process wide logger.
// Logs go to the standard error until Init is called.
func GetLogger() *logrus.Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()

	if l != nil {
		return l.Logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global, _ = New("stderr")
	}
	return global.Logger
}

// GetPackageLogger returns a logger entry tagged with the package name.
func GetPackageLogger(pkg string) *logrus.Entry {
	return GetLogger().WithField("package", pkg)
}

// GetFunctionLogger returns a logger entry tagged with the function name.
func GetFunctionLogger(l *logrus.Entry, function string) *logrus.Entry {
	if l == nil {
		l = logrus.NewEntry(GetLogger())
	}
	return l.WithField("function", function)
}

// GetMethodLogger returns a logger entry tagged with the method name.
func GetMethodLogger(l *logrus.Entry, method string) *logrus.Entry {
	if l == nil {
		l = logrus.NewEntry(GetLogger())
	}
	return l.WithField("method", method)
}
