package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/polyhop/xmapgen/errext"
	"github.com/polyhop/xmapgen/errext/exitcodes"
)

func (c *rootCommand) setupLoggers() error {
	gs := c.globalState
	level := logrus.InfoLevel
	switch {
	case gs.flags.verbose:
		level = logrus.DebugLevel
	case gs.flags.quiet:
		level = logrus.WarnLevel
	}
	gs.logger.SetLevel(level)

	switch gs.flags.logOutput {
	case "stderr":
		gs.logger.SetOutput(gs.stdErr)
	case "stdout":
		gs.logger.SetOutput(gs.stdOut)
	case "none":
		gs.logger.SetOutput(io.Discard)
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("unsupported log output '%s'", gs.flags.logOutput), exitcodes.LoggerError)
	}

	// the run log file keeps its timestamps even when the console goes raw
	var fileFormatter logrus.Formatter = &logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	}
	switch gs.flags.logFormat {
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
		fileFormatter = &logrus.JSONFormatter{}
	case "raw":
		gs.logger.SetFormatter(&rawFormatter{})
	case "", "text":
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("unsupported log format '%s'", gs.flags.logFormat), exitcodes.LoggerError)
	}

	if gs.flags.logFile != "" {
		hook, err := newFileHook(gs.fs, gs.flags.logFile, fileFormatter)
		if err != nil {
			return errext.WithExitCodeIfNone(
				fmt.Errorf("couldn't start the log file: %w", err), exitcodes.LoggerError)
		}
		c.logFileHook = hook
		gs.logger.AddHook(hook)
	}
	return nil
}

// fileHook mirrors every log entry that passes the logger level into the run
// log file.
type fileHook struct {
	file      afero.File
	w         *bufio.Writer
	formatter logrus.Formatter

	mutex sync.Mutex
}

func newFileHook(fsys afero.Fs, path string, formatter logrus.Formatter) (*fileHook, error) {
	// truncates any previous run's log
	file, err := fsys.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileHook{
		file:      file,
		w:         bufio.NewWriter(file),
		formatter: formatter,
	}, nil
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	msg, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	_, err = h.w.Write(msg)
	return err
}

// rawFormatter drops everything but the message itself.
type rawFormatter struct{}

// Format renders a single log entry
func (f rawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

func (h *fileHook) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if err := h.w.Flush(); err != nil {
		_ = h.file.Close()
		return err
	}
	return h.file.Close()
}
