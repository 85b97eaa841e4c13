package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/polyhop/xmapgen/internal/lib/testutils"
)

type globalTestState struct {
	*globalState

	stdOut, stdErr *bytes.Buffer
	loggerHook     *testutils.SimpleLogrusHook
}

// newGlobalTestState returns a globalState backed by an in-memory filesystem
// and buffered outputs, so whole commands can run in simulated environments.
func newGlobalTestState(t *testing.T) *globalTestState {
	fs := afero.NewMemMapFs()

	logger := logrus.New()
	logger.SetOutput(testutils.NewTestOutput(t))
	hook := testutils.NewLogHook()
	logger.AddHook(hook)

	outMutex := &sync.Mutex{}
	ts := &globalTestState{
		stdOut:     new(bytes.Buffer),
		stdErr:     new(bytes.Buffer),
		loggerHook: hook,
	}

	defaultFlags := getDefaultFlags()
	defaultFlags.logFile = "" // tests opt into log files explicitly

	ts.globalState = &globalState{
		ctx:          context.Background(),
		fs:           fs,
		getwd:        func() (string, error) { return "/", nil },
		args:         []string{"xmapgen"},
		envVars:      map[string]string{},
		defaultFlags: defaultFlags,
		flags:        defaultFlags,
		outMutex:     outMutex,
		stdOut:       &consoleWriter{ts.stdOut, false, outMutex},
		stdErr:       &consoleWriter{ts.stdErr, false, outMutex},
		osExit:       func(code int) { t.Fatalf("unexpected os.Exit(%d) call", code) },
		logger:       logger,
		fallbackLogger: &logrus.Logger{
			Out:       testutils.NewTestOutput(t),
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
	return ts
}
