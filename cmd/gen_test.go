package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyhop/xmapgen/errext"
	"github.com/polyhop/xmapgen/errext/exitcodes"
	"github.com/polyhop/xmapgen/internal/lib/testutils"
)

const (
	oldHashA = uint64(0x1111111111111111)
	oldHashB = uint64(0x2222222222222222)
	newHashA = uint64(0x3333333333333333)
	newHashB = uint64(0x4444444444444444)
)

func writeContainerPair(t *testing.T, fs afero.Fs, name string, oldTable, newTable []uint64, code []byte) {
	t.Helper()
	oldPath := fmt.Sprintf("/old/%s_ysc/%s.ysc.full", name, name)
	newPath := fmt.Sprintf("/new/%s_ysc/%s.ysc.full", name, name)
	require.NoError(t, afero.WriteFile(fs, oldPath, testutils.BuildContainer(oldTable, code, false), 0o644))
	require.NoError(t, afero.WriteFile(fs, newPath, testutils.BuildContainer(newTable, code, true), 0o644))
}

func TestGenEndToEnd(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	code := testutils.Bytecode(
		testutils.Filler(2),
		testutils.NativeCall(0),
		testutils.NativeCall(1),
		testutils.Filler(5),
		testutils.NativeCall(0),
	)
	writeContainerPair(t, ts.fs, "intro",
		[]uint64{oldHashA, oldHashB}, []uint64{newHashA, newHashB}, code)

	reference := "0x00000000AAAAAAAA, 0x1111111111111111,\n" +
		"0x00000000BBBBBBBB, 0x2222222222222222,\n"
	require.NoError(t, afero.WriteFile(ts.fs, "/ref.txt", []byte(reference), 0o644))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new",
		"--reference", "/ref.txt", "--out", "/out.txt", "--log-file", "/run.log")
	require.NoError(t, newRootCommand(ts.globalState).execute())

	out, err := afero.ReadFile(ts.fs, "/out.txt")
	require.NoError(t, err)
	assert.Equal(t,
		"0x00000000AAAAAAAA, 0x3333333333333333,\n"+
			"0x00000000BBBBBBBB, 0x4444444444444444,\n",
		string(out))

	// the run log got the progress lines
	logContent, err := afero.ReadFile(ts.fs, "/run.log")
	require.NoError(t, err)
	assert.Contains(t, string(logContent), "call count matching")

	assert.Contains(t, ts.stdOut.String(), "translations:")
	assert.Contains(t, ts.stdOut.String(), "2/2")
}

func TestGenVerify(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	code := testutils.Bytecode(
		testutils.Filler(2),
		testutils.NativeCall(0),
		testutils.NativeCall(1),
		testutils.NativeCall(0),
	)
	writeContainerPair(t, ts.fs, "intro",
		[]uint64{oldHashA, oldHashB}, []uint64{newHashA, newHashB}, code)

	reference := "0x00000000AAAAAAAA, 0x1111111111111111,\n" +
		"0x00000000BBBBBBBB, 0x2222222222222222,\n"
	require.NoError(t, afero.WriteFile(ts.fs, "/ref.txt", []byte(reference), 0o644))
	// one expectation disagrees on purpose
	expected := "0x00000000AAAAAAAA, 0x3333333333333333,\n" +
		"0x00000000BBBBBBBB, 0x9999999999999999,\n"
	require.NoError(t, afero.WriteFile(ts.fs, "/expected.txt", []byte(expected), 0o644))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new",
		"--reference", "/ref.txt", "--out", "/out.txt", "--verify", "/expected.txt")
	require.NoError(t, newRootCommand(ts.globalState).execute())

	assert.Contains(t, ts.stdOut.String(), "wrong:")
}

func TestGenSkipsUnparseablePairs(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	code := testutils.Bytecode(testutils.Filler(2), testutils.NativeCall(0), testutils.NativeCall(0))
	writeContainerPair(t, ts.fs, "intro", []uint64{oldHashA}, []uint64{newHashA}, code)
	// a garbage pair must not abort the run
	require.NoError(t, afero.WriteFile(ts.fs, "/old/bad_ysc/bad.ysc.full", []byte("nope"), 0o644))
	require.NoError(t, afero.WriteFile(ts.fs, "/new/bad_ysc/bad.ysc.full", []byte("nope"), 0o644))

	reference := "0x00000000AAAAAAAA, 0x1111111111111111,\n"
	require.NoError(t, afero.WriteFile(ts.fs, "/ref.txt", []byte(reference), 0o644))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new", "--reference", "/ref.txt", "--out", "/out.txt")
	require.NoError(t, newRootCommand(ts.globalState).execute())

	out, err := afero.ReadFile(ts.fs, "/out.txt")
	require.NoError(t, err)
	assert.Contains(t, string(out), "0x3333333333333333")
}

func TestGenMissingReference(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	require.NoError(t, ts.fs.MkdirAll("/old", 0o755))
	require.NoError(t, ts.fs.MkdirAll("/new", 0o755))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new", "--reference", "/nope.txt", "--out", "/out.txt")
	err := newRootCommand(ts.globalState).execute()
	require.Error(t, err)

	var ecerr errext.HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.ReferenceError, ecerr.ExitCode())
}

func TestGenRequiresFlags(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.args = append(ts.args, "gen")
	require.Error(t, newRootCommand(ts.globalState).execute())
}

func TestGenInvalidConfig(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	require.NoError(t, ts.fs.MkdirAll("/old", 0o755))
	require.NoError(t, ts.fs.MkdirAll("/new", 0o755))
	require.NoError(t, afero.WriteFile(ts.fs, "/ref.txt", []byte{}, 0o644))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new", "--reference", "/ref.txt",
		"--min-pattern-size", "0")
	err := newRootCommand(ts.globalState).execute()
	require.Error(t, err)

	var ecerr errext.HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.InvalidConfig, ecerr.ExitCode())
}

func TestUnsupportedLogOutput(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.args = append(ts.args, "version", "--log-output", "loki")
	err := newRootCommand(ts.globalState).execute()
	require.Error(t, err)

	var ecerr errext.HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.LoggerError, ecerr.ExitCode())
}

func TestUnsupportedLogFormat(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.args = append(ts.args, "version", "--log-format", "logfmt")
	err := newRootCommand(ts.globalState).execute()
	require.Error(t, err)

	var ecerr errext.HasExitCode
	require.True(t, errors.As(err, &ecerr))
	assert.Equal(t, exitcodes.LoggerError, ecerr.ExitCode())
}

func TestJSONLogFormat(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	require.NoError(t, ts.fs.MkdirAll("/old", 0o755))
	require.NoError(t, ts.fs.MkdirAll("/new", 0o755))
	require.NoError(t, afero.WriteFile(ts.fs, "/ref.txt", []byte{}, 0o644))

	ts.args = append(ts.args, "gen",
		"--old", "/old", "--new", "/new", "--reference", "/ref.txt", "--out", "/out.txt",
		"--log-format", "json", "--log-file", "/run.log")
	require.NoError(t, newRootCommand(ts.globalState).execute())

	logContent, err := afero.ReadFile(ts.fs, "/run.log")
	require.NoError(t, err)
	assert.Contains(t, string(logContent), `"level":"info"`)
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.args = append(ts.args, "version")
	require.NoError(t, newRootCommand(ts.globalState).execute())
	assert.Contains(t, ts.stdOut.String(), "xmapgen v")
}
