package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-content-dedup/internal/domain"
)

// run executes the command tree against dbPath and returns stdout.
func run(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", dbPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cli.db")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitDuplicate, ExitCode(ErrDuplicateFound))
	assert.Equal(t, ExitDuplicate, ExitCode(errors.Join(errors.New("x"), ErrDuplicateFound)))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
}

func TestRememberThenCheck_DuplicateExit(t *testing.T) {
	db := tempDB(t)

	out, err := run(t, db, "", "check", "--text", "Hello World")
	require.NoError(t, err)
	assert.Contains(t, out, "unique within 15d")

	out, err = run(t, db, "", "remember", "--text", "hello   world", "--platform", "twitter")
	require.NoError(t, err)
	var rec domain.ContentRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.NotZero(t, rec.ID)
	assert.Equal(t, "twitter", rec.PlatformOrDash())

	out, err = run(t, db, "", "check", "--text", "HELLO WORLD")
	require.ErrorIs(t, err, ErrDuplicateFound)
	assert.Contains(t, out, "duplicate within 15d")
	assert.Contains(t, out, "platform=twitter")

	// Zero window never matches.
	_, err = run(t, db, "", "check", "--text", "hello world", "--within-days", "0")
	require.NoError(t, err)
}

func TestCheck_JSONAndStdin(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "", "remember", "--text", "from stdin")
	require.NoError(t, err)

	out, err := run(t, db, "  FROM   stdin\n", "check", "--text", "-", "--json")
	require.ErrorIs(t, err, ErrDuplicateFound)
	var res domain.CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Duplicate)
	require.NotNil(t, res.Match)
}

func TestCheck_MediaFiles(t *testing.T) {
	db := tempDB(t)
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(img, []byte{1, 2, 3}, 0o600))

	_, err := run(t, db, "", "remember", "--image", img)
	require.NoError(t, err)
	_, err = run(t, db, "", "check", "--image", img, "--text", "different text")
	require.ErrorIs(t, err, ErrDuplicateFound)

	_, err = run(t, db, "", "check", "--image", filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateFound)
}

func TestRemember_IfNew(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "", "remember", "--text", "once", "--if-new")
	require.NoError(t, err)

	out, err := run(t, db, "", "remember", "--text", "once", "--if-new")
	require.ErrorIs(t, err, ErrDuplicateFound)
	assert.Contains(t, out, "duplicate within")

	out, err = run(t, db, "", "stats")
	require.NoError(t, err)
	var st domain.ContentStats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.EqualValues(t, 1, st.Total)
	assert.EqualValues(t, 1, st.ByPlatform["-"])
}

func TestPurge(t *testing.T) {
	db := tempDB(t)
	_, err := run(t, db, "", "remember", "--text", "fresh")
	require.NoError(t, err)

	out, err := run(t, db, "", "purge")
	require.NoError(t, err)
	assert.Equal(t, "deleted 0 records older than 30d\n", out)

	_, err = run(t, db, "", "purge", "--older-than-days", "-2")
	require.Error(t, err)

	out, err = run(t, db, "", "purge", "--older-than-days", "201910000000000")
	require.NoError(t, err)
	assert.Equal(t, "deleted 0 records older than 201910000000000d\n", out)

	out, err = run(t, db, "", "check", "--text", "fresh", "--within-days", "201910000000000")
	require.ErrorIs(t, err, ErrDuplicateFound)
	assert.Contains(t, out, "duplicate within 201910000000000d")
}

func TestVersionAndHelp(t *testing.T) {
	db := tempDB(t)
	out, err := run(t, db, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dedupd test\n", out)

	out, err = run(t, db, "")
	require.NoError(t, err)
	assert.Contains(t, out, "purge")
}

func TestExecute_ExitCodes(t *testing.T) {
	db := tempDB(t)
	var out, errOut bytes.Buffer

	code := Execute(context.Background(), "test", []string{"--db", db, "remember", "--text", "x"}, &out, &errOut)
	require.Equal(t, ExitOK, code)

	code = Execute(context.Background(), "test", []string{"--db", db, "check", "--text", "x"}, &out, &errOut)
	assert.Equal(t, ExitDuplicate, code)

	errOut.Reset()
	code = Execute(context.Background(), "test", []string{"--db", db, "nope"}, &out, &errOut)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, errOut.String(), "error:")
}

func TestBadDBPath_ReportsStorageError(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing", "dir", "x.db"), "", "stats")
	require.Error(t, err)
}
