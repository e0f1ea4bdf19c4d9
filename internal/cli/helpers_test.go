package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/sebdah/goldie/v2"

	"github.com/roach88/syndicate/internal/activity"
	"github.com/roach88/syndicate/internal/credential"
	"github.com/roach88/syndicate/internal/keys"
	"github.com/roach88/syndicate/internal/testutil"
)

// testEnv runs commands against a temp database, a fixed clock, sequential
// keys and an in-memory activity backend.
type testEnv struct {
	opts   *RootOptions
	clock  *testutil.Clock
	fake   *activity.Fake
	creds  *credential.Store
	dir    string
	config string
	db     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	clock := testutil.NewClock(time.Time{})
	fake := activity.NewFake()
	creds := credential.New(keyring.NewArrayKeyring(nil))
	return &testEnv{
		opts: &RootOptions{
			now:         clock.Now,
			keys:        keys.NewCounterGenerator(0),
			backend:     fake,
			credentials: creds,
		},
		clock:  clock,
		fake:   fake,
		creds:  creds,
		dir:    dir,
		config: filepath.Join(dir, "none.yaml"),
		db:     filepath.Join(dir, "test.db"),
	}
}

// run executes one command line and returns stdout, stderr and the error.
// Global flags are reset on every call, so --config and --db are passed
// explicitly.
func (e *testEnv) run(args ...string) (string, string, error) {
	cmd := newRootCommand(e.opts)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
