package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrompter struct {
	token string
	err   error
	calls int
	seen  []string
}

func (f *fakePrompter) Token(current string) (string, error) {
	f.calls++
	f.seen = append(f.seen, current)
	return f.token, f.err
}

func options(dir string, p Prompter) Options {
	return Options{Dir: dir, Prompter: p, Log: zerolog.Nop()}
}

func TestInitCreatesFiles(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := filepath.Join(t.TempDir(), "qtally")
	p := &fakePrompter{token: "abc"}

	rep, err := Init(context.Background(), options(dir, p))
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	assert.Equal(t, []Step{
		{Name: "account", Message: "token saved"},
		{Name: "settings", Message: "created with default content"},
	}, rep.Steps)
	assert.Equal(t, []string{"account", "settings"}, rep.Marker.Steps)
	assert.NotEmpty(t, rep.Marker.ID)
	assert.Equal(t, []string{""}, p.seen)

	info, err := os.Stat(filepath.Join(dir, AccountFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	acct, err := readAccount(filepath.Join(dir, AccountFile))
	require.NoError(t, err)
	assert.Equal(t, "abc", acct.Token)

	s, err := LoadSettings(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, "text", s.CircuitDrawer)
	assert.True(t, Initialized(dir))
}

func TestInitSkipsWhenInitialized(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()
	p := &fakePrompter{token: "abc"}

	first, err := Init(context.Background(), options(dir, p))
	require.NoError(t, err)
	second, err := Init(context.Background(), options(dir, p))
	require.NoError(t, err)

	assert.True(t, second.Skipped)
	assert.Empty(t, second.Steps)
	assert.Equal(t, first.Marker.ID, second.Marker.ID)
	assert.Equal(t, 1, p.calls)
}

func TestInitReload(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()
	p := &fakePrompter{token: "abc"}
	first, err := Init(context.Background(), options(dir, p))
	require.NoError(t, err)

	p.token = "def"
	opts := options(dir, p)
	opts.Reload = true
	again, err := Init(context.Background(), opts)
	require.NoError(t, err)

	assert.False(t, again.Skipped)
	assert.NotEqual(t, first.Marker.ID, again.Marker.ID)
	assert.Equal(t, []string{"", "abc"}, p.seen)
	assert.Equal(t, "file exists", again.Steps[1].Message)
	acct, err := readAccount(filepath.Join(dir, AccountFile))
	require.NoError(t, err)
	assert.Equal(t, "def", acct.Token)
}

func TestInitTokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, " envtoken ")
	dir := t.TempDir()

	rep, err := Init(context.Background(), options(dir, nil))
	require.NoError(t, err)
	assert.Equal(t, "token taken from "+TokenEnv, rep.Steps[0].Message)
	acct, err := readAccount(filepath.Join(dir, AccountFile))
	require.NoError(t, err)
	assert.Equal(t, "envtoken", acct.Token)
}

func TestInitWithoutToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()

	_, err := Init(context.Background(), options(dir, nil))
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, Initialized(dir))

	_, err = Init(context.Background(), options(dir, &fakePrompter{err: errors.New("aborted")}))
	assert.EqualError(t, err, "setup account: aborted")
	assert.False(t, Initialized(dir))
}

func TestInitCopiesFallbacks(t *testing.T) {
	t.Setenv(TokenEnv, "")
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "account.9f4Hb8"), []byte("token: fromdrive\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "settings.yaml"), []byte("circuit_drawer: latex\n"), 0o644))

	dir := t.TempDir()
	opts := options(dir, nil)
	opts.AccountFallback = filepath.Join(src, "account")
	opts.SettingsFallback = filepath.Join(src, "settings.yaml")

	rep, err := Init(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "token loaded (file was copied)", rep.Steps[0].Message)
	assert.Equal(t, "file was copied", rep.Steps[1].Message)

	s, err := LoadSettings(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, "latex", s.CircuitDrawer)
}

func TestInitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Init(ctx, options(t.TempDir(), nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorrectFilename(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	touch("exact")
	touch("hidden.x7Q")
	touch("twice.a")
	touch("twice.b")
	touch("deep.a.b")

	tests := []struct {
		name, want string
	}{
		{"exact", "exact"},
		{"hidden", "hidden.x7Q"},
		{"twice", "twice"},
		{"deep", "deep"},
		{"nothing", "nothing"},
		{"has.ext", "has.ext"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CorrectFilename(filepath.Join(dir, tt.name))
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}
}

func TestCheckSetupFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "setup")

	path, src, err := CheckSetupFile(dir, "a.yaml", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), path)
	assert.Equal(t, FileMissing, src)

	_, _, err = CheckSetupFile(dir, "a.yaml", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, src, err = CheckSetupFile(dir, "a.yaml", "")
	require.NoError(t, err)
	assert.Equal(t, FileExists, src)
	assert.Equal(t, "file exists", src.String())
}
