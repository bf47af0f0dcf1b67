package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "SHEPHERD_TEST_ENV_LOAD=ok\n")

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	_ = os.Unsetenv("SHEPHERD_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("SHEPHERD_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("SHEPHERD_TEST_ENV_LOAD"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	tmp := t.TempDir()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	n, err := LoadEnv([]string{".env"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDatabaseOptions_Validate(t *testing.T) {
	d := DatabaseOptions{Driver: "mysql", DSN: "x"}
	require.Error(t, d.Validate())

	d = DatabaseOptions{Driver: "sqlite", DSN: " "}
	require.Error(t, d.Validate())

	d = DatabaseOptions{Driver: "pgx", DSN: "postgres://localhost/shepherd"}
	require.NoError(t, d.Validate())
	require.Equal(t, "postgres", d.Dialect())

	d.Driver = "sqlite"
	require.Equal(t, "sqlite3", d.Dialect())
}

func TestRateLimitOptions_Validate(t *testing.T) {
	cases := []struct {
		name    string
		opts    RateLimitOptions
		wantErr bool
	}{
		{name: "memory ok", opts: RateLimitOptions{GlobalRPS: 10, Storage: "memory"}},
		{name: "negative rps", opts: RateLimitOptions{GlobalRPS: -1, Storage: "memory"}, wantErr: true},
		{name: "unknown storage", opts: RateLimitOptions{GlobalRPS: 1, Storage: "etcd"}, wantErr: true},
		{name: "redis without url", opts: RateLimitOptions{GlobalRPS: 1, Storage: "redis"}, wantErr: true},
		{name: "redis with url", opts: RateLimitOptions{GlobalRPS: 1, Storage: "redis", RedisURL: "localhost:6379"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfiguration_ValidateImportOptions(t *testing.T) {
	c := &Configuration{
		Database:  DatabaseOptions{Driver: "sqlite", DSN: "file::memory:"},
		RateLimit: RateLimitOptions{GlobalRPS: 1, Storage: "memory"},
		Import:    ImportOptions{PreviewRows: 0, PageSize: 10},
	}
	require.Error(t, c.validate())

	c.Import.PreviewRows = 5
	require.NoError(t, c.validate())
	require.Equal(t, "X-Owner-ID", c.OwnerHeader)
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
