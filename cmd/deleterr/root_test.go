package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arrServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"appName": "test", "version": "4.0.0"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setEnv(t *testing.T, sonarrURL, radarrURL string) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("SONARR_URL", sonarrURL)
	t.Setenv("SONARR_API_KEY", "key")
	t.Setenv("RADARR_URL", radarrURL)
	t.Setenv("RADARR_API_KEY", "key")
	t.Setenv("JELLYFIN_URL", "")
	t.Setenv("JELLYFIN_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "search", "check"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.RunE, "serve is the default command")
}

func TestCheckCommand(t *testing.T) {
	setEnv(t, arrServer(t, http.StatusOK).URL, arrServer(t, http.StatusOK).URL)

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"check"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "radarr     ok")
	assert.Contains(t, out.String(), "sonarr     ok")
}

func TestCheckCommand_Unreachable(t *testing.T) {
	setEnv(t, arrServer(t, http.StatusOK).URL, arrServer(t, http.StatusUnauthorized).URL)

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"check"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 service(s) unreachable")
	assert.Contains(t, out.String(), "radarr     unreachable")
}

func TestCheckCommand_MissingConfig(t *testing.T) {
	setEnv(t, "", "")

	root := newRootCommand()
	root.SetArgs([]string{"check"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SONARR_URL is required")
}
