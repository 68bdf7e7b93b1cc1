package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkExpectedErrorMessages(t *testing.T, err error, expectedMsgs []string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error but got nil")
	}
	errStr := err.Error()
	for _, msg := range expectedMsgs {
		if !strings.Contains(errStr, msg) {
			t.Errorf("expected error to contain %q, but got:\n%s", msg, errStr)
		}
	}
}

func loadConfigFromString(t *testing.T, jsonStr string) (Config, error) {
	t.Helper()
	return loadConfigFromReader(strings.NewReader(jsonStr))
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := loadConfigFromString(t, `{}`)
	require.NoError(t, err)
	assert.Equal(t, "578", cfg.ListenPort)
	assert.Equal(t, 63, cfg.MaxRequestBytes)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, uint(0), cfg.ReadTimeoutMilliseconds)
	assert.Equal(t, ":578", cfg.listenAddress())
}

func TestConfigWithComments(t *testing.T) {
	t.Parallel()
	cfg, err := loadConfigFromString(t, `{
		// the port clients connect to
		"ListenHost": "127.0.0.1",
		"ListenPort": "5555",
		/* keep the toy serial */
		"Workers": 1,
		"ReadTimeoutMilliseconds": 250,
		"LogLevel": "debug",
		"ManagementApi": {
			"ListenPort": "7071", // trailing commas are fine too
		},
	}`)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5555", cfg.listenAddress())
	assert.Equal(t, uint(250), cfg.ReadTimeoutMilliseconds)
	assert.Equal(t, LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, "7071", cfg.ManagementApi.ListenPort)
	assert.Equal(t, "127.0.0.1:7071", cfg.managementListenAddress())
}

func TestUnknownFieldIsRejected(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{"Services": []}`)
	checkExpectedErrorMessages(t, err, []string{"unknown field", "Services"})
}

func TestInvalidListenPortNonNumeric(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{"ListenPort": "80abc"}`)
	checkExpectedErrorMessages(t, err, []string{"ListenPort is invalid: \"80abc\""})
}

func TestInvalidListenPortOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{"ListenPort": "99999"}`)
	checkExpectedErrorMessages(t, err, []string{"ListenPort is invalid: \"99999\""})
}

func TestInvalidManagementApiPort(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{
		"ManagementApi": {
			"ListenPort": "99999"
		}
	}`)
	checkExpectedErrorMessages(t, err, []string{"top-level ManagementApi.ListenPort is invalid: \"99999\""})
}

func TestManagementApiPortClashesWithListenPort(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{
		"ListenPort": "9000",
		"ManagementApi": {
			"ListenPort": "9000"
		}
	}`)
	checkExpectedErrorMessages(t, err, []string{"ManagementApi.ListenPort and ListenPort are both 9000"})
}

func TestMaxRequestBytesOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{"MaxRequestBytes": 5000}`)
	checkExpectedErrorMessages(t, err, []string{"MaxRequestBytes must be between 1 and 4096, got 5000"})
}

func TestNegativeWorkers(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{"Workers": -2}`)
	checkExpectedErrorMessages(t, err, []string{"Workers must be at least 1, got -2"})
}

func TestAllIssuesAreReportedTogether(t *testing.T) {
	t.Parallel()
	_, err := loadConfigFromString(t, `{
		"ListenPort": "nope",
		"MaxRequestBytes": -1,
		"LogLevel": "trace"
	}`)
	checkExpectedErrorMessages(t, err, []string{
		"ListenPort is invalid: \"nope\"",
		"MaxRequestBytes must be between 1 and 4096, got -1",
		"LogLevel \"trace\" is not one of \"info\", \"debug\"",
	})
	assert.Equal(t, 3, strings.Count(err.Error(), " - "))
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"ListenPort": "6000"} // done`), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "6000", cfg.ListenPort)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
