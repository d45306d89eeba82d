package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pebfutar.app/internal/transit"
)

const stopsBody = `{
  "code": 200,
  "currentTime": 1700000000000,
  "data": {
    "list": [
      {"id": "BKK_F01080", "name": "Oktogon", "lat": 47.5055, "lon": 19.0632, "routeIds": ["BKK_0060"]}
    ],
    "references": {"routes": {"BKK_0060": {"id": "BKK_0060", "shortName": "6", "type": 0}}}
  }
}`

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-config", "futar.yaml", "-lang", "en", "-once"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, options{configPath: "futar.yaml", envFile: ".env", language: "en", once: true}, opts)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)

	_, err = parseFlags([]string{"extra"}, io.Discard)
	assert.Error(t, err)
}

func TestRun_Help(t *testing.T) {
	var stderr bytes.Buffer
	c := cli{stdin: strings.NewReader(""), stdout: io.Discard, stderr: &stderr}
	require.NoError(t, c.run(context.Background(), []string{"-h"}))
	assert.Contains(t, stderr.String(), "-once")
}

func TestRun_Once(t *testing.T) {
	var stdout bytes.Buffer
	c := cli{
		stdin:  strings.NewReader(""),
		stdout: &stdout,
		stderr: io.Discard,
		transport: transit.TransportFunc(func(context.Context, string) (string, error) {
			return stopsBody, nil
		}),
	}

	err := c.run(context.Background(), []string{"-once", "-lang", "en", "-env-file", noEnvFile(t)})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Oktogon")
	assert.Contains(t, stdout.String(), "6")
}

func TestRun_OnceReportsFailure(t *testing.T) {
	c := cli{
		stdin:  strings.NewReader(""),
		stdout: io.Discard,
		stderr: io.Discard,
		transport: transit.TransportFunc(func(context.Context, string) (string, error) {
			return "", errors.New("HTTP 503 Service Unavailable")
		}),
	}

	err := c.run(context.Background(), []string{"-once", "-lang", "en", "-env-file", noEnvFile(t)})
	assert.Error(t, err)
}

func TestRun_MissingConfigFile(t *testing.T) {
	c := cli{stdin: strings.NewReader(""), stdout: io.Discard, stderr: io.Discard}
	err := c.run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "-env-file", noEnvFile(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat config file")
}

func TestRun_ConsoleQuits(t *testing.T) {
	c := cli{
		stdin:  strings.NewReader("q\n"),
		stdout: io.Discard,
		stderr: io.Discard,
		transport: transit.TransportFunc(func(context.Context, string) (string, error) {
			return stopsBody, nil
		}),
	}
	require.NoError(t, c.run(context.Background(), []string{"-lang", "en", "-env-file", noEnvFile(t)}))
}
