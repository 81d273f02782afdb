package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/service"
)

// useMemoryStore isolates config loading from any .env in the repo and
// keeps every command off Postgres and Redis.
func useMemoryStore(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ENABLE_REDIS", "false")
	t.Setenv("SIM_TOTAL_STUDENTS", "60")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("JWT_SECRET", "cli-secret")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedCommandJSON(t *testing.T) {
	useMemoryStore(t)

	out, err := run(t, "", "seed", "--from", "2019", "--to", "2019", "--json")
	require.NoError(t, err)

	var summary models.SeedSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Periods)
	assert.Equal(t, 60, summary.Students)
}

func TestSeedCommandRejectsInvertedRange(t *testing.T) {
	useMemoryStore(t)

	_, err := run(t, "", "seed", "--from", "2021", "--to", "2019")
	assert.Error(t, err)
}

func TestTickCommandRequiresSeed(t *testing.T) {
	useMemoryStore(t)

	_, err := run(t, "", "tick")
	assert.Error(t, err)

	_, err = run(t, "", "tick", "--weeks", "0")
	assert.Error(t, err)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	useMemoryStore(t)

	out, err := run(t, "", "token", "--subject", "ops", "--role", "viewer")
	require.NoError(t, err)

	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "cli-secret", AccessTokenExpiry: time.Hour})
	claims, err := auth.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, models.RoleViewer, claims.Role)

	_, err = run(t, "", "token", "--role", "registrar")
	assert.Error(t, err)
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := run(t, "correct horse\n", "hash-password")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("correct horse")))

	_, err = run(t, "", "hash-password", "short")
	assert.Error(t, err)
}

func TestExportRisksValidatesFormat(t *testing.T) {
	useMemoryStore(t)

	_, err := run(t, "", "export", "risks", "--period", "2020SP", "--format", "xlsx")
	assert.Error(t, err)

	_, err = run(t, "", "export", "risks")
	assert.Error(t, err)
}
