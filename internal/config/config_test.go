package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replycheck/replycheck/internal/errs"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REPLYCHECK_TARGET_URL", "https://example.com/pages/acme-support")
	t.Setenv("REPLYCHECK_EMAIL", "bot-tester@example.com")
	t.Setenv("REPLYCHECK_PASSWORD", "hunter2!")
}

func clearSuiteEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REPLYCHECK_TARGET_URL",
		"REPLYCHECK_LOGIN_URL",
		"REPLYCHECK_EMAIL",
		"REPLYCHECK_PASSWORD",
		"REPLYCHECK_STATE_FILE",
		"REPLYCHECK_CASES_FILE",
		"REPLYCHECK_LOGIN_TIMEOUT",
		"REPLYCHECK_REPLY_TIMEOUT",
		"HEADLESS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearSuiteEnv(t)
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.LoginURL, "login URL should default to target origin")
	assert.Equal(t, "state.json", cfg.StateFile)
	assert.Equal(t, "testdata/cases.json", cfg.CasesFile)
	assert.Equal(t, 30*time.Second, cfg.LoginTimeout)
	assert.Equal(t, 15*time.Second, cfg.ReplyTimeout)
	assert.True(t, cfg.Headless)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearSuiteEnv(t)
	setRequiredEnv(t)
	t.Setenv("REPLYCHECK_LOGIN_URL", "https://login.example.com/start")
	t.Setenv("REPLYCHECK_STATE_FILE", "/tmp/replycheck-state.json")
	t.Setenv("REPLYCHECK_REPLY_TIMEOUT", "45s")
	t.Setenv("HEADLESS", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://login.example.com/start", cfg.LoginURL)
	assert.Equal(t, "/tmp/replycheck-state.json", cfg.StateFile)
	assert.Equal(t, 45*time.Second, cfg.ReplyTimeout)
	assert.False(t, cfg.Headless)
}

func TestFromEnv_MissingRequiredFields(t *testing.T) {
	clearSuiteEnv(t)

	_, err := FromEnv()
	require.Error(t, err)

	assert.Equal(t, errs.InvalidConfig, errs.CodeOf(err))
	for _, name := range []string{"REPLYCHECK_TARGET_URL", "REPLYCHECK_EMAIL", "REPLYCHECK_PASSWORD"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.Contains(t, err.Error(), ".env.example", "error should point at the template file")
}

func TestFromEnv_MissingCredentialsOnly(t *testing.T) {
	clearSuiteEnv(t)
	t.Setenv("REPLYCHECK_TARGET_URL", "https://example.com/pages/acme-support")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPLYCHECK_EMAIL")
	assert.Contains(t, err.Error(), "REPLYCHECK_PASSWORD")
	assert.False(t, strings.Contains(err.Error(), "REPLYCHECK_TARGET_URL"))
}

func TestFromEnv_BadTargetURL(t *testing.T) {
	clearSuiteEnv(t)
	setRequiredEnv(t)
	t.Setenv("REPLYCHECK_TARGET_URL", "not a url")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Equal(t, errs.InvalidConfig, errs.CodeOf(err))
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	clearSuiteEnv(t)
	setRequiredEnv(t)
	t.Setenv("REPLYCHECK_LOGIN_TIMEOUT", "soon")
	t.Setenv("REPLYCHECK_REPLY_TIMEOUT", "-3s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.LoginTimeout)
	assert.Equal(t, 15*time.Second, cfg.ReplyTimeout)
}
