// Package browser holds the end-to-end Playwright suite: it hosts the mock
// messaging site in-process, acquires a login session through the session
// cache, and drives the chat window like a visitor would.
package browser

import (
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/replycheck/replycheck/internal/mocksite"
	"github.com/replycheck/replycheck/internal/session"
)

const (
	testEmail    = "page-admin@example.com"
	testPassword = "letmein"

	// CODING AGENT RULE: Always use these timeout constants for browser tests.
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second

	// consentTimeout bounds the best-effort consent dismissal. Short on
	// purpose: the overlay is either there immediately or not at all.
	consentTimeout = 1 * time.Second

	// replyDelay is how long the mock bot "types". Short so the suite is
	// fast, long enough that the reply is observably asynchronous.
	replyDelay = 50 * time.Millisecond
)

var browserFixtureMu sync.Mutex
var sharedPW *playwright.Playwright
var sharedBrowser playwright.Browser

// BrowserTestEnv is one mock messaging site plus the shared browser. Sites
// are cheap so every test gets its own (clean login counters, independent
// consent settings); the Chromium process is expensive so all tests share it.
type BrowserTestEnv struct {
	Server  *httptest.Server
	BaseURL string
	Site    *mocksite.Site

	browser playwright.Browser
}

// SetupBrowserTestEnv launches the shared browser (skipping the test if
// Playwright is unavailable) and starts a fresh mock site for this test.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()
	return SetupBrowserTestEnvWithOptions(t, mocksite.Options{})
}

// SetupBrowserTestEnvWithOptions is SetupBrowserTestEnv with control over the
// mock site, for tests that need consent disabled or custom bot rules.
func SetupBrowserTestEnvWithOptions(t *testing.T, opts mocksite.Options) *BrowserTestEnv {
	t.Helper()

	browser := initBrowser(t)

	if opts.Accounts == nil {
		opts.Accounts = map[string]string{testEmail: testPassword}
	}
	if opts.ReplyDelay == 0 {
		opts.ReplyDelay = replyDelay
	}
	site := mocksite.New(opts)
	server := httptest.NewServer(site.Handler())
	t.Cleanup(func() {
		server.Close()
		site.Close()
	})

	return &BrowserTestEnv{
		Server:  server,
		BaseURL: server.URL,
		Site:    site,
		browser: browser,
	}
}

// initBrowser starts Playwright and Chromium once per test binary. Skips the
// test when the runtime or browser is not installed.
func initBrowser(t *testing.T) playwright.Browser {
	t.Helper()

	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if sharedBrowser != nil {
		return sharedBrowser
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}
	sharedPW = pw
	sharedBrowser = browser
	return browser
}

func cleanupSharedBrowser() {
	browserFixtureMu.Lock()
	defer browserFixtureMu.Unlock()

	if sharedBrowser != nil {
		_ = sharedBrowser.Close()
		sharedBrowser = nil
	}
	if sharedPW != nil {
		_ = sharedPW.Stop()
		sharedPW = nil
	}
}

// SessionOptions builds session options pointed at this env's mock site.
func (env *BrowserTestEnv) SessionOptions() session.Options {
	return session.Options{
		TargetURL:      env.BaseURL + "/page",
		LoginURL:       env.BaseURL + "/",
		Email:          testEmail,
		Password:       testPassword,
		LoginTimeout:   browserMaxTimeout,
		ConsentTimeout: consentTimeout,
	}
}

// Acquire runs the session manager against this env, failing the test on
// error and closing the session on cleanup.
func (env *BrowserTestEnv) Acquire(t *testing.T, mgr *session.Manager, opts session.Options) *session.Session {
	t.Helper()

	sess, err := mgr.Acquire(env.browser, opts)
	if err != nil {
		t.Fatalf("Failed to acquire session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

// Browser exposes the shared browser for tests that drive it directly.
func (env *BrowserTestEnv) Browser() playwright.Browser {
	return env.browser
}

// repoRoot resolves the repository root from this file's location so tests
// find testdata regardless of the working directory go test uses.
func repoRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("Failed to resolve repository root for test utilities")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

// CasesPath is the default chatbot case file shipped with the repository.
func CasesPath() string {
	return filepath.Join(repoRoot(), "testdata", "cases.json")
}
