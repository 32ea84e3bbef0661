// Package session establishes an authenticated browsing context once per
// test run, persists its storage state to disk, and rehydrates it on later
// runs so the suite skips repeated logins.
package session

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/replycheck/replycheck/internal/errs"
	"github.com/replycheck/replycheck/internal/obs"
)

// Login page locators. Kept in one place so a site markup change is a
// one-line fix.
const (
	loginEmailInput    = "input[name='email']"
	loginPasswordInput = "input[name='pass']"
	loginButton        = "button[name='login']"
	// successMarker confirms a login attempt landed; its visibility is the
	// only success signal the manager trusts.
	successMarker = "a[aria-label='Home']"
	// acceptCookiesButton dismisses the consent interstitial shown to
	// first-time visitors. Best-effort only.
	acceptCookiesButton = "div[aria-label='Allow all cookies']"
)

// Options configures session acquisition.
type Options struct {
	// TargetURL is the messaging page every test case runs against.
	TargetURL string
	// LoginURL is where the login form lives.
	LoginURL string

	Email    string
	Password string

	// LoginTimeout bounds the wait for the post-login success marker.
	LoginTimeout time.Duration
	// ConsentTimeout bounds the best-effort consent dismissal.
	ConsentTimeout time.Duration
}

func (o Options) validate() error {
	var missing []string
	if o.TargetURL == "" {
		missing = append(missing, "target URL")
	}
	if o.LoginURL == "" {
		missing = append(missing, "login URL")
	}
	if o.Email == "" {
		missing = append(missing, "email")
	}
	if o.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return errs.New(errs.InvalidConfig, fmt.Sprintf(
			"session acquisition needs %v (copy .env.example to .env and fill in your values)", missing))
	}
	return nil
}

// Session is a live authenticated browsing context plus the page pointed at
// the target URL. At most one is created per test run; all test cases share
// it sequentially.
type Session struct {
	Context playwright.BrowserContext
	Page    playwright.Page
	// FromCache reports whether the session was rehydrated from the durable
	// record rather than a fresh login. The manager does not validate
	// rehydrated state; callers that hit a logged-out view can Invalidate
	// the store and acquire again.
	FromCache bool

	closed bool
}

// Close releases the browsing context. It must run on every exit path,
// test failures included. Closing twice is a no-op.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.Context.Close()
}

// Manager implements the load-or-create protocol over a Store.
type Manager struct {
	store *Store
}

// NewManager creates a manager over the given store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// Store returns the manager's backing store.
func (m *Manager) Store() *Store {
	return m.store
}

// Acquire returns an authenticated session against opts.TargetURL.
//
// With a durable record present it rehydrates the context and navigates
// straight to the target: zero login-form interactions. Otherwise it walks
// the interactive login path and persists the resulting storage state for
// future runs. Login is not retried; if the success marker never shows up
// within LoginTimeout the whole run is lost and the error says so.
func (m *Manager) Acquire(browser playwright.Browser, opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := obs.Pkg("session")

	if m.store.Exists() {
		log.Info("reusing cached session state", "path", m.store.Path())
		return m.rehydrate(browser, opts)
	}
	log.Info("no cached session state, performing login", "path", m.store.Path())
	return m.login(browser, opts)
}

func (m *Manager) rehydrate(browser playwright.Browser, opts Options) (*Session, error) {
	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		StorageStatePath: playwright.String(m.store.Path()),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "open browsing context from cached state", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, errs.Wrap(errs.Unavailable, "open page in rehydrated context", err)
	}

	if _, err := page.Goto(opts.TargetURL); err != nil {
		_ = context.Close()
		return nil, errs.Wrap(errs.Unavailable,
			fmt.Sprintf("navigate rehydrated session to %s", opts.TargetURL), err)
	}

	return &Session{Context: context, Page: page, FromCache: true}, nil
}

func (m *Manager) login(browser playwright.Browser, opts Options) (*Session, error) {
	context, err := browser.NewContext()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "open fresh browsing context", err)
	}

	session, err := m.loginInContext(context, opts)
	if err != nil {
		_ = context.Close()
		return nil, err
	}
	return session, nil
}

func (m *Manager) loginInContext(context playwright.BrowserContext, opts Options) (*Session, error) {
	log := obs.Pkg("session")

	page, err := context.NewPage()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "open page for login", err)
	}

	if _, err := page.Goto(opts.LoginURL); err != nil {
		return nil, errs.Wrap(errs.Unavailable,
			fmt.Sprintf("navigate to login page %s", opts.LoginURL), err)
	}

	// Outcome deliberately discarded: a missing consent dialog is the
	// common case, not a failure.
	_ = dismissConsent(page, opts.ConsentTimeout)

	if err := page.Locator(loginEmailInput).Fill(opts.Email); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "fill login email", err)
	}
	if err := page.Locator(loginPasswordInput).Fill(opts.Password); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "fill login password", err)
	}
	if err := page.Locator(loginButton).Click(); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "submit login form", err)
	}

	err = page.Locator(successMarker).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(opts.LoginTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, errs.Wrap(errs.LoginTimeout, fmt.Sprintf(
			"login success marker %q not visible within %s", successMarker, opts.LoginTimeout), err)
	}

	if _, err := page.Goto(opts.TargetURL); err != nil {
		return nil, errs.Wrap(errs.Unavailable,
			fmt.Sprintf("navigate logged-in session to %s", opts.TargetURL), err)
	}

	if _, err := context.StorageState(m.store.Path()); err != nil {
		return nil, errs.Wrap(errs.Unavailable,
			fmt.Sprintf("persist session state to %s", m.store.Path()), err)
	}
	log.Info("persisted session state", "path", m.store.Path())

	return &Session{Context: context, Page: page, FromCache: false}, nil
}

// dismissConsent attempts to click the cookie-consent button. It reports
// whether the dialog was dismissed; absence or timeout is a normal outcome
// and never an error.
func dismissConsent(page playwright.Page, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	err := page.Locator(acceptCookiesButton).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}
