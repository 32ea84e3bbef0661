package mocksite

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replycheck/replycheck/internal/ratelimit"
)

const (
	testEmail    = "page-admin@example.com"
	testPassword = "correct horse battery staple"
)

func newTestSite(t *testing.T, opts Options) (*Site, *httptest.Server) {
	t.Helper()

	if opts.Accounts == nil {
		opts.Accounts = map[string]string{testEmail: testPassword}
	}
	if opts.ReplyDelay == 0 {
		opts.ReplyDelay = 10 * time.Millisecond
	}
	site := New(opts)
	server := httptest.NewServer(site.Handler())
	t.Cleanup(func() {
		server.Close()
		site.Close()
	})
	return site, server
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) *http.Response {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/login", url.Values{
		"email": {email},
		"pass":  {password},
	})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func bodyText(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestLogin_SuccessLandsOnHomeMarker(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})
	client := newClient(t)

	resp := login(t, client, server.URL, testEmail, testPassword)
	require.Equal(t, http.StatusOK, resp.StatusCode, "redirect chain should end on /home")

	body := bodyText(t, resp)
	assert.Contains(t, body, `aria-label="Home"`, "post-login page must carry the success marker")
	assert.Contains(t, body, testEmail)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})
	client := newClient(t)

	resp := login(t, client, server.URL, testEmail, "wrong password")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, bodyText(t, resp), "incorrect")
}

func TestLogin_Throttled(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{
		Limiter: ratelimit.Config{AttemptsPerSecond: 0.1, Burst: 2, CleanupInterval: time.Hour},
	})
	client := newClient(t)

	login(t, client, server.URL, testEmail, "nope")
	login(t, client, server.URL, testEmail, "nope")
	resp := login(t, client, server.URL, testEmail, "nope")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestLogin_AttemptsAreCounted(t *testing.T) {
	t.Parallel()

	site, server := newTestSite(t, Options{})
	client := newClient(t)

	require.EqualValues(t, 0, site.LoginAttempts())
	login(t, client, server.URL, testEmail, testPassword)
	assert.EqualValues(t, 1, site.LoginAttempts())
}

func TestConsentOverlay_FirstVisitOnly(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})
	client := newClient(t)

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)
	body := bodyText(t, resp)
	resp.Body.Close()
	assert.Contains(t, body, `aria-label="Allow all cookies"`)

	// A returning visitor with the consent cookie never sees the overlay.
	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	client.Jar.SetCookies(base, []*http.Cookie{{Name: consentCookieName, Value: "1", Path: "/"}})

	resp, err = client.Get(server.URL + "/")
	require.NoError(t, err)
	body = bodyText(t, resp)
	resp.Body.Close()
	assert.NotContains(t, body, `aria-label="Allow all cookies"`)
}

func TestChatPage_RequiresSession(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})
	client := newClient(t)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Get(server.URL + "/page")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"), "logged-out visitors land on the login view")
}

func TestSendMessage_BotReplyRecorded(t *testing.T) {
	t.Parallel()

	site, server := newTestSite(t, Options{})
	client := newClient(t)
	login(t, client, server.URL, testEmail, testPassword)

	resp, err := client.Post(server.URL+"/api/messages", "application/json",
		strings.NewReader(`{"text": "hello"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	site.mu.Lock()
	require.Len(t, site.convos, 1)
	var convo *conversation
	for _, c := range site.convos {
		convo = c
	}
	site.mu.Unlock()

	assert.Eventually(t, func() bool {
		history := convo.history()
		if len(history) != 2 {
			return false
		}
		return history[0].Author == authorVisitor &&
			history[1].Author == authorBot &&
			strings.Contains(string(history[1].HTML), "How can I help you today?")
	}, 2*time.Second, 10*time.Millisecond, "bot reply should land after the scripted delay")
}

func TestSendMessage_RequiresSession(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})

	resp, err := http.Post(server.URL+"/api/messages", "application/json",
		strings.NewReader(`{"text": "hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStream_DeliversBotEvent(t *testing.T) {
	t.Parallel()

	_, server := newTestSite(t, Options{})
	client := newClient(t)
	login(t, client, server.URL, testEmail, testPassword)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/stream", nil)
	require.NoError(t, err)
	streamURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(streamURL) {
		req.AddCookie(c)
	}

	stream, err := (&http.Client{}).Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	resp, err := client.Post(server.URL+"/api/messages", "application/json",
		strings.NewReader(`{"text": "what are your hours?"}`))
	require.NoError(t, err)
	resp.Body.Close()

	scanner := bufio.NewScanner(stream.Body)
	var sawBotEvent bool
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") && strings.Contains(line, "bot") {
			sawBotEvent = true
			continue
		}
		if sawBotEvent && strings.HasPrefix(line, "data:") {
			payload = line
			break
		}
	}
	require.True(t, sawBotEvent, "should receive a bot event on the stream")
	assert.Contains(t, payload, "9am to 5pm")
}
