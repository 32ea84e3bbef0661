// Package mocksite serves a small messaging site with a scripted chatbot.
// It reproduces the surfaces the suite drives on a real social network:
// an email/password login form, a cookie-consent interstitial for first-time
// visitors, a post-login Home marker, and a page chat window whose bot
// replies stream in asynchronously.
//
// Browser tests host it in an httptest.Server; cmd/mocksite serves it
// standalone for poking at with a visible browser.
package mocksite

import (
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/replycheck/replycheck/internal/obs"
	"github.com/replycheck/replycheck/internal/ratelimit"
)

const (
	sessionCookieName = "msite_session"
	consentCookieName = "consent_ok"

	// PageName is the business page whose chat window the bot answers.
	PageName = "Acme Support"

	defaultReplyDelay = 400 * time.Millisecond
)

// Options configures a Site.
type Options struct {
	// Accounts maps email to plaintext password. Hashed at startup;
	// plaintext is not retained.
	Accounts map[string]string
	// Rules override the bot's scripted replies. Nil keeps DefaultRules.
	Rules []Rule
	// Fallback overrides the bot's unmatched-message reply.
	Fallback string
	// ReplyDelay is how long the bot "types" before its reply lands.
	ReplyDelay time.Duration
	// Limiter configures login throttling. Zero value selects defaults.
	Limiter ratelimit.Config
	// DisableConsent turns off the cookie-consent interstitial entirely,
	// for exercising callers that must treat its absence as normal.
	DisableConsent bool
}

// Site is the mock messaging site.
type Site struct {
	bot        *Bot
	users      map[string][]byte // email -> bcrypt hash
	limiter    *ratelimit.LoginLimiter
	replyDelay time.Duration
	noConsent  bool

	mu       sync.Mutex
	sessions map[string]string // session ID -> email
	convos   map[string]*conversation

	loginAttempts atomic.Int64
}

// New creates a Site with the given options.
func New(opts Options) *Site {
	users := make(map[string][]byte, len(opts.Accounts))
	for email, password := range opts.Accounts {
		// MinCost: these hashes guard nothing real and tests log in a lot.
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic("mocksite: hash seed password: " + err.Error())
		}
		users[email] = hash
	}

	limiterCfg := opts.Limiter
	if limiterCfg.Burst == 0 {
		limiterCfg = ratelimit.DefaultConfig
	}
	delay := opts.ReplyDelay
	if delay <= 0 {
		delay = defaultReplyDelay
	}

	return &Site{
		bot:        NewBot(opts.Rules, opts.Fallback),
		users:      users,
		limiter:    ratelimit.NewLoginLimiter(limiterCfg),
		replyDelay: delay,
		noConsent:  opts.DisableConsent,
		sessions:   make(map[string]string),
		convos:     make(map[string]*conversation),
	}
}

// Close releases background resources.
func (s *Site) Close() {
	s.limiter.Stop()
}

// LoginAttempts returns how many login-form submissions the site has seen.
// The suite uses it to prove the cached-session path never touches the form.
func (s *Site) LoginAttempts() int64 {
	return s.loginAttempts.Load()
}

// Handler returns the site's routes.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /home", s.handleHome)
	mux.HandleFunc("GET /page", s.handleChatPage)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	return mux
}

func (s *Site) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionEmail(r); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, "", http.StatusOK)
}

func (s *Site) renderLogin(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	_, consented := cookieValue(r, consentCookieName)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = loginTmpl.Execute(w, map[string]any{
		"Error":       errMsg,
		"ShowConsent": !s.noConsent && !consented,
	})
}

func (s *Site) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginAttempts.Add(1)
	log := obs.Pkg("mocksite")

	if !s.limiter.Allow(clientKey(r)) {
		log.Warn("login throttled", "client", clientKey(r))
		s.renderLogin(w, r, "Too many attempts. Try again in a moment.", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, "Malformed login request.", http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("pass")

	hash, known := s.users[email]
	if !known || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		log.Info("login rejected", "email", email)
		s.renderLogin(w, r, "The email or password you entered is incorrect.", http.StatusUnauthorized)
		return
	}

	sessionID := uuid.New().String()
	s.mu.Lock()
	s.sessions[sessionID] = email
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info("login accepted", "email", email)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Site) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := cookieValue(r, sessionCookieName); ok {
		s.mu.Lock()
		delete(s.sessions, id)
		delete(s.convos, id)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	email, ok := s.sessionEmail(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = homeTmpl.Execute(w, map[string]any{
		"Email":    email,
		"PageName": PageName,
	})
}

func (s *Site) handleChatPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionEmail(r); !ok {
		// A stale or missing session lands on the logged-out view.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = chatTmpl.Execute(w, map[string]any{
		"PageName": PageName,
	})
}

func (s *Site) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message text is required"})
		return
	}

	convo := s.conversation(sessionID)
	convo.append(message{Author: authorVisitor, Text: payload.Text})

	reply := s.bot.Reply(payload.Text)
	time.AfterFunc(s.replyDelay, func() {
		convo.append(message{Author: authorBot, HTML: reply})
	})

	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Site) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	// Subscribe before the headers go out so a reply scheduled right after
	// the client sees 200 cannot slip past the stream.
	convo := s.conversation(sessionID)
	ch, cancel := convo.subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case m := <-ch:
			if m.Author != authorBot {
				continue
			}
			if err := sse.Encode(w, sse.Event{
				Event: "bot",
				Data:  map[string]string{"html": string(m.HTML)},
			}); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := sse.Encode(w, sse.Event{Event: "ping", Data: "keepalive"}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// =============================================================================
// Conversations
// =============================================================================

const (
	authorVisitor = "visitor"
	authorBot     = "bot"
)

type message struct {
	Author string
	Text   string
	HTML   template.HTML
}

type conversation struct {
	mu       sync.Mutex
	messages []message
	subs     map[chan message]struct{}
}

func (s *Site) conversation(sessionID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	convo, ok := s.convos[sessionID]
	if !ok {
		convo = &conversation{subs: make(map[chan message]struct{})}
		s.convos[sessionID] = convo
	}
	return convo
}

func (c *conversation) append(m message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	for ch := range c.subs {
		select {
		case ch <- m:
		default:
			// A stalled subscriber misses the message rather than
			// blocking the conversation.
		}
	}
}

func (c *conversation) subscribe() (<-chan message, func()) {
	ch := make(chan message, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
}

// history returns a copy of the conversation's messages.
func (c *conversation) history() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]message, len(c.messages))
	copy(out, c.messages)
	return out
}

// =============================================================================
// Session helpers
// =============================================================================

func (s *Site) sessionID(r *http.Request) (string, bool) {
	id, ok := cookieValue(r, sessionCookieName)
	if !ok {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.sessions[id]; !known {
		return "", false
	}
	return id, true
}

func (s *Site) sessionEmail(r *http.Request) (string, bool) {
	id, ok := cookieValue(r, sessionCookieName)
	if !ok {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, known := s.sessions[id]
	return email, known
}

func cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
