// Command mocksite serves the mock messaging site standalone, for driving
// the suite against a visible browser (HEADLESS=false) or just poking at
// the chat window by hand.
package main

import (
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/replycheck/replycheck/internal/mocksite"
	"github.com/replycheck/replycheck/internal/obs"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	flag.Parse()

	obs.Init()
	log := obs.Pkg("mocksite")

	_ = godotenv.Load()
	email := os.Getenv("REPLYCHECK_EMAIL")
	password := os.Getenv("REPLYCHECK_PASSWORD")
	if email == "" || password == "" {
		// Standalone default account; the suite seeds its own.
		email, password = "page-admin@example.com", "letmein"
	}

	site := mocksite.New(mocksite.Options{
		Accounts: map[string]string{email: password},
	})
	defer site.Close()

	log.Info("mock messaging site listening", "addr", *addr, "account", email)
	if err := http.ListenAndServe(*addr, site.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
