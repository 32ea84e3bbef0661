// Command replycheck runs the chatbot reply cases against a configured
// messaging page. Login happens at most once per run: the browser storage
// state is cached on disk and reused until invalidated.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"

	"github.com/replycheck/replycheck/internal/cases"
	"github.com/replycheck/replycheck/internal/chat"
	"github.com/replycheck/replycheck/internal/config"
	"github.com/replycheck/replycheck/internal/errs"
	"github.com/replycheck/replycheck/internal/obs"
	"github.com/replycheck/replycheck/internal/session"
)

func main() {
	invalidate := flag.Bool("invalidate", false, "drop the cached session state before running")
	flag.Parse()

	obs.Init()

	if err := run(*invalidate); err != nil {
		obs.Pkg("replycheck").Error("run failed", "error", err, "code", errs.CodeOf(err))
		os.Exit(1)
	}
}

func run(invalidate bool) error {
	log := obs.Pkg("replycheck")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	list, err := cases.Load(cfg.CasesFile)
	if err != nil {
		return errs.Wrap(errs.InvalidConfig, fmt.Sprintf("load cases from %s", cfg.CasesFile), err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "start playwright (run `playwright install` first)", err)
	}
	defer func() { _ = pw.Stop() }()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		return errs.Wrap(errs.Unavailable, "launch chromium", err)
	}
	defer func() { _ = browser.Close() }()

	store := session.NewStore(cfg.StateFile)
	if invalidate {
		if err := store.Invalidate(); err != nil {
			return errs.Wrap(errs.Internal, "invalidate cached session state", err)
		}
		log.Info("dropped cached session state", "path", store.Path())
	}

	mgr := session.NewManager(store)
	sess, err := mgr.Acquire(browser, session.Options{
		TargetURL:      cfg.TargetURL,
		LoginURL:       cfg.LoginURL,
		Email:          cfg.Email,
		Password:       cfg.Password,
		LoginTimeout:   cfg.LoginTimeout,
		ConsentTimeout: cfg.ConsentTimeout,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	convo := chat.NewConversation(sess.Page)
	if err := convo.Open(cfg.ReplyTimeout); err != nil {
		return errs.Wrap(errs.Unavailable, "open chat window", err)
	}

	failed := 0
	for _, tc := range list {
		caseLog := log.With("case", tc.Name())
		if err := convo.Send(tc.MessageToSend); err != nil {
			return errs.Wrap(errs.Unavailable, fmt.Sprintf("send message for case %s", tc.Name()), err)
		}
		err := convo.ExpectReply(tc.ExpectedReply, cfg.ReplyTimeout)
		switch {
		case err == nil:
			caseLog.Info("case passed")
		case errs.Fatal(errs.CodeOf(err)):
			// Lost session or config problem: no point running the rest.
			return err
		default:
			failed++
			caseLog.Error("case failed", "error", err)
		}
	}

	log.Info("run complete", "cases", len(list), "failed", failed, "from_cache", sess.FromCache)
	if failed > 0 {
		return errs.New(errs.ReplyMismatch, fmt.Sprintf("%d of %d cases failed", failed, len(list)))
	}
	return nil
}
