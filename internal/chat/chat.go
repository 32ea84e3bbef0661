// Package chat drives the messaging page's chat window: open it, send a
// message, and wait for the bot's reply to contain expected text.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/replycheck/replycheck/internal/errs"
)

// Chat window locators, kept in one place like the login locators in the
// session package.
const (
	messageButton = "div[aria-label='Message']"
	chatInput     = "div[aria-label='Message'][contenteditable='true']"
	// lastBotMessage finds the newest message row that is NOT the visitor's
	// own: the last row without an outgoing marker. It matches nothing
	// while the visitor's just-sent message is still the newest row.
	lastBotMessage = "div[role='row']:last-of-type:not(:has(div[data-testid='outgoing_message'])) div[data-message]"
)

// textReadTimeoutMS bounds the single post-failure text read used to build
// the mismatch report.
const textReadTimeoutMS = 1000

// Conversation wraps a page that is already on the messaging page.
type Conversation struct {
	page playwright.Page
}

// NewConversation wraps a page. The page must already be at the target URL.
func NewConversation(page playwright.Page) *Conversation {
	return &Conversation{page: page}
}

// Open clicks the Message button and waits for the chat input to be ready.
// Opening an already-open chat window is harmless.
func (c *Conversation) Open(timeout time.Duration) error {
	if err := c.page.Locator(messageButton).First().Click(); err != nil {
		return fmt.Errorf("click message button: %w", err)
	}
	err := c.page.Locator(chatInput).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("chat input did not become visible: %w", err)
	}
	return nil
}

// Send types a message into the chat input and presses Enter.
func (c *Conversation) Send(text string) error {
	input := c.page.Locator(chatInput)
	if err := input.Click(); err != nil {
		return fmt.Errorf("focus chat input: %w", err)
	}
	if err := input.PressSequentially(text); err != nil {
		return fmt.Errorf("type message %q: %w", text, err)
	}
	if err := input.Press("Enter"); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	return nil
}

// ExpectReply asserts, bounded by timeout, that the latest bot message
// contains the expected substring. The wait is the driver's auto-retrying
// contains-text assertion, a single bounded wait with no retry on top; a
// mismatch or an absent reply is a per-case failure that must not stop
// sibling cases.
func (c *Conversation) ExpectReply(expected string, timeout time.Duration) error {
	reply := c.page.Locator(lastBotMessage)

	err := playwright.NewPlaywrightAssertions(float64(timeout.Milliseconds())).
		Locator(reply).
		ToContainText(expected)
	if err == nil {
		return nil
	}

	// One short read to build the report. The locator matches nothing while
	// no bot reply exists, so a failed read means the reply never appeared.
	observed, textErr := reply.TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(textReadTimeoutMS),
	})
	if textErr != nil {
		return errs.Wrap(errs.ReplyMismatch, fmt.Sprintf(
			"no bot reply appeared within %s while waiting for %q", timeout, expected), err)
	}
	return mismatchError(expected, strings.TrimSpace(observed))
}

func mismatchError(expected, observed string) error {
	return errs.New(errs.ReplyMismatch, fmt.Sprintf(
		"bot reply mismatch:\n  expected substring: %q\n  observed text:      %q", expected, observed))
}
