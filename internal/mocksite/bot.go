package mocksite

import (
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Rule maps a message substring to a canned markdown reply.
type Rule struct {
	Contains string
	Reply    string
}

// Bot is the scripted conversation partner. Matching is case-insensitive
// first-rule-wins; anything unmatched gets the fallback reply.
type Bot struct {
	rules    []Rule
	fallback string
}

// DefaultRules cover the canned conversations the bundled test data exercises.
var DefaultRules = []Rule{
	{Contains: "hello", Reply: "Hi there! How can I help you today?"},
	{Contains: "hours", Reply: "We're open **9am to 5pm**, Monday through Friday."},
	{Contains: "price", Reply: "Our plans start at **$10/month**. See the [pricing page](/pricing) for details."},
	{Contains: "human", Reply: "Sure, connecting you to a human agent. Expect a response within *one business day*."},
}

const defaultFallback = "Sorry, I didn't get that. Could you rephrase?"

// NewBot creates a bot with the given rules. Nil rules and an empty
// fallback select the defaults.
func NewBot(rules []Rule, fallback string) *Bot {
	if rules == nil {
		rules = DefaultRules
	}
	if fallback == "" {
		fallback = defaultFallback
	}
	return &Bot{rules: rules, fallback: fallback}
}

// Reply returns the rendered HTML reply for a visitor message.
func (b *Bot) Reply(message string) template.HTML {
	lowered := strings.ToLower(message)
	for _, rule := range b.rules {
		if strings.Contains(lowered, strings.ToLower(rule.Contains)) {
			return renderMarkdown(rule.Reply)
		}
	}
	return renderMarkdown(b.fallback)
}

// renderMarkdown converts markdown text to HTML.
// The returned HTML is safe to use in templates (marked as template.HTML).
func renderMarkdown(s string) template.HTML {
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(s))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	htmlContent := markdown.Render(doc, renderer)

	// Sanitize HTML to prevent XSS attacks
	policy := bluemonday.UGCPolicy()
	sanitized := policy.SanitizeBytes(htmlContent)

	return template.HTML(sanitized)
}
