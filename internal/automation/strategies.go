package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Locator is an ordered list of selectors; the first one that matches wins.
type Locator []string

var (
	UsernameLocator = Locator{
		`input[name="username"]`,
		`input[name="email"]`,
		`input[type="email"]`,
		`input[id*="username"]`,
		`input[id*="email"]`,
		`#username`,
		`#email`,
		`.username`,
		`.email`,
	}
	PasswordLocator = Locator{
		`input[name="password"]`,
		`input[type="password"]`,
		`#password`,
		`.password`,
	}
	SubmitLocator = Locator{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`#login`,
		`.login`,
		`.signin`,
	}
)

// Find probes each selector in order.
func (l Locator) Find(ctx context.Context, page Page) (Element, string, bool) {
	for _, sel := range l {
		if el, ok := page.Find(ctx, sel); ok {
			return el, sel, true
		}
	}
	return nil, "", false
}

// Login fills username and password and submits when all needed fields are found.
// It reports whether the credentials were entered. Missing fields are not an error.
type Login struct {
	Username Locator
	Password Locator
	Submit   Locator
}

// DefaultLogin uses the common form-field locators.
func DefaultLogin() Login {
	return Login{Username: UsernameLocator, Password: PasswordLocator, Submit: SubmitLocator}
}

// Perform types the credentials and clicks the first submit control that accepts the click.
// A failed submit click is logged and the next control tried; it never fails the login.
func (l Login) Perform(ctx context.Context, page Page, log *zap.Logger, username, password string, typingDelay time.Duration, t Timings) (bool, error) {
	userEl, _, ok := l.Username.Find(ctx, page)
	if !ok {
		return false, nil
	}
	passEl, _, ok := l.Password.Find(ctx, page)
	if !ok {
		return false, nil
	}
	if err := userEl.Type(ctx, username, typingDelay); err != nil {
		return false, fmt.Errorf("type username: %w", err)
	}
	if err := sleep(ctx, t.AfterField); err != nil {
		return false, err
	}
	if err := passEl.Type(ctx, password, typingDelay); err != nil {
		return false, fmt.Errorf("type password: %w", err)
	}
	if err := sleep(ctx, t.AfterField); err != nil {
		return false, err
	}
	for _, sel := range l.Submit {
		submit, ok := page.Find(ctx, sel)
		if !ok {
			continue
		}
		if err := submit.Click(ctx); err != nil {
			log.Debug("submit click failed, trying next", zap.String("selector", sel), zap.Error(err))
			continue
		}
		return true, sleep(ctx, t.AfterLogin)
	}
	log.Info("credentials entered without a working submit control")
	return true, nil
}

// Interaction is a keyword-triggered action performed while recording.
type Interaction interface {
	Name() string
	Applies(prompt string) bool
	Perform(ctx context.Context, page Page, t Timings) error
}

// DefaultInteractions returns the button then link strategies.
func DefaultInteractions() []Interaction {
	return []Interaction{ClickButton{}, FollowLink{}}
}

func mentions(prompt string, words ...string) bool {
	p := strings.ToLower(prompt)
	for _, w := range words {
		if strings.Contains(p, w) {
			return true
		}
	}
	return false
}

const buttonSelector = `button, .btn, [role="button"]`

// ClickButton clicks the first button-like element when the prompt mentions clicking.
type ClickButton struct{}

func (ClickButton) Name() string { return "click_button" }

func (ClickButton) Applies(prompt string) bool { return mentions(prompt, "click", "button") }

func (ClickButton) Perform(ctx context.Context, page Page, t Timings) error {
	buttons, err := page.FindAll(ctx, buttonSelector)
	if err != nil || len(buttons) == 0 {
		return nil
	}
	return scrollAndClick(ctx, buttons[0], t.AfterScrollIntoView, t.AfterClick)
}

const (
	linkSelector = `a[href]`
	// maxLinkCandidates bounds how many leading links are inspected.
	maxLinkCandidates = 3
)

// FollowLink clicks the first navigable link when the prompt mentions links or navigation.
// Fragment and javascript: links are skipped.
type FollowLink struct{}

func (FollowLink) Name() string { return "follow_link" }

func (FollowLink) Applies(prompt string) bool { return mentions(prompt, "link", "navigate") }

func (FollowLink) Perform(ctx context.Context, page Page, t Timings) error {
	links, err := page.FindAll(ctx, linkSelector)
	if err != nil {
		return nil
	}
	if len(links) > maxLinkCandidates {
		links = links[:maxLinkCandidates]
	}
	for _, link := range links {
		href, ok, err := link.Attribute(ctx, "href")
		if err != nil || !ok || !navigable(href) {
			continue
		}
		return scrollAndClick(ctx, link, t.AfterScrollIntoView, t.AfterLinkClick)
	}
	return nil
}

func navigable(href string) bool {
	href = strings.TrimSpace(href)
	return href != "" && !strings.HasPrefix(href, "#") && !strings.Contains(strings.ToLower(href), "javascript:")
}

func scrollAndClick(ctx context.Context, el Element, afterScroll, afterClick time.Duration) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	if err := sleep(ctx, afterScroll); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return sleep(ctx, afterClick)
}
