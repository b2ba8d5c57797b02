package browser

import (
	"context"
	"os"
	"strings"
	"sync"

	"domsync/internal/errors"

	"github.com/PuerkitoBio/goquery"
)

// StaticPage is an in-memory page backed by an HTML string. It serves
// saved snapshots for offline extraction and stands in for the live tab
// in tests.
//
// The HTML can be swapped at any time with SetHTML to simulate the host
// re-rendering. Clicks and opened URLs are recorded.
type StaticPage struct {
	mu      sync.Mutex
	html    string
	clicks  []string
	opened  []string
	onClick func(selector string)
	failing error
}

// NewStaticPage returns a page serving markup.
func NewStaticPage(markup string) *StaticPage {
	return &StaticPage{html: markup}
}

// LoadStaticPage reads a saved page snapshot from disk.
func LoadStaticPage(path string) (*StaticPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewBrowserError("failed to read snapshot", err)
	}
	return NewStaticPage(string(data)), nil
}

// SetHTML replaces the page content.
func (p *StaticPage) SetHTML(markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = markup
}

// OnClick registers a hook run after every successful ClickButton, for
// example to render the dialog a real click would open.
func (p *StaticPage) OnClick(fn func(selector string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick = fn
}

// Fail makes every subsequent call return err, simulating a lost
// connection. A nil err restores normal operation.
func (p *StaticPage) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = err
}

// Document parses the current content.
func (p *StaticPage) Document(ctx context.Context) (*goquery.Document, error) {
	p.mu.Lock()
	markup, failing := p.html, p.failing
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failing != nil {
		return nil, errors.NewBrowserError("failed to snapshot page", failing)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, errors.NewBrowserError("failed to parse page snapshot", err)
	}
	return doc, nil
}

// ClickButton records a click when an enabled button encloses an element
// matching selector.
func (p *StaticPage) ClickButton(ctx context.Context, selector string) (bool, error) {
	doc, err := p.Document(ctx)
	if err != nil {
		return false, err
	}

	btn := doc.Find(selector).First().Closest("button")
	if btn.Length() == 0 {
		return false, nil
	}
	if _, disabled := btn.Attr("disabled"); disabled {
		return false, nil
	}

	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	hook := p.onClick
	p.mu.Unlock()

	if hook != nil {
		hook(selector)
	}
	return true, nil
}

// OpenURL records url as opened.
func (p *StaticPage) OpenURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing != nil {
		return errors.NewBrowserError("failed to open tab", p.failing)
	}
	p.opened = append(p.opened, url)
	return nil
}

// Clicks returns the selectors clicked so far.
func (p *StaticPage) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Opened returns the URLs opened so far.
func (p *StaticPage) Opened() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.opened...)
}
