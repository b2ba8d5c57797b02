package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"domsync/internal/errors"
	"domsync/internal/logging"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DefaultTimeout bounds a single DevTools call when none is configured.
const DefaultTimeout = 10 * time.Second

// clickScript clicks the button enclosing the first element matching the
// selector given as %s (a JSON string literal). Evaluates to false when no
// such button exists or it is disabled.
const clickScript = `(() => {
	const el = document.querySelector(%s);
	const btn = el ? el.closest('button') : null;
	if (!btn || btn.disabled) return false;
	btn.click();
	return true;
})()`

// Tab is the live case-management tab reached over DevTools.
type Tab struct {
	holder  *ContextHolder
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewTab wraps the holder's current tab.
func NewTab(holder *ContextHolder, timeout time.Duration, logger *zap.SugaredLogger) *Tab {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tab{holder: holder, timeout: timeout, logger: logging.OrNop(logger)}
}

// run executes actions against the tab, bounded by the per-call timeout
// and by ctx. When the tab context has died the holder re-attaches once
// before giving up.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx := t.holder.Get()
	if tabCtx.Err() != nil {
		if err := t.holder.Reattach(); err != nil {
			return err
		}
		tabCtx = t.holder.Get()
	}

	callCtx, cancel := context.WithTimeout(tabCtx, t.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(callCtx, actions...)
}

// Document snapshots the page and parses it for selector queries.
//
// Flow:
//  1. Read the outer HTML of the document element
//  2. Parse it with the HTML5 parser
//  3. Wrap the tree in a goquery document
func (t *Tab) Document(ctx context.Context) (*goquery.Document, error) {
	var outer string
	if err := t.run(ctx, chromedp.OuterHTML("html", &outer, chromedp.ByQuery)); err != nil {
		return nil, errors.NewBrowserError("failed to snapshot page", err)
	}

	root, err := html.Parse(strings.NewReader(outer))
	if err != nil {
		return nil, errors.NewBrowserError("failed to parse page snapshot", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ClickButton clicks the button that encloses the first element matching
// selector. Returns false when there is no such enabled button.
func (t *Tab) ClickButton(ctx context.Context, selector string) (bool, error) {
	arg, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}

	var clicked bool
	if err := t.Evaluate(ctx, fmt.Sprintf(clickScript, arg), &clicked); err != nil {
		return false, err
	}
	t.logger.Debugw("Button click", "selector", selector, "clicked", clicked)
	return clicked, nil
}

// Evaluate runs script in the page and decodes its result into out.
// Promises are awaited.
func (t *Tab) Evaluate(ctx context.Context, script string, out any) error {
	err := t.run(ctx, chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return errors.NewBrowserError("failed to evaluate script", err)
	}
	return nil
}

// OpenURL opens url in a new browser tab, leaving the app tab in place.
func (t *Tab) OpenURL(ctx context.Context, url string) error {
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, err := target.CreateTarget(url).Do(ctx)
		if err != nil {
			return err
		}
		t.logger.Infow("🌐 Opened form tab", "target", id)
		return nil
	}))
	if err != nil {
		return errors.NewBrowserError("failed to open tab", err)
	}
	return nil
}
