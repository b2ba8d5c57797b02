// Package browser connects to the operator's Chrome and exposes the
// case-management tab to the rest of the application.
//
// Two connection modes are supported:
//   - Remote: attach over DevTools to a Chrome the operator already runs
//     (started with --remote-debugging-port)
//   - Launch: start a visible Chrome with its own profile and open the app
//
// In both modes the tab whose URL starts with the app URL is preferred, so
// the companion follows the page the operator is actually working in.
package browser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"domsync/internal/errors"
	"domsync/internal/logging"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Options selects how the browser is reached.
type Options struct {
	DevToolsURL string        // remote DevTools endpoint; empty launches Chrome
	AppURL      string        // case-management app; used to pick or open the tab
	ProfileDir  string        // user data dir for a launched Chrome
	Timeout     time.Duration // ceiling for a single DevTools call
}

// ContextHolder provides thread-safe access to the tab context.
//
// The operator may close or reload the tab at any time. When the tab
// context dies the holder can re-attach to the app tab with Reattach.
type ContextHolder struct {
	opts   Options
	logger *zap.SugaredLogger

	mu          sync.RWMutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	ctx         context.Context    // current tab context
	cancel      context.CancelFunc // cancels the tab context only
}

// NewContextHolder creates the allocator and attaches to the app tab.
//
// Flow:
//  1. Create a remote or exec allocator depending on opts.DevToolsURL
//  2. Attach to the tab showing opts.AppURL, or open one
//  3. Return the holder for shared use
func NewContextHolder(opts Options, logger *zap.SugaredLogger) (*ContextHolder, error) {
	h := &ContextHolder{opts: opts, logger: logging.OrNop(logger)}

	h.allocCtx, h.allocCancel = newAllocator(opts, h.logger)
	h.browserCtx, h.browserStop = chromedp.NewContext(h.allocCtx)

	ctx, cancel, err := h.attach()
	if err != nil {
		h.browserStop()
		h.allocCancel()
		return nil, err
	}
	h.ctx, h.cancel = ctx, cancel
	return h, nil
}

// Get returns the current tab context.
func (h *ContextHolder) Get() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// Set replaces the tab context, cancelling the previous one.
func (h *ContextHolder) Set(ctx context.Context, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	h.ctx = ctx
	h.cancel = cancel
}

// Reattach looks up the app tab again and makes it current. Used when the
// operator closed the tab the holder was attached to.
func (h *ContextHolder) Reattach() error {
	h.logger.Warn("⚠️  Tab context lost, re-attaching...")

	ctx, cancel, err := h.attach()
	if err != nil {
		return err
	}
	h.Set(ctx, cancel)
	h.logger.Info("✓ Re-attached to app tab")
	return nil
}

// Cancel shuts down a launched Chrome.
//
// Cancelling a chromedp tab context closes the tab, so in remote mode the
// contexts are left alone: the operator's tab must survive the companion,
// and the DevTools connection is dropped when the process exits.
func (h *ContextHolder) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.DevToolsURL != "" {
		h.logger.Info("Leaving remote browser tabs open")
		return
	}

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.browserStop != nil {
		h.browserStop()
		h.browserStop = nil
	}
	if h.allocCancel != nil {
		h.allocCancel()
		h.allocCancel = nil
	}
}

// attach finds the tab whose URL starts with the app URL and returns a
// context bound to it. Without such a tab a new one is opened and pointed
// at the app.
func (h *ContextHolder) attach() (context.Context, context.CancelFunc, error) {
	targets, err := chromedp.Targets(h.browserCtx)
	if err != nil {
		return nil, nil, errors.NewBrowserError("failed to list browser tabs", err)
	}

	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if h.opts.AppURL == "" || strings.HasPrefix(t.URL, h.opts.AppURL) {
			ctx, cancel := chromedp.NewContext(h.browserCtx, chromedp.WithTargetID(t.TargetID))
			// Attach now so later timeouts derived from ctx only bound
			// single calls.
			if err := chromedp.Run(ctx); err != nil {
				cancel()
				return nil, nil, errors.NewBrowserError("failed to attach to tab", err)
			}
			h.logger.Infow("✓ Attached to tab", "url", t.URL, "title", t.Title)
			return ctx, cancel, nil
		}
	}

	if h.opts.AppURL == "" {
		return nil, nil, errors.NewBrowserError("no open tab to attach to", nil)
	}

	h.logger.Infow("  → Opening app tab...", "url", h.opts.AppURL)
	ctx, cancel := chromedp.NewContext(h.browserCtx)
	if err := chromedp.Run(ctx, chromedp.Navigate(h.opts.AppURL)); err != nil {
		cancel()
		return nil, nil, errors.NewBrowserError("failed to open app", err)
	}
	return ctx, cancel, nil
}

// newAllocator creates the allocator context for the configured mode.
func newAllocator(opts Options, logger *zap.SugaredLogger) (context.Context, context.CancelFunc) {
	if opts.DevToolsURL != "" {
		logger.Infow("  → Connecting to Chrome...", "url", opts.DevToolsURL)
		return chromedp.NewRemoteAllocator(context.Background(), opts.DevToolsURL)
	}

	if opts.ProfileDir != "" {
		if err := os.MkdirAll(opts.ProfileDir, 0o755); err != nil {
			logger.Warnw("⚠️  Cannot create profile dir, using a temporary one", "dir", opts.ProfileDir, "error", err)
			opts.ProfileDir = ""
		} else {
			removeStaleLocks(opts.ProfileDir, logger)
		}
	}

	logger.Infow("  → Launching Chrome...", "profile", opts.ProfileDir)
	return chromedp.NewExecAllocator(context.Background(), chromeOptions(opts)...)
}

// chromeOptions assembles the flags for a launched, visible Chrome.
func chromeOptions(opts Options) []chromedp.ExecAllocatorOption {
	flags := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("hide-crash-restore-bubble", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.WindowSize(1440, 900),
	}
	if opts.ProfileDir != "" {
		flags = append(flags, chromedp.UserDataDir(opts.ProfileDir))
	}
	return flags
}

// removeStaleLocks deletes Chrome singleton files left by a crashed run,
// which would otherwise make the launch fail.
func removeStaleLocks(dir string, logger *zap.SugaredLogger) {
	for _, name := range []string{"SingletonLock", "SingletonSocket", "SingletonCookie"} {
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			logger.Warnw("⚠️  Removed stale Chrome lock", "file", name)
		}
	}
}
