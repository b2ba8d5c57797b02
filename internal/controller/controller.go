// Package controller keeps the overlay in sync with the case page.
//
// This package implements:
//   - The initial re-sync and the continuous lead monitor
//   - Lead detection while no lead is bound, with a ceiling
//   - The operator's actions (extract, reset, submit, copy, next case,
//     translate)
//   - The next-lead watch after the close-out automation
//
// One mutex stands in for the page's event loop: every state transition
// happens under it, and a re-sync runs to completion before any other
// callback sees the session. Timer callbacks re-check their own context
// after taking the lock, so a superseded timer never acts.
package controller

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"domsync/internal/automation"
	"domsync/internal/errors"
	"domsync/internal/extract"
	"domsync/internal/formurl"
	"domsync/internal/health"
	"domsync/internal/logging"
	"domsync/internal/overlay"
	"domsync/internal/session"
	"domsync/internal/task"
	"domsync/internal/translate"

	"github.com/PuerkitoBio/goquery"
	"github.com/atotto/clipboard"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Timings of the session.
const (
	MonitorInterval   = 3 * time.Second
	DetectionInterval = 1 * time.Second
	DetectionCeiling  = 60 * time.Second
	NextLeadInterval  = 1 * time.Second
	NextLeadCeiling   = 60 * time.Second
)

// Messages shown to the operator.
const (
	DetectionTimeoutMsg = "Auto-detect new lead has timed out. Data will refresh when you open a new lead."
	NextLeadTimeoutMsg  = "Auto-detect new lead has timed out. Please click Extract Data when you have a new lead open."
	AssignFirstMsg      = `Please click "ASSIGN TO ME" first before submitting the form.`
	DialogTimeoutMsg    = "The status dialog did not open. Please change the status manually."
	SnapshotFailedMsg   = "Could not read the case page. Please try again."
	OpenFailedMsg       = "Could not open the form. Use Copy URL instead."
	CopiedMsg           = "✓ Copied to clipboard!"
	CopyFailedMsg       = "Could not copy to the clipboard."
	NoVerbatimMsg       = "There is no verbatim to translate."
)

// ErrNotRunning is returned by actions before Start or after Close.
var ErrNotRunning = stderrors.New("controller is not running")

// Page is the host page as the controller sees it.
type Page interface {
	automation.Page
	OpenURL(ctx context.Context, url string) error
}

// Translator translates a verbatim in place. A nil result with a nil error
// means translation is unavailable.
type Translator interface {
	Translate(ctx context.Context, text, confirmationEmail string) (string, error)
}

// Notifier mirrors operator notices to an outside channel.
type Notifier interface {
	SendNotice(kind, lead, message string) error
}

// Options configures a Controller. Page, View and Driver are required.
type Options struct {
	Page       Page
	View       overlay.View
	Driver     *automation.Driver
	Translator Translator
	Notifier   Notifier
	Health     *health.Monitor
	Clock      clockwork.Clock
	Clipboard  func(text string) error
	Logger     *zap.SugaredLogger
}

// Controller owns the session and implements overlay.Actions.
type Controller struct {
	page       Page
	view       overlay.View
	driver     *automation.Driver
	translator Translator
	notifier   Notifier
	health     *health.Monitor
	clock      clockwork.Clock
	clipboard  func(string) error
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	state   *session.State
	ctx     context.Context
	cancel  context.CancelFunc
	next    *task.Task
	record  extract.Record
	started bool
	closed  bool

	notices sync.WaitGroup
}

var _ overlay.Actions = (*Controller)(nil)

// New creates a controller. Nothing runs until Start.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	return &Controller{
		page:       opts.Page,
		view:       opts.View,
		driver:     opts.Driver,
		translator: opts.Translator,
		notifier:   opts.Notifier,
		health:     opts.Health,
		clock:      opts.Clock,
		clipboard:  opts.Clipboard,
		logger:     logging.OrNop(opts.Logger),
		state:      session.New(),
	}
}

// Start performs the initial re-sync and starts the monitor. Detection
// starts as well when the page shows no lead yet. Cancelling ctx stops
// every timer; Close also waits for them.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrNotRunning
	}
	if c.started {
		return nil
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.logger.Info("🚀 Session starting")
	doc, err := c.page.Document(c.ctx)
	if err != nil {
		c.logger.Warnw("⚠️  Initial snapshot failed", "error", err)
	}
	c.resyncLocked(doc, true)
	c.startMonitorLocked()
	return nil
}

// CurrentLead returns the bound lead number.
func (c *Controller) CurrentLead() string {
	return c.state.CurrentLead()
}

// Phase returns the detection phase.
func (c *Controller) Phase() session.Phase {
	return c.state.Phase()
}

// Record returns the record from the last re-sync.
func (c *Controller) Record() extract.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Detecting reports whether lead detection is running.
func (c *Controller) Detecting() bool {
	return c.state.Detecting()
}

// Extract re-reads the page and re-renders the overlay.
func (c *Controller) Extract() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.runningLocked(); err != nil {
		return err
	}
	doc, err := c.page.Document(c.ctx)
	if err != nil {
		c.logger.Warnw("⚠️  Snapshot failed", "action", "extract", "error", err)
		c.view.Alert(SnapshotFailedMsg)
		return err
	}
	c.resyncLocked(doc, true)
	return nil
}

// Reset clears the form and the bound lead. The monitor binds the page's
// lead again on its next tick.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.runningLocked(); err != nil {
		return err
	}
	c.view.ResetForm()
	c.state.Reset()
	c.state.ReplaceDetection(nil)
	c.record = extract.Record{}
	c.view.Render(c.record)
	c.view.SetNextEnabled(false)
	c.health.SetPhase(session.Empty.String())
	c.logger.Info("🧹 Session reset")
	return nil
}

// Submit opens the decision form pre-filled from a fresh extraction. It
// refuses while the case still has to be assigned to the operator.
func (c *Controller) Submit(in formurl.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.runningLocked(); err != nil {
		return err
	}
	doc, err := c.page.Document(c.ctx)
	if err != nil {
		c.logger.Warnw("⚠️  Snapshot failed", "action", "submit", "error", err)
		c.view.Alert(SnapshotFailedMsg)
		return err
	}
	if extract.NeedsAssignment(doc) {
		c.logger.Infow("Submit refused, case not assigned", "lead", c.state.CurrentLead())
		c.view.Alert(AssignFirstMsg)
		return errors.NewPreconditionError("assign-to-me", AssignFirstMsg, nil)
	}

	rec := extract.Extract(doc)
	url := formurl.Build(rec, in).URL()
	if err := c.page.OpenURL(c.ctx, url); err != nil {
		c.logger.Warnw("⚠️  Failed to open form", "lead", rec.LeadNumber, "error", err)
		c.view.Alert(OpenFailedMsg)
		return err
	}
	c.logger.Infow("📝 Form opened", "lead", rec.LeadNumber)
	c.view.SetNextEnabled(true)
	return nil
}

// CopyURL copies the pre-filled form URL, built from a fresh extraction,
// to the clipboard and returns it.
func (c *Controller) CopyURL(in formurl.Input) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.runningLocked(); err != nil {
		return "", err
	}
	doc, err := c.page.Document(c.ctx)
	if err != nil {
		c.logger.Warnw("⚠️  Snapshot failed", "action", "copy", "error", err)
		c.view.Alert(SnapshotFailedMsg)
		return "", err
	}

	rec := extract.Extract(doc)
	url := formurl.Build(rec, in).URL()
	if err := c.clipboard(url); err != nil {
		c.logger.Warnw("⚠️  Clipboard write failed", "error", err)
		c.view.ShowNotice(CopyFailedMsg)
		return url, err
	}
	c.logger.Infow("📋 Form URL copied", "lead", rec.LeadNumber)
	c.view.ShowNotice(CopiedMsg)
	c.view.SetNextEnabled(true)
	return url, nil
}

// Next closes out the current case and then watches for the operator to
// open the next one. A previous run still in flight is cancelled.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.runningLocked(); err != nil {
		return err
	}
	baseline := c.state.CurrentLead()
	c.view.ResetForm()
	c.view.SetNextEnabled(false)
	c.view.Collapse()

	c.next.Cancel()
	c.next = task.New("next-case", func(ctx context.Context) error {
		return c.nextCase(ctx, baseline)
	}).Start(c.ctx)
	return nil
}

// Translate shows the verbatim translated in place when a translator is
// configured, and otherwise opens it in Google Translate.
func (c *Controller) Translate() error {
	c.mu.Lock()
	if err := c.runningLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	ctx := c.ctx
	c.mu.Unlock()

	doc, err := c.page.Document(ctx)
	if err != nil {
		c.logger.Warnw("⚠️  Snapshot failed", "action", "translate", "error", err)
		c.view.Alert(SnapshotFailedMsg)
		return err
	}
	rec := extract.Extract(doc)
	if rec.Verbatim == "" {
		c.view.ShowNotice(NoVerbatimMsg)
		return nil
	}

	if c.translator != nil {
		text, err := c.translator.Translate(ctx, rec.Verbatim, rec.ConfirmationEmail)
		if err != nil {
			c.logger.Warnw("⚠️  Translation failed, opening Google Translate", "error", err)
		} else if text != "" {
			c.view.ShowTranslation(text)
			return nil
		}
	}
	return c.page.OpenURL(ctx, translate.Link(rec.Verbatim, rec.ConfirmationEmail))
}

// LanguageChanged records that the operator picked the language by hand,
// so re-syncs stop overwriting it.
func (c *Controller) LanguageChanged() {
	c.state.OverrideLanguage()
}

// Close stops every timer and waits for their goroutines.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tasks := c.state.StopTimers()
	if c.next != nil {
		c.next.Cancel()
		tasks = append(tasks, c.next)
		c.next = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	for _, t := range tasks {
		_ = t.Wait()
	}
	c.notices.Wait()
	c.logger.Info("👋 Session closed")
	return nil
}

func (c *Controller) runningLocked() error {
	if !c.started || c.closed {
		return ErrNotRunning
	}
	return nil
}

// resyncLocked re-renders the overlay from doc and rebinds the session.
// A nil doc renders an empty record.
//
// Every re-sync clears the language override and applies the language
// inferred from the new record. When resetForm is false the operator's
// other inputs are kept.
func (c *Controller) resyncLocked(doc *goquery.Document, resetForm bool) {
	if resetForm {
		c.view.ResetForm()
	}
	c.state.Reset()
	c.state.ReplaceDetection(nil)

	rec := extract.Extract(doc)
	c.record = rec
	c.view.Render(rec)
	c.view.SetLanguage(rec.Language())

	c.state.Commit(rec.LeadNumber)
	c.health.RecordResync(c.state.Phase().String(), rec.LeadNumber)
	c.logger.Infow("🔄 Re-synced", "lead", rec.LeadNumber, "reset_form", resetForm)

	if rec.LeadNumber == "" {
		c.startDetectionLocked()
	}
}

func (c *Controller) startDetectionLocked() {
	t := task.New("lead-detection", c.detect)
	c.state.ReplaceDetection(t)
	t.Start(c.ctx)
}

// detect polls for a lead while the session is Empty and times the
// session out at the ceiling.
func (c *Controller) detect(ctx context.Context) error {
	err := task.Poll(ctx, c.clock, "lead detection", DetectionInterval, DetectionCeiling, func(ctx context.Context) (bool, error) {
		doc, err := c.page.Document(ctx)
		if err != nil {
			c.logger.Debugw("Snapshot failed during detection", "error", err)
			return false, nil
		}
		lead := extract.LeadNumber(doc)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !c.state.Observe(lead) {
			return false, nil
		}
		c.logger.Infow("🆕 Lead detected", "lead", lead)
		c.resyncLocked(doc, false)
		return true, nil
	})
	if !errors.IsTimeout(err) {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.state.TimeOut() {
		c.logger.Warnw("⏱️  Lead detection timed out", "after", DetectionCeiling)
		c.view.ShowTimedOut(DetectionTimeoutMsg)
		c.health.SetPhase(session.TimedOut.String())
		c.health.RecordNotice(DetectionTimeoutMsg)
		c.noticeLocked("Lead detection timeout", DetectionTimeoutMsg)
	}
	return err
}

func (c *Controller) startMonitorLocked() {
	t := task.New("lead-monitor", func(ctx context.Context) error {
		return task.Every(ctx, c.clock, MonitorInterval, c.monitorTick)
	})
	c.state.ReplaceMonitor(t)
	t.Start(c.ctx)
}

// monitorTick re-syncs when the page shows a different lead, and keeps
// Next disabled while the page offers no Change status button.
func (c *Controller) monitorTick(ctx context.Context) {
	doc, err := c.page.Document(ctx)
	if err != nil {
		c.logger.Debugw("Snapshot failed during monitor tick", "error", err)
		return
	}
	lead := extract.LeadNumber(doc)
	canChangeStatus := extract.ChangeStatusAvailable(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	if c.state.Observe(lead) {
		c.logger.Infow("🆕 Lead changed", "from", c.state.CurrentLead(), "to", lead)
		c.view.Expand()
		c.resyncLocked(doc, true)
		c.view.SetNextEnabled(false)
	}
	if !canChangeStatus {
		c.view.SetNextEnabled(false)
	}
}

// nextCase runs the close-out automation, then waits for a lead other than
// baseline to appear.
func (c *Controller) nextCase(ctx context.Context, baseline string) error {
	err := c.driver.Run(ctx)
	c.health.SetAutomation(c.driver.State().String())
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.view.Expand()
		msg := DialogTimeoutMsg
		if errors.IsTimeout(err) {
			c.view.ShowNotice(msg)
		} else {
			msg = operatorMessage(err)
			c.view.Alert(msg)
		}
		c.health.RecordNotice(msg)
		c.noticeLocked("Automation failed", msg)
		return err
	}

	c.driver.MonitorNextLead()
	c.health.SetAutomation(c.driver.State().String())
	c.logger.Infow("👀 Watching for the next lead", "baseline", baseline)

	err = task.Poll(ctx, c.clock, "next lead", NextLeadInterval, NextLeadCeiling, func(ctx context.Context) (bool, error) {
		doc, err := c.page.Document(ctx)
		if err != nil {
			c.logger.Debugw("Snapshot failed while watching for the next lead", "error", err)
			return false, nil
		}
		lead := extract.LeadNumber(doc)
		if lead == "" || lead == baseline {
			return false, nil
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return false, err
		}
		c.logger.Infow("🆕 Next lead opened", "lead", lead)
		c.view.Expand()
		if c.state.Observe(lead) {
			c.resyncLocked(doc, true)
		}
		return true, nil
	})
	c.driver.Finish()
	c.health.SetAutomation(c.driver.State().String())
	if !errors.IsTimeout(err) {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Warnw("⏱️  Next lead did not appear", "after", NextLeadCeiling)
	c.view.Expand()
	c.view.ShowNotice(NextLeadTimeoutMsg)
	c.health.RecordNotice(NextLeadTimeoutMsg)
	c.noticeLocked("Next lead timeout", NextLeadTimeoutMsg)
	return err
}

// noticeLocked mirrors a notice to the notifier without holding up the
// session.
func (c *Controller) noticeLocked(kind, message string) {
	if c.notifier == nil {
		return
	}
	lead := c.state.CurrentLead()
	c.notices.Add(1)
	go func() {
		defer c.notices.Done()
		if err := c.notifier.SendNotice(kind, lead, message); err != nil {
			c.logger.Warnw("⚠️  Failed to send notice", "kind", kind, "error", err)
		}
	}()
}

// operatorMessage extracts the message meant for the operator.
func operatorMessage(err error) string {
	var pre *errors.PreconditionError
	if stderrors.As(err, &pre) {
		return pre.Message
	}
	return err.Error()
}
