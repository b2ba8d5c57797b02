// Package automation drives the host's "Change status" dialog to close out
// the current case.
//
// The dialog belongs to the host application and has no public API. The
// driver clicks the host's button, waits for the dialog, and fills three
// fields through a FieldWriter. It never submits the dialog: the operator
// does, after which the controller watches for the next lead.
package automation

import (
	"context"
	"sync"
	"time"

	"domsync/internal/errors"
	"domsync/internal/extract"
	"domsync/internal/logging"
	"domsync/internal/task"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// State is the driver's position in the close-out sequence.
type State int

const (
	Idle State = iota
	AwaitingDialog
	SettingFields
	AwaitingUserSubmit
	MonitoringForNextLead
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingDialog:
		return "awaiting_dialog"
	case SettingFields:
		return "setting_fields"
	case AwaitingUserSubmit:
		return "awaiting_user_submit"
	case MonitoringForNextLead:
		return "monitoring_for_next_lead"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dialog selectors and the values written into it.
const (
	DialogSelector         = `.MuiDialog-paper[role="dialog"]`
	StatusFieldSelector    = `input[name="status"]`
	UpdatedSystemSelector  = `input[name="updatedSystem"]`
	ExternalOrderSelector  = `input[name="externalSystemOrderID"]`
	StatusCompleted        = "COMPLETED"
	UpdatedSystemNone      = "None"
	ChangeStatusMissingMsg = `Could not find "Change Status" button. Please click it manually.`
)

// Timings of the sequence.
const (
	DialogTimeout      = 5 * time.Second
	DialogPollInterval = 100 * time.Millisecond
	DialogSettle       = 500 * time.Millisecond
	StatusSettle       = 500 * time.Millisecond
	UpdatedSettle      = 300 * time.Millisecond
)

// Page is the part of the host page the driver needs.
type Page interface {
	Document(ctx context.Context) (*goquery.Document, error)
	ClickButton(ctx context.Context, selector string) (bool, error)
}

// Driver runs the close-out sequence. It is safe for concurrent use; a
// second Run while one is in flight waits for the first.
type Driver struct {
	page   Page
	writer FieldWriter
	clock  clockwork.Clock
	logger *zap.SugaredLogger

	run sync.Mutex // serializes Run

	mu    sync.Mutex
	state State
	err   error
}

// NewDriver creates an idle driver. A nil clock uses the real clock.
func NewDriver(page Page, writer FieldWriter, clock clockwork.Clock, logger *zap.SugaredLogger) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Driver{
		page:   page,
		writer: writer,
		clock:  clock,
		logger: logging.OrNop(logger),
		state:  Idle,
	}
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err returns the error that moved the driver to Failed, if any.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	if s != Failed {
		d.err = nil
	}
}

func (d *Driver) fail(err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Failed
	d.err = err
	return err
}

// MonitorNextLead records that the operator's submit is being watched for.
func (d *Driver) MonitorNextLead() {
	d.setState(MonitoringForNextLead)
}

// Finish returns the driver to Idle once the next lead was seen, or the
// watch was abandoned.
func (d *Driver) Finish() {
	d.setState(Idle)
}

// Run performs the close-out sequence.
//
// Steps:
//  1. Click the host's "Change status" button
//  2. Wait for the dialog, then let it settle
//  3. Write COMPLETED into the status field, then let dependent fields render
//  4. Write None into the "system updated in" field, then settle
//  5. Write the assignment id (read fresh from the page) into the
//     external order field
//
// Returns:
//   - nil in AwaitingUserSubmit
//   - *errors.PreconditionError when the button is missing or a write
//     failed; the driver halts at that step in Failed
//   - *errors.TimeoutError when the dialog did not appear; Failed
//   - ctx.Err() when cancelled; the driver returns to Idle
func (d *Driver) Run(ctx context.Context) error {
	d.run.Lock()
	defer d.run.Unlock()

	log := d.logger.With("run", uuid.NewString())
	log.Info("🤖 Starting next-case automation")
	d.setState(Idle)

	clicked, err := d.page.ClickButton(ctx, extract.ChangeStatusIconSelector)
	if err != nil {
		return d.halt(ctx, log, errors.NewPreconditionError("change-status", ChangeStatusMissingMsg, err))
	}
	if !clicked {
		return d.halt(ctx, log, errors.NewPreconditionError("change-status", ChangeStatusMissingMsg, nil))
	}
	log.Info("✓ Change status clicked")
	d.setState(AwaitingDialog)

	if _, err := d.WaitForElement(ctx, DialogSelector, DialogTimeout); err != nil {
		return d.halt(ctx, log, err)
	}
	log.Info("✓ Status dialog appeared")
	if err := task.Sleep(ctx, d.clock, DialogSettle); err != nil {
		return d.halt(ctx, log, err)
	}

	d.setState(SettingFields)
	steps := []struct {
		name     string
		selector string
		value    func(ctx context.Context) (string, error)
		settle   time.Duration
	}{
		{"Change status to", StatusFieldSelector, constant(StatusCompleted), StatusSettle},
		{"System updated in", UpdatedSystemSelector, constant(UpdatedSystemNone), UpdatedSettle},
		{"External system order ID", ExternalOrderSelector, d.assignmentID, 0},
	}
	for _, step := range steps {
		value, err := step.value(ctx)
		if err != nil {
			return d.halt(ctx, log, errors.NewPreconditionError(step.selector, writeFailedMsg(step.name), err))
		}
		if err := d.writer.Write(ctx, step.selector, value); err != nil {
			return d.halt(ctx, log, errors.NewPreconditionError(step.selector, writeFailedMsg(step.name), err))
		}
		log.Infow("✓ Field set", "field", step.name, "value", value)

		if err := task.Sleep(ctx, d.clock, step.settle); err != nil {
			return d.halt(ctx, log, err)
		}
	}

	d.setState(AwaitingUserSubmit)
	log.Info("✅ Automation complete, waiting for the operator to submit")
	return nil
}

// halt stops the sequence. Cancellation returns to Idle; anything else is
// a failure the operator has to see.
func (d *Driver) halt(ctx context.Context, log *zap.SugaredLogger, err error) error {
	if ctx.Err() != nil {
		log.Infow("Automation cancelled", "state", d.State().String())
		d.setState(Idle)
		return ctx.Err()
	}
	log.Warnw("❌ Automation halted", "state", d.State().String(), "error", err)
	return d.fail(err)
}

// assignmentID reads the TID from the page at the moment it is written.
func (d *Driver) assignmentID(ctx context.Context) (string, error) {
	doc, err := d.page.Document(ctx)
	if err != nil {
		return "", err
	}
	return extract.AssignedTo(doc), nil
}

// WaitForElement polls the page for selector every 100ms until it appears
// or timeout elapses, in which case a *errors.TimeoutError is returned.
// Snapshot errors count as "not yet present".
func (d *Driver) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (*goquery.Selection, error) {
	var found *goquery.Selection
	err := task.Poll(ctx, d.clock, "wait for "+selector, DialogPollInterval, timeout, func(ctx context.Context) (bool, error) {
		doc, err := d.page.Document(ctx)
		if err != nil {
			d.logger.Debugw("Snapshot failed while waiting", "selector", selector, "error", err)
			return false, nil
		}
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return false, nil
		}
		found = sel
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func constant(value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return value, nil }
}

func writeFailedMsg(field string) string {
	return `Could not set "` + field + `" in the status dialog. Please set it manually.`
}
