package automation

import (
	"context"
	"encoding/json"
	"fmt"

	"domsync/internal/errors"
)

// FieldWriter writes a value into a field of the third-party dialog.
//
// Implementations report every failure as a *errors.WriteFault and never
// panic. The rest of the package depends only on this interface.
type FieldWriter interface {
	Write(ctx context.Context, selector, value string) error
}

// Evaluator runs a script inside the page and decodes its result.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, out any) error
}

// Write results reported by the bridge script.
const (
	resultOK             = "ok"
	ReasonElementMissing = "element-missing"
	ReasonHandlerMissing = "handler-missing"
	ReasonEvaluate       = "evaluate"
)

// bridgeScript drives a framework-controlled input. A plain value
// assignment is overwritten on the next render, so the script calls the
// change handler the framework attached to the element (a property whose
// name starts with "__reactProps") with a synthetic {value, name} event,
// then dispatches a native input event for any other listener.
//
// The two %s verbs take JSON string literals: selector and value.
const bridgeScript = `((selector, value) => {
	const el = document.querySelector(selector);
	if (!el) return 'element-missing';
	const key = Object.keys(el).find(k => k.startsWith('__reactProps'));
	const props = key ? el[key] : null;
	if (!props || typeof props.onChange !== 'function') return 'handler-missing';
	if (el.type === 'text') el.value = value;
	const target = { value: value, name: el.name };
	props.onChange({ target: target, currentTarget: target });
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return 'ok';
})(%s, %s)`

// Bridge is the FieldWriter for the live page.
type Bridge struct {
	eval Evaluator
}

// NewBridge returns a bridge evaluating its script through eval.
func NewBridge(eval Evaluator) *Bridge {
	return &Bridge{eval: eval}
}

// Write sets selector's field to value through the framework's change
// handler.
func (b *Bridge) Write(ctx context.Context, selector, value string) error {
	script, err := BridgeScript(selector, value)
	if err != nil {
		return errors.NewWriteFault(selector, ReasonEvaluate, err)
	}

	var result string
	if err := b.eval.Evaluate(ctx, script, &result); err != nil {
		return errors.NewWriteFault(selector, ReasonEvaluate, err)
	}
	if result != resultOK {
		return errors.NewWriteFault(selector, result, nil)
	}
	return nil
}

// BridgeScript renders the bridge script for one write. Arguments are
// JSON-encoded so any value is passed as a string literal.
func BridgeScript(selector, value string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(bridgeScript, sel, val), nil
}
