// Package translate helps the operator read the customer's verbatim.
//
// Link builds a Google Translate page URL for the browser. Translator calls
// the Cloud Translation API directly so the overlay can show the result in
// place.
//
// Direction follows the confirmation email setting: French customers are
// translated to English, everyone else from auto-detected to French.
//
// Graceful degradation: if the API key is not set, Translator is nil and
// only the link is offered.
package translate

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"domsync/internal/logging"

	"cloud.google.com/go/translate"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// WebURL is the Google Translate page.
const WebURL = "https://translate.google.com/"

// Auto is the source code that lets the service detect the language.
const Auto = "auto"

// Direction returns the source and target language codes for a customer
// whose confirmation email setting is confirmationEmail.
func Direction(confirmationEmail string) (source, target string) {
	if strings.Contains(strings.ToLower(confirmationEmail), "fr") {
		return "fr", "en"
	}
	return Auto, "fr"
}

// Link returns the Google Translate page URL for verbatim. Empty or "N/A"
// verbatims yield "".
func Link(verbatim, confirmationEmail string) string {
	if verbatim == "" || verbatim == "N/A" {
		return ""
	}
	source, target := Direction(confirmationEmail)
	return fmt.Sprintf("%s?sl=%s&tl=%s&text=%s&op=translate",
		WebURL, source, target, url.QueryEscape(verbatim))
}

// Translator wraps the Cloud Translation client.
type Translator struct {
	client *translate.Client
	logger *zap.SugaredLogger
}

// NewTranslator creates a Cloud Translation client.
//
// Returns nil if apiKey is empty (graceful degradation).
func NewTranslator(ctx context.Context, apiKey string, logger *zap.SugaredLogger) (*Translator, error) {
	logger = logging.OrNop(logger)
	if apiKey == "" {
		logger.Warn("⚠️  TRANSLATE_API_KEY not set. In-place translation disabled.")
		return nil, nil
	}

	client, err := translate.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}

	logger.Info("✓ Cloud translation configured successfully")
	return &Translator{client: client, logger: logger}, nil
}

// Translate translates text in the direction chosen by confirmationEmail.
// A nil Translator returns "" without error.
func (t *Translator) Translate(ctx context.Context, text, confirmationEmail string) (string, error) {
	if t == nil || strings.TrimSpace(text) == "" {
		return "", nil
	}

	source, target := Direction(confirmationEmail)
	opts := &translate.Options{Format: translate.Text}
	if source != Auto {
		opts.Source = language.MustParse(source)
	}

	results, err := t.client.Translate(ctx, []string{text}, language.MustParse(target), opts)
	if err != nil {
		t.logger.Warnw("⚠️  Translation failed", "error", err)
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}

	t.logger.Debugw("Translated verbatim", "source", results[0].Source.String(), "target", target)
	return html.UnescapeString(results[0].Text), nil
}

// Close releases the client. Safe on nil.
func (t *Translator) Close() error {
	if t == nil {
		return nil
	}
	return t.client.Close()
}
