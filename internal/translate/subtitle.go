package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/dubline/internal/subtitle"
)

// TranslateSubtitle replaces every non-blank entry's text with its
// translation. Timing is left untouched. Blank entries are not sent.
func TranslateSubtitle(
	ctx context.Context,
	tr Translator,
	sub *subtitle.Subtitle,
	concurrency int,
) error {
	items := make([]TranslationItem, 0, len(sub.Entries))
	for i, e := range sub.Entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		items = append(items, TranslationItem{Index: i, Text: e.Text})
	}
	if len(items) == 0 {
		return nil
	}

	var (
		results []TranslationResult
		err     error
	)
	if ct, ok := tr.(ConcurrentTranslator); ok {
		results, err = ct.TranslateWithConcurrency(ctx, items, concurrency)
	} else {
		results, err = tr.Translate(ctx, items)
	}
	if err != nil {
		return err
	}

	if len(results) != len(items) {
		return fmt.Errorf("expected %d translations, got %d", len(items), len(results))
	}
	for _, r := range results {
		if err := sub.SetText(r.Index, r.Text); err != nil {
			return fmt.Errorf("failed to apply translation: %w", err)
		}
	}
	return nil
}
