package labels

import (
	"context"
	"fmt"

	"github.com/steveyegge/labeler/internal/taxonomy"
	"go.uber.org/zap"
)

// Completer returns the raw completion text for a prompt
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Parse runs the offline stages on raw completion text: locate, extract, normalize.
// It returns ErrSectionNotFound when raw has no response section; zero candidates
// yield an empty slice and no error.
func Parse(raw string, tax *taxonomy.Taxonomy) ([]string, error) {
	answer, err := LocateAnswer(raw)
	if err != nil {
		return nil, err
	}
	return Normalize(ExtractCandidates(answer), tax), nil
}

// Labeler runs the whole pipeline for one prompt. It holds no per-call state,
// so one Labeler may serve concurrent callers.
type Labeler struct {
	completer Completer
	taxonomy  *taxonomy.Taxonomy
	logger    *zap.Logger
}

// NewLabeler creates a Labeler
func NewLabeler(completer Completer, tax *taxonomy.Taxonomy, logger *zap.Logger) *Labeler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Labeler{completer: completer, taxonomy: tax, logger: logger.Named("labeler")}
}

// Taxonomy returns the taxonomy labels are normalized against
func (l *Labeler) Taxonomy() *taxonomy.Taxonomy {
	return l.taxonomy
}

// Label submits prompt and returns the normalized label set.
func (l *Labeler) Label(ctx context.Context, prompt string) ([]string, error) {
	raw, err := l.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	labels, err := Parse(raw, l.taxonomy)
	if err != nil {
		l.logger.Info("completion has no response section",
			zap.Int("completion_chars", len(raw)))
		return nil, err
	}

	l.logger.Debug("labels parsed", zap.Strings("labels", labels))
	return labels, nil
}
