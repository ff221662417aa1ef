package sentiment

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Unknown is the label given to a comment that could not be classified.
const Unknown = "unknown"

// LabelAll classifies texts with at most limit requests in flight and
// returns the emotion label of each, in order. A failed classification
// yields Unknown for that text.
func LabelAll(ctx context.Context, c Classifier, texts []string, limit int, logger *zap.Logger) []string {
	labels := make([]string, len(texts))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, text := range texts {
		g.Go(func() error {
			res, err := c.Classify(ctx, text)
			if err != nil {
				logger.Warn("comment classification failed", zap.Int("index", i), zap.Error(err))
				labels[i] = Unknown
				return nil
			}
			labels[i] = res.Emotion.Label
			return nil
		})
	}
	_ = g.Wait()
	return labels
}
