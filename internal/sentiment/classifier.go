// Package sentiment classifies text into an emotion and a polarity.
package sentiment

import "context"

// Emotion is one label of the emotion model with its probability.
type Emotion struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Result struct {
	// Emotion is the top scoring label.
	Emotion Emotion
	// Compound is the polarity score in [-1, 1].
	Compound float64
	// Polarity is "positive", "negative" or "neutral".
	Polarity string
}

type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}
