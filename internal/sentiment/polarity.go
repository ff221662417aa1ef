package sentiment

import "strings"

const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"

	polarityThreshold = 0.05
)

// valence of each emotion label; labels not listed count as zero.
var valence = map[string]float64{
	"joy":     1,
	"anger":   -1,
	"disgust": -1,
	"fear":    -1,
	"sadness": -1,
}

// Compound folds an emotion distribution into a polarity score in [-1, 1].
func Compound(scores []Emotion) float64 {
	var c float64
	for _, e := range scores {
		c += valence[strings.ToLower(e.Label)] * e.Score
	}
	switch {
	case c > 1:
		return 1
	case c < -1:
		return -1
	}
	return c
}

// PolarityLabel maps a compound score to a label.
func PolarityLabel(compound float64) string {
	switch {
	case compound >= polarityThreshold:
		return Positive
	case compound <= -polarityThreshold:
		return Negative
	}
	return Neutral
}
