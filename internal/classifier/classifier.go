package classifier

import (
	"github.com/iyulab/phish-triage/internal/features"
)

// Label is the predicted class of a URL.
type Label string

const (
	Legitimate Label = "legitimate"
	Phishing   Label = "phishing"
)

// Result is the outcome of classifying one URL.
type Result struct {
	URL                   string          `json:"url"`
	Label                 Label           `json:"label"`
	ProbabilityLegitimate float64         `json:"prob_legitimate"`
	ProbabilityPhishing   float64         `json:"prob_phishing"`
	Confidence            float64         `json:"confidence"` // max probability, percent
	Features              features.Vector `json:"features"`
}

// Classify scores a feature vector. The vector type fixes field order and
// count at compile time, so this cannot hit a schema mismatch.
func (m *Model) Classify(v features.Vector) Result {
	vals := v.Values()
	p, _ := m.Predict(vals[:])

	r := Result{
		ProbabilityLegitimate: p[ClassLegitimate],
		ProbabilityPhishing:   p[ClassPhishing],
		Features:              v,
	}
	if p[ClassPhishing] > p[ClassLegitimate] {
		r.Label = Phishing
		r.Confidence = p[ClassPhishing] * 100
	} else {
		r.Label = Legitimate
		r.Confidence = p[ClassLegitimate] * 100
	}
	return r
}

// ClassifyURL extracts features from url and classifies them.
func (m *Model) ClassifyURL(url string) Result {
	r := m.Classify(features.Extract(url))
	r.URL = url
	return r
}
