package sigma

// SigmaMatch records a Sigma rule hit against a scored URL.
type SigmaMatch struct {
	URL       string   `json:"url" yaml:"url"`
	RuleTitle string   `json:"rule_title" yaml:"rule_title"`
	RuleID    string   `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`
	Level     string   `json:"level" yaml:"level"` // informational | low | medium | high | critical
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// CountByLevel totals matches per rule level.
func CountByLevel(matches []SigmaMatch) map[string]int {
	out := make(map[string]int)
	for _, m := range matches {
		out[m.Level]++
	}
	return out
}
