package narrator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind selects the prompt used for a report.
type Kind string

const (
	KindScan   Kind = "scan"   // phishing URL scan
	KindAlerts Kind = "alerts" // prioritized alert queue
)

// maxReportBytes bounds the report text sent to the model.
const maxReportBytes = 32 * 1024

const baseSystemPrompt = `You are a senior security analyst covering both offensive and defensive operations.
You write concise, evidence-based triage notes for a security operations team.

RULES:
- Only cite URLs, hosts and numbers that appear verbatim in the report.
- If the report does not support a conclusion, say "not observed in data".
- Use plain text with numbered sections. No markdown tables.`

const scanInstructions = `Analyze the phishing URL triage report below and produce:

1. Likely phishing campaigns or lures (group related URLs)
2. Indicators of compromise (hosts, IP addresses, suspicious TLDs)
3. Likelihood per group (low / medium / high), consistent with the priorities in the report
4. Risk to users and the organization
5. Immediate recommended actions (blocking, takedown, user notification)
6. Suggested mail gateway or proxy filtering rules
7. Additional hardening suggestions`

const alertsInstructions = `Analyze the prioritized alert queue below and produce:

1. Which alerts need attention first and why
2. Indicators of compromise present in the queue
3. Likelihood of real incidents (low / medium / high)
4. Risk to the affected systems
5. Immediate recommended actions
6. Suggested firewall or detection rule changes
7. Additional hardening suggestions`

// SystemPrompt returns the analyst persona prompt.
func SystemPrompt(kind Kind) string {
	if kind == KindAlerts {
		return baseSystemPrompt + "\n- Alert probabilities come from an upstream detector. Treat them as given."
	}
	return baseSystemPrompt
}

// BuildPrompt wraps report in the instructions for kind.
func BuildPrompt(kind Kind, report string) string {
	instructions := scanInstructions
	if kind == KindAlerts {
		instructions = alertsInstructions
	}
	if len(report) > maxReportBytes {
		report = truncateUTF8(report, maxReportBytes) + "\n... (report truncated)"
	}
	return fmt.Sprintf("%s\n\nReport:\n%s\n", instructions, strings.TrimSpace(report))
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
