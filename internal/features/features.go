// Package features turns a URL string into the fixed-order numeric vector
// consumed by the phishing classifier.
package features

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Count is the number of fields in a Vector.
const Count = 16

// Names lists the vector fields in the order the classifier was trained on.
// Model artifacts are checked against this list when they are loaded.
var Names = [Count]string{
	"url_length",
	"dot_count",
	"slash_count",
	"hyphen_count",
	"underscore_count",
	"at_count",
	"has_https",
	"has_www",
	"has_ip",
	"subdomain_count",
	"domain_length",
	"suspicious_tld",
	"has_suspicious_words",
	"suspicious_word_count",
	"special_char_count",
	"digit_count",
}

// SuspiciousWords are substrings common in phishing URLs.
var SuspiciousWords = []string{
	"login", "verify", "account", "update", "confirm", "secure",
	"authenticate", "validate", "password", "reset", "suspended",
	"urgent", "action", "click", "alert", "warning", "expire",
}

// SuspiciousTLDs are top-level labels overrepresented in phishing datasets.
var SuspiciousTLDs = map[string]bool{
	"ru": true, "tk": true, "ml": true, "ga": true,
	"cf": true, "xyz": true, "top": true, "gq": true,
}

const specialChars = "!@#$%^&*()_+=|{};:'\",.<>?/\\`~"

// Vector holds the features of one URL. Every field is a non-negative count
// or a 0/1 flag.
type Vector struct {
	URLLength           int `json:"url_length"`
	DotCount            int `json:"dot_count"`
	SlashCount          int `json:"slash_count"`
	HyphenCount         int `json:"hyphen_count"`
	UnderscoreCount     int `json:"underscore_count"`
	AtCount             int `json:"at_count"`
	HasHTTPS            int `json:"has_https"`
	HasWWW              int `json:"has_www"`
	HasIP               int `json:"has_ip"`
	SubdomainCount      int `json:"subdomain_count"`
	DomainLength        int `json:"domain_length"`
	SuspiciousTLD       int `json:"suspicious_tld"`
	HasSuspiciousWords  int `json:"has_suspicious_words"`
	SuspiciousWordCount int `json:"suspicious_word_count"`
	SpecialCharCount    int `json:"special_char_count"`
	DigitCount          int `json:"digit_count"`
}

// Values returns the vector in Names order.
func (v Vector) Values() [Count]float64 {
	return [Count]float64{
		float64(v.URLLength),
		float64(v.DotCount),
		float64(v.SlashCount),
		float64(v.HyphenCount),
		float64(v.UnderscoreCount),
		float64(v.AtCount),
		float64(v.HasHTTPS),
		float64(v.HasWWW),
		float64(v.HasIP),
		float64(v.SubdomainCount),
		float64(v.DomainLength),
		float64(v.SuspiciousTLD),
		float64(v.HasSuspiciousWords),
		float64(v.SuspiciousWordCount),
		float64(v.SpecialCharCount),
		float64(v.DigitCount),
	}
}

// Map returns the vector keyed by field name.
func (v Vector) Map() map[string]int {
	vals := v.Values()
	m := make(map[string]int, Count)
	for i, name := range Names {
		m[name] = int(vals[i])
	}
	return m
}

// Extract computes the feature vector of url. It never fails: fields that
// cannot be derived from malformed input are left at zero.
func Extract(url string) Vector {
	var v Vector
	if url == "" {
		return v
	}

	v.URLLength = utf8.RuneCountInString(url)
	v.DotCount = strings.Count(url, ".")
	v.SlashCount = strings.Count(url, "/")
	v.HyphenCount = strings.Count(url, "-")
	v.UnderscoreCount = strings.Count(url, "_")
	v.AtCount = strings.Count(url, "@")

	v.HasHTTPS = flag(strings.HasPrefix(url, "https"))
	v.HasWWW = flag(strings.Contains(url, "www"))

	if auth, ok := splitAuthority(url); ok && auth != "" {
		v.HasIP = flag(isDottedQuad(hostname(auth)))
		v.DomainLength = utf8.RuneCountInString(auth)
		if dots := strings.Count(auth, "."); dots > 0 {
			v.SubdomainCount = dots - 1
			labels := strings.Split(auth, ".")
			v.SuspiciousTLD = flag(SuspiciousTLDs[strings.ToLower(labels[len(labels)-1])])
		}
	}

	lower := strings.ToLower(url)
	for _, w := range SuspiciousWords {
		if strings.Contains(lower, w) {
			v.SuspiciousWordCount++
		}
	}
	v.HasSuspiciousWords = flag(v.SuspiciousWordCount > 0)

	for _, r := range url {
		if strings.ContainsRune(specialChars, r) {
			v.SpecialCharCount++
		}
		if unicode.IsDigit(r) {
			v.DigitCount++
		}
	}

	return v
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
