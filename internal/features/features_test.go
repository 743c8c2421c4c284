package features

import (
	"math"
	"testing"
)

func TestExtract_Empty(t *testing.T) {
	v := Extract("")
	for i, x := range v.Values() {
		if x != 0 {
			t.Errorf("%s = %v, want 0", Names[i], x)
		}
	}
}

func TestExtract_HTTPSLogin(t *testing.T) {
	v := Extract("https://www.example.com/login")
	if v.HasHTTPS != 1 {
		t.Errorf("HasHTTPS = %d, want 1", v.HasHTTPS)
	}
	if v.HasWWW != 1 {
		t.Errorf("HasWWW = %d, want 1", v.HasWWW)
	}
	if v.SuspiciousWordCount < 1 {
		t.Errorf("SuspiciousWordCount = %d, want >= 1", v.SuspiciousWordCount)
	}
	if v.HasSuspiciousWords != 1 {
		t.Errorf("HasSuspiciousWords = %d, want 1", v.HasSuspiciousWords)
	}
	if v.HasIP != 0 {
		t.Errorf("HasIP = %d, want 0", v.HasIP)
	}
	if v.DomainLength != len("www.example.com") {
		t.Errorf("DomainLength = %d, want %d", v.DomainLength, len("www.example.com"))
	}
	if v.SubdomainCount != 1 {
		t.Errorf("SubdomainCount = %d, want 1", v.SubdomainCount)
	}
}

func TestExtract_IPHost(t *testing.T) {
	v := Extract("http://192.168.0.1/reset-password")
	if v.HasIP != 1 {
		t.Errorf("HasIP = %d, want 1", v.HasIP)
	}
	if v.HasHTTPS != 0 {
		t.Errorf("HasHTTPS = %d, want 0", v.HasHTTPS)
	}
	// "reset" and "password"
	if v.SuspiciousWordCount != 2 {
		t.Errorf("SuspiciousWordCount = %d, want 2", v.SuspiciousWordCount)
	}
	if v.HyphenCount != 1 {
		t.Errorf("HyphenCount = %d, want 1", v.HyphenCount)
	}
	if v.DigitCount != 8 {
		t.Errorf("DigitCount = %d, want 8", v.DigitCount)
	}
}

func TestExtract_Counts(t *testing.T) {
	url := "http://user@paypal-secure.tk/a_b/c?x=1"
	v := Extract(url)

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"url_length", v.URLLength, len(url)},
		{"dot_count", v.DotCount, 1},
		{"slash_count", v.SlashCount, 4},
		{"hyphen_count", v.HyphenCount, 1},
		{"underscore_count", v.UnderscoreCount, 1},
		{"at_count", v.AtCount, 1},
		{"has_https", v.HasHTTPS, 0},
		{"has_www", v.HasWWW, 0},
		{"subdomain_count", v.SubdomainCount, 0},
		{"domain_length", v.DomainLength, len("user@paypal-secure.tk")},
		{"suspicious_tld", v.SuspiciousTLD, 1},
		{"suspicious_word_count", v.SuspiciousWordCount, 1},
		{"special_char_count", v.SpecialCharCount, 10},
		{"digit_count", v.DigitCount, 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestExtract_NoScheme(t *testing.T) {
	v := Extract("www.badsite.tk/verify")
	if v.HasHTTPS != 0 {
		t.Errorf("HasHTTPS = %d, want 0", v.HasHTTPS)
	}
	if v.DomainLength != 0 || v.SubdomainCount != 0 || v.SuspiciousTLD != 0 {
		t.Errorf("host fields should be zero without an authority, got domain=%d sub=%d tld=%d",
			v.DomainLength, v.SubdomainCount, v.SuspiciousTLD)
	}
	if v.HasWWW != 1 {
		t.Errorf("HasWWW = %d, want 1", v.HasWWW)
	}
}

func TestExtract_MalformedHost(t *testing.T) {
	v := Extract("http://[::1/login.ru")
	if v.DomainLength != 0 || v.SubdomainCount != 0 || v.SuspiciousTLD != 0 {
		t.Errorf("malformed host should zero host fields, got domain=%d sub=%d tld=%d",
			v.DomainLength, v.SubdomainCount, v.SuspiciousTLD)
	}
	if v.URLLength == 0 {
		t.Error("string fields should still be computed")
	}
}

func TestExtract_HTTPSPrefixIsCaseSensitive(t *testing.T) {
	if got := Extract("HTTPS://example.com").HasHTTPS; got != 0 {
		t.Errorf("HasHTTPS = %d, want 0", got)
	}
}

func TestExtract_PortAndUserinfo(t *testing.T) {
	v := Extract("http://admin@10.0.0.7:8080/panel")
	if v.HasIP != 1 {
		t.Errorf("HasIP = %d, want 1", v.HasIP)
	}
	if v.DomainLength != len("admin@10.0.0.7:8080") {
		t.Errorf("DomainLength = %d", v.DomainLength)
	}
}

func TestExtract_AllFieldsFiniteNonNegative(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"://",
		"http://",
		"https://xn--pypal-4ve.com/%00%ff",
		"javascript:alert(1)",
		"http://[fe80::1%25en0]:80/",
		"ftp://a.b.c.d.e.f.g.h/",
		"\x00\x01\x02",
		"пример.рф/логин",
		"https://١٢٣.com",
	}
	for _, in := range inputs {
		vals := Extract(in).Values()
		if len(vals) != Count {
			t.Fatalf("Extract(%q) has %d fields, want %d", in, len(vals), Count)
		}
		for i, x := range vals {
			if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
				t.Errorf("Extract(%q).%s = %v", in, Names[i], x)
			}
		}
	}
}

func TestExtract_UnicodeDigits(t *testing.T) {
	if got := Extract("١٢٣").DigitCount; got != 3 {
		t.Errorf("DigitCount = %d, want 3", got)
	}
	if got := Extract("пример").URLLength; got != 6 {
		t.Errorf("URLLength = %d, want 6 runes", got)
	}
}

func TestVector_MapMatchesValues(t *testing.T) {
	v := Extract("https://secure-login.example.xyz/account")
	m := v.Map()
	vals := v.Values()
	if len(m) != Count {
		t.Fatalf("map has %d keys, want %d", len(m), Count)
	}
	for i, name := range Names {
		if float64(m[name]) != vals[i] {
			t.Errorf("%s: map=%d values=%v", name, m[name], vals[i])
		}
	}
}

func TestHostAndTLD(t *testing.T) {
	tests := []struct {
		url, host, tld string
	}{
		{"https://User@Login.Example.TK:8443/x", "login.example.tk", "tk"},
		{"http://192.168.0.1/reset", "192.168.0.1", "1"},
		{"http://[::1]:80/", "::1", ""},
		{"example.com/login", "", ""},
		{"", "", ""},
		{"http://localhost/", "localhost", ""},
	}
	for _, tt := range tests {
		if got := Host(tt.url); got != tt.host {
			t.Errorf("Host(%q) = %q, want %q", tt.url, got, tt.host)
		}
		if got := TLD(tt.url); got != tt.tld {
			t.Errorf("TLD(%q) = %q, want %q", tt.url, got, tt.tld)
		}
	}
}
