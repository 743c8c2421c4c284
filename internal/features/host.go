package features

import (
	"regexp"
	"strings"
)

var dottedQuad = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

// splitAuthority returns the authority ("user@host:port") of a URL. A scheme
// is only stripped when it is a valid scheme token; the authority must be
// introduced by "//". ok is false when the authority is malformed.
func splitAuthority(raw string) (string, bool) {
	s := strings.TrimLeft(raw, "\x00\x01\x02\x03\x04\x05\x06\x07\x08\t\n\v\f\r\x0e\x0f\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f ")
	s = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(s)

	if i := strings.IndexByte(s, ':'); i > 0 && isSchemeToken(s[:i]) {
		s = s[i+1:]
	}
	if !strings.HasPrefix(s, "//") {
		return "", true
	}
	s = s[2:]
	if end := strings.IndexAny(s, "/?#"); end >= 0 {
		s = s[:end]
	}

	lb, rb := strings.Contains(s, "["), strings.Contains(s, "]")
	if lb != rb {
		return "", false
	}
	return s, true
}

func isSchemeToken(s string) bool {
	if s == "" || !isASCIILetter(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isASCIILetter(c) || (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' {
			continue
		}
		return false
	}
	return true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// hostname strips userinfo and port from an authority.
func hostname(auth string) string {
	if at := strings.LastIndexByte(auth, '@'); at >= 0 {
		auth = auth[at+1:]
	}
	if strings.HasPrefix(auth, "[") {
		if end := strings.IndexByte(auth, ']'); end > 0 {
			return auth[1:end]
		}
		return ""
	}
	if colon := strings.LastIndexByte(auth, ':'); colon >= 0 {
		auth = auth[:colon]
	}
	return auth
}

func isDottedQuad(host string) bool {
	return dottedQuad.MatchString(host)
}

// Host returns the lowercase host of url without userinfo or port, or "" when
// the URL has no parseable authority.
func Host(url string) string {
	auth, ok := splitAuthority(url)
	if !ok || auth == "" {
		return ""
	}
	return strings.ToLower(hostname(auth))
}

// TLD returns the last dot-separated label of the host, or "".
func TLD(url string) string {
	host := Host(url)
	i := strings.LastIndexByte(host, '.')
	if i < 0 {
		return ""
	}
	return host[i+1:]
}
