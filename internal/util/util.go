// Package util provides text normalization helpers shared by the catalog,
// workshop and shuffle-bag stores.
package util

import (
	"os"
	"strings"
)

const trimCutset = " \t\r\n"

// Trim removes leading and trailing spaces, tabs, carriage returns and newlines.
func Trim(s string) string {
	return strings.Trim(s, trimCutset)
}

// StripQuotes removes one pair of matching surrounding single or double quotes.
func StripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ExpandEnvAndHome expands %VAR% references and a leading ~.
// Unset variables expand to nothing; an unterminated % is kept literally.
func ExpandEnvAndHome(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] == '%' {
			if end := strings.IndexByte(s[i+1:], '%'); end >= 0 {
				name := s[i+1 : i+1+end]
				if name != "" {
					b.WriteString(os.Getenv(name))
				}
				i += end + 2
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}

	expanded := b.String()
	if strings.HasPrefix(expanded, "~") {
		if home := homeDir(); home != "" {
			expanded = home + expanded[1:]
		}
	}
	return expanded
}

func homeDir() string {
	if h := os.Getenv("USERPROFILE"); h != "" {
		return h
	}
	return os.Getenv("HOME")
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// CompareFold compares a and b byte-wise ignoring ASCII case.
// A string that is a prefix of the other sorts first.
func CompareFold(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := lowerASCII(a[i]), lowerASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) < len(b):
		return -1
	default:
		return 1
	}
}

// HasPrefixFold reports whether s begins with prefix, ignoring ASCII case.
func HasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if lowerASCII(s[i]) != lowerASCII(prefix[i]) {
			return false
		}
	}
	return true
}

// SplitFields splits a line on commas and trims every field.
func SplitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = Trim(p)
	}
	return parts
}
