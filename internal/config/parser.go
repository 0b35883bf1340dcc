package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// Bare number, interpreted as seconds
	secondsPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)$`)
	schemePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// ParseDuration parses a duration string
// Supported formats:
//   - "3s", "1m30s", "3000ms" - Go duration syntax
//   - "3", "1.5" - seconds
//   - "" - zero (use default)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, nil
	}

	if matches := secondsPattern.FindStringSubmatch(s); matches != nil {
		secs, _ := strconv.ParseFloat(matches[1], 64)
		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	return d, nil
}

// NormalizeBaseURL accepts "192.168.4.1", "http://192.168.4.1/" or
// "http://host:port" and returns a URL with a scheme and no trailing slash
func NormalizeBaseURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("base URL is empty")
	}

	// Bare host defaults to http, the device serves no TLS
	if !schemePattern.MatchString(s) {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported base URL scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base URL has no host: %s", s)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("base URL must not have a query or fragment: %s", s)
	}

	return strings.TrimRight(u.String(), "/"), nil
}
