package goCred

import (
	"net/url"
	"strings"
)

const resetPath = "/reset-password"

// BuildResetURL returns {baseURL}/reset-password?code=...&redirect=...
// The redirect parameter is omitted when empty. Only relative redirects are
// kept so a reset link cannot forward the user off-site.
func BuildResetURL(baseURL, code, redirect string) string {
	q := url.Values{}
	q.Set("code", code)
	if r := strings.TrimSpace(redirect); r != "" && isRelativePath(r) {
		q.Set("redirect", r)
	}
	return strings.TrimRight(baseURL, "/") + resetPath + "?" + q.Encode()
}

func isRelativePath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
