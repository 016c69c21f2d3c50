package crawl

import (
	"bytes"
	"net/http"
)

// blockReason names the anti-bot wall a response hit, or "" when none.
func blockReason(resp *http.Response, body []byte) string {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("Server") == "cloudflare" {
			return "cloudflare"
		}
	}

	lower := bytes.ToLower(body)
	switch {
	case bytes.Contains(lower, []byte("checking your browser")),
		bytes.Contains(lower, []byte("cf-browser-verification")):
		return "cloudflare"
	case bytes.Contains(lower, []byte("g-recaptcha")),
		bytes.Contains(lower, []byte("h-captcha")),
		bytes.Contains(lower, []byte("captcha-container")):
		return "captcha"
	}
	return ""
}
