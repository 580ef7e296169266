package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// RedactOptions adds header and query names whose values are always masked.
// Matching is case-insensitive.
type RedactOptions struct {
	MaskHeaders []string
	MaskQuery   []string
}

// Redactor scrubs customer identifiers and provider secrets from log fields.
//
// Fixed rules, applied in this order:
//   - Telegram bot tokens (digits ":" 30+ url-safe chars)
//   - e-mail addresses
//   - phone numbers and WhatsApp ids (8 to 15 digits, optional +)
//
// Authorization, Cookie, Set-Cookie, X-Telegram-Bot-Api-Secret-Token and
// X-Hub-Signature-256 headers and the hub.verify_token query parameter are
// masked entirely.
type Redactor struct {
	headers map[string]struct{}
	query   map[string]struct{}
}

var (
	botTokenRE = regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`)
	emailRE    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE    = regexp.MustCompile(`\+?\b\d{8,15}\b`)
)

// NewRedactor merges opts with the built-in masks.
func NewRedactor(opts RedactOptions) *Redactor {
	r := &Redactor{
		headers: set("authorization", "cookie", "set-cookie", "x-telegram-bot-api-secret-token", "x-hub-signature-256"),
		query:   set("hub.verify_token"),
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.headers[h] = struct{}{}
		}
	}
	for _, q := range opts.MaskQuery {
		if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
			r.query[q] = struct{}{}
		}
	}
	return r
}

// String applies the pattern rules to s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = botTokenRE.ReplaceAllString(s, "[REDACTED:token]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Query masks listed parameters and scrubs the remaining values. An
// unparsable query is scrubbed as a plain string.
func (r *Redactor) Query(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return r.String(raw)
	}
	for k, vv := range vals {
		_, mask := r.query[strings.ToLower(k)]
		for i := range vv {
			if mask {
				vv[i] = "[REDACTED]"
			} else {
				vv[i] = r.String(vv[i])
			}
		}
	}
	// Encode escapes brackets; decode for readable logs.
	out, err := url.QueryUnescape(vals.Encode())
	if err != nil {
		return vals.Encode()
	}
	return out
}

// Headers returns a flattened, scrubbed copy of h.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
