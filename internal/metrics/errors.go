package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"unicode"
)

// Error kinds used in the report's error breakdown.
const (
	KindTimeout           = "Timeout"
	KindCanceled          = "Request canceled"
	KindDNS               = "DNS lookup failed"
	KindConnectionRefused = "Connection refused"
	KindConnectionReset   = "Connection reset"
	KindTLS               = "TLS error"
	KindNetwork           = "Network error"
	KindHTTP              = "HTTP error response"
	KindRequest           = "Request error"
)

// ClassifyError returns the report label for a failed request. statusCode is
// the response status, or 0 when no response arrived. Transport errors are
// unwrapped, so a refused dial is not reported as the *url.Error that
// http.Client wraps it in.
func ClassifyError(statusCode int, err error) string {
	if statusCode >= 400 {
		return KindHTTP
	}
	if err == nil {
		return ""
	}

	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		opErr   *net.OpError
		urlErr  *url.Error
		certErr *tls.CertificateVerificationError
		authErr x509.UnknownAuthorityError
		recErr  tls.RecordHeaderError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &dnsErr):
		return KindDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return KindConnectionReset
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &recErr):
		return KindTLS
	case errors.As(err, &opErr):
		return KindNetwork
	case errors.As(err, &urlErr):
		return KindRequest
	}
	return FriendlyErrorName(fmt.Sprintf("%T", err))
}

// plainErrorTypes carry no information beyond their message.
var plainErrorTypes = map[string]bool{
	"*errors.errorString": true,
	"*fmt.wrapError":      true,
	"*fmt.wrapErrors":     true,
	"*errors.joinError":   true,
}

// FriendlyErrorName turns a Go error type name as rendered by %T into a
// label, e.g. "*runner.PanicError" becomes "Panic Error (runner)".
func FriendlyErrorName(typeName string) string {
	cleaned := strings.TrimSpace(typeName)
	if cleaned == "" {
		return "Unknown error"
	}
	if plainErrorTypes[cleaned] {
		return KindRequest
	}

	cleaned = strings.TrimPrefix(cleaned, "*")
	if idx := strings.LastIndex(cleaned, "/"); idx != -1 {
		cleaned = cleaned[idx+1:]
	}

	pkg := ""
	name := cleaned
	if idx := strings.Index(name, "."); idx != -1 {
		pkg = name[:idx]
		name = name[idx+1:]
	}

	pretty := humanizeTypeName(name)
	if pretty == "" {
		pretty = name
	}
	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", pretty, pkg)
	}
	return pretty
}

func humanizeTypeName(name string) string {
	var words []string
	var current []rune
	runes := []rune(name)

	flush := func() {
		if len(current) == 0 {
			return
		}
		word := string(current)
		if !isAllUpper(word) {
			word = capitalize(word)
		}
		words = append(words, word)
		current = current[:0]
	}

	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			switch {
			case unicode.IsUpper(r) && (unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower)):
				flush()
			case unicode.IsDigit(r) && !unicode.IsDigit(prev):
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	return strings.Join(words, " ")
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
