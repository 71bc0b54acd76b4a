package metrics

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type panicError struct{}

func (*panicError) Error() string { return "boom" }

func wrapURL(err error) error {
	return &url.Error{Op: "Get", URL: "http://localhost:8888/shop-item", Err: err}
}

func TestClassifyError(t *testing.T) {
	dial := func(err error) error {
		return wrapURL(&net.OpError{Op: "dial", Net: "tcp", Err: err})
	}

	tests := []struct {
		name   string
		status int
		err    error
		want   string
	}{
		{"no error", 0, nil, ""},
		{"http status", 503, errors.New("HTTP 503"), KindHTTP},
		{"http status without error", 404, nil, KindHTTP},
		{"deadline", 0, wrapURL(context.DeadlineExceeded), KindTimeout},
		{"net timeout", 0, dial(timeoutError{}), KindTimeout},
		{"canceled", 0, wrapURL(context.Canceled), KindCanceled},
		{"dns", 0, dial(&net.DNSError{Err: "no such host", Name: "nonexistent.invalid", IsNotFound: true}), KindDNS},
		{"refused", 0, dial(os.NewSyscallError("connect", syscall.ECONNREFUSED)), KindConnectionRefused},
		{"reset", 0, wrapURL(&net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}), KindConnectionReset},
		{"tls", 0, wrapURL(x509.UnknownAuthorityError{}), KindTLS},
		{"other network", 0, dial(errors.New("network is down")), KindNetwork},
		{"url only", 0, wrapURL(errors.New("unsupported protocol scheme")), KindRequest},
		{"plain", 0, errors.New("bad method"), KindRequest},
		{"wrapped plain", 0, fmt.Errorf("send: %w", errors.New("bad method")), KindRequest},
		{"typed", 0, &panicError{}, "Panic Error (metrics)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.status, tt.err); got != tt.want {
				t.Errorf("ClassifyError(%d, %v) = %q, want %q", tt.status, tt.err, got, tt.want)
			}
		})
	}
}

func TestNewOutcomeClassifiesTransportErrors(t *testing.T) {
	refused := wrapURL(&net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)})
	o := outcomeAfter(3, 0, refused)
	if o.ErrorKind != KindConnectionRefused {
		t.Fatalf("ErrorKind = %q, want %q", o.ErrorKind, KindConnectionRefused)
	}
	if o.Succeeded() {
		t.Fatal("transport failure counted as success")
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"*runner.PanicError", "Panic Error (runner)"},
		{"*tls.RecordHeaderError", "Record Header Error (tls)"},
		{"*github.com/acme/client.GoAwayError", "Go Away Error (client)"},
		{"main.customError", "Custom Error"},
		{"*errors.errorString", KindRequest},
		{"", "Unknown error"},
	}
	for _, tt := range tests {
		if got := FriendlyErrorName(tt.in); got != tt.want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
