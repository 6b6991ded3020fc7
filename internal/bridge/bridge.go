// Package bridge implements the pure H3->H2 request mapping: turning a
// decoded HTTP/3 request envelope into a net/http request aimed at a
// specific backend.
package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
)

// ErrorKind classifies why Build failed, mirroring the original source's
// BridgeError enum.
type ErrorKind int

const (
	InvalidMethod ErrorKind = iota
	InvalidURI
	InvalidHeader
	BuildFailed
)

// Error wraps a bridging failure with its classification, so callers (the
// dispatcher in internal/edge) can decide on the right status code without
// string-matching.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Header is a single header as carried on the HTTP/3 side: raw name/value
// bytes, in arrival order, possibly including pseudo-headers.
type Header struct {
	Name  string
	Value string
}

// Build constructs an HTTP/2-bound *http.Request from a decoded HTTP/3
// request. It is a pure function: identical inputs always produce a
// byte-equal method/URI/body/non-pseudo-header result.
func Build(backend, method, path string, headers []Header, body []byte) (*http.Request, error) {
	if !isValidMethodToken(method) {
		return nil, newError(InvalidMethod, "invalid method %q", method)
	}

	requestPath := path
	if requestPath == "" {
		requestPath = "/"
	}

	url := "http://" + backend + requestPath
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(InvalidURI, "invalid uri for backend %q path %q: %v", backend, path, err)
	}

	sawHost := false
	for _, h := range headers {
		if len(h.Name) > 0 && h.Name[0] == ':' {
			continue // pseudo-headers are dropped
		}

		canonical := textproto.CanonicalMIMEHeaderKey(h.Name)
		if !validHeaderName(canonical) {
			return nil, newError(InvalidHeader, "invalid header name %q", h.Name)
		}
		if !validHeaderValue(h.Value) {
			return nil, newError(InvalidHeader, "invalid header value for %q", h.Name)
		}

		if canonical == "Host" {
			sawHost = true
			req.Host = h.Value
			continue
		}
		if canonical == "Content-Length" {
			continue // inbound Content-Length is always dropped and recomputed
		}

		req.Header.Add(canonical, h.Value)
	}

	if !sawHost {
		req.Host = backend
	}

	if len(body) > 0 {
		req.ContentLength = int64(len(body))
		req.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	} else {
		req.ContentLength = 0
		req.Body = io.NopCloser(bytes.NewReader(nil))
	}

	return req, nil
}

func isValidMethodToken(method string) bool {
	if method == "" {
		return false
	}
	for _, r := range method {
		if r <= 0x20 || r == 0x7f || r > 0x7e {
			return false
		}
		switch r {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

func validHeaderValue(value string) bool {
	for _, r := range value {
		if r == '\r' || r == '\n' || r == 0 {
			return false
		}
	}
	return true
}

// IsBridgeError reports whether err is a bridge Error, and returns it.
func IsBridgeError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
