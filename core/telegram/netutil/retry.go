// Package netutil classifies transport failures for the API client's retry
// loop.
package netutil

import (
	"errors"
	"net"
	"net/url"
)

// Retryable reports whether err is a transient network failure worth
// another attempt: a timeout anywhere in the chain, or a failure to dial.
// Protocol and application errors are final.
func Retryable(err error) bool {
	for err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return true
		}

		var netErr net.Error
		if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
			return true
		}

		var urlErr *url.Error
		if !errors.As(err, &urlErr) || urlErr.Err == nil || errors.Is(urlErr.Err, err) {
			return false
		}
		err = urlErr.Err
	}
	return false
}
