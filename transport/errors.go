package transport

import (
	"context"
	"errors"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/cmn/cos"
)

// classify turns a raw transport outcome into the taxonomy from spec §4.D:
// TimeoutError for unreachable endpoints or deadline exceeded, GET/PUT/
// DELETEError for other transport-level failures, HTTPError otherwise.
func classify(method Method, err error, statusCode int) error {
	if err == nil {
		return cmn.NewErrHTTP(statusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) || cos.IsUnreachable(err, statusCode) {
		return cmn.NewErrTimeout(string(method))
	}
	desc := err.Error()
	switch method {
	case MethodGET:
		return cmn.NewErrGET(desc)
	case MethodPUT:
		return cmn.NewErrPUT(desc)
	default:
		return cmn.NewErrDELETE(desc)
	}
}
