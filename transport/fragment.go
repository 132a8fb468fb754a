package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/scality/hdclient-go/cmn"
	"github.com/scality/hdclient-go/cmn/nlog"
)

// Client issues one fragment request and returns its classified outcome.
// Implementations must never block past TimeoutMs once set.
type Client interface {
	Do(r *FragmentRequest) (*FragmentReply, error)
}

// FastHTTPClient is the production Client, backed by valyala/fasthttp.
type FastHTTPClient struct {
	client *fasthttp.Client
}

var _ Client = (*FastHTTPClient)(nil)

func NewFastHTTPClient() *FastHTTPClient {
	return &FastHTTPClient{
		client: &fasthttp.Client{
			StreamResponseBody:            true,
			NoDefaultUserAgentHeader:      true,
			DisableHeaderNamesNormalizing: true,
		},
	}
}

func (c *FastHTTPClient) Do(r *FragmentRequest) (*FragmentReply, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()

	url := fmt.Sprintf("http://%s:%d/%s", r.Host, r.Port, r.Key)
	req.SetRequestURI(url)
	req.Header.SetMethod(string(r.Method))

	switch r.Method {
	case MethodPUT:
		req.Header.SetContentType(r.ContentType)
		req.Header.SetContentLength(int(r.ContentLength))
		req.SetBodyStream(r.Body, int(r.ContentLength))
	case MethodGET:
		if r.RangeHeader != "" {
			req.Header.Set("Range", r.RangeHeader)
		}
	}

	var err error
	if r.TimeoutMs > 0 {
		err = c.client.DoTimeout(req, resp, time.Duration(r.TimeoutMs)*time.Millisecond)
	} else {
		err = c.client.Do(req, resp)
	}

	status := resp.StatusCode()
	if err != nil {
		fasthttp.ReleaseResponse(resp)
		if err == fasthttp.ErrTimeout || err == fasthttp.ErrDialTimeout {
			nlog.Warningln("fragment request timed out:", r.Method, url)
			return nil, cmn.NewErrTimeout(string(r.Method))
		}
		return nil, classify(r.Method, err, status)
	}

	if status/100 != 2 {
		fasthttp.ReleaseResponse(resp)
		if status == 404 && r.Method == MethodDELETE {
			return &FragmentReply{StatusCode: status}, nil
		}
		return nil, cmn.NewErrHTTP(status)
	}

	reply := &FragmentReply{StatusCode: status}
	if r.Method == MethodGET {
		reply.Body = &responseBody{resp: resp, r: resp.BodyStream()}
	} else {
		fasthttp.ReleaseResponse(resp)
	}
	return reply, nil
}

// responseBody ties a streamed fasthttp response body to eventual Response
// release: the pool entry must not be recycled until the caller is done
// reading.
type responseBody struct {
	resp *fasthttp.Response
	r    io.Reader
}

func (b *responseBody) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *responseBody) Close() error {
	fasthttp.ReleaseResponse(b.resp)
	return nil
}
