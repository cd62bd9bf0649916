package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes one API call. Body is marshaled as JSON unless it is a
// []byte or string.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// attempt carries the retry state of a request through the gateway.
type attempt struct {
	req     Request
	token   string
	retried bool
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func checkStatus(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
}
