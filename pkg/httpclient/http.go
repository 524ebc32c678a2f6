package httpclient

import (
	"context"
	"net/http"
)

// Response is what a collaborator call returned on the wire. The result
// argument of Get/Post is only decoded for 2xx responses.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Snippet returns at most n bytes of the body for log fields.
func (r *Response) Snippet(n int) string {
	if len(r.Body) <= n {
		return string(r.Body)
	}
	return string(r.Body[:n]) + "..."
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*Response, error)
	Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*Response, error)
}
