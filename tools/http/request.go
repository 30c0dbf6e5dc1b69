// Package http provides the http_request tool.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JovanVeljanoski/ateam/state"
	"github.com/JovanVeljanoski/ateam/tools"
)

// maxBody caps how much of a response is returned to the model.
const maxBody = 64 << 10

// RequestArgs are the arguments of the http_request tool.
type RequestArgs struct {
	Method  string            `json:"method" jsonschema:"enum=GET,enum=POST,enum=PUT,enum=PATCH,enum=DELETE,enum=HEAD" validate:"oneof=GET POST PUT PATCH DELETE HEAD"`
	URL     string            `json:"url" jsonschema:"description=Absolute http or https URL" validate:"required,http_url"`
	Body    string            `json:"body,omitempty" jsonschema:"description=Request body sent as JSON"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"description=Extra request headers"`
}

// RequestTool makes HTTP requests on behalf of the model.
type RequestTool struct {
	*tools.Func[RequestArgs]
	client *http.Client
}

// NewRequestTool returns the tool; a zero timeout means 30 seconds.
func NewRequestTool(timeout time.Duration) *RequestTool {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	t := &RequestTool{client: &http.Client{Timeout: timeout}}
	t.Func = tools.MustFunc("http_request", "Make an HTTP request to an external API and return the status and body.", t.do)
	return t
}

func (t *RequestTool) do(ctx context.Context, _ *state.Shared, args RequestArgs) (any, error) {
	var body io.Reader
	if args.Body != "" {
		body = strings.NewReader(args.Body)
	}
	req, err := http.NewRequestWithContext(ctx, args.Method, args.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if args.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "ateam/1.0")
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return fmt.Sprintf("Status: %s\nBody: %s", resp.Status, respBody), nil
}

var _ tools.Tool = (*RequestTool)(nil)
