package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JovanVeljanoski/ateam/tools"
)

func TestRequestToolGetAndPost(t *testing.T) {
	srv := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		switch r.Method {
		case stdhttp.MethodGet:
			w.WriteHeader(200)
			_, _ = w.Write([]byte("hello " + r.Header.Get("X-Trace")))
		case stdhttp.MethodPost:
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(400)
				return
			}
			w.WriteHeader(201)
			_, _ = w.Write([]byte("created"))
		default:
			w.WriteHeader(405)
		}
	}))
	defer srv.Close()

	tool := NewRequestTool(0)
	if tool.Name() != "http_request" {
		t.Fatalf("name = %s", tool.Name())
	}
	ctx := context.Background()
	out, err := tool.Execute(ctx, tools.Call{Arguments: `{"method":"GET","url":"` + srv.URL + `","headers":{"X-Trace":"t1"}}`})
	if err != nil || !strings.Contains(out, "200") || !strings.Contains(out, "hello t1") {
		t.Fatalf("get failed: %v %q", err, out)
	}
	out, err = tool.Execute(ctx, tools.Call{Arguments: `{"method":"POST","url":"` + srv.URL + `","body":"{\"a\":1}"}`})
	if err != nil || !strings.Contains(out, "201") {
		t.Fatalf("post failed: %v %q", err, out)
	}
}

func TestRequestToolBadInput(t *testing.T) {
	tool := NewRequestTool(0)
	for _, args := range []string{
		`{"method":"GET"}`,
		`{"method":"BREW","url":"http://example.com"}`,
		`{"method":"GET","url":"not a url"}`,
		`not json`,
	} {
		if _, err := tool.Execute(context.Background(), tools.Call{Arguments: args}); err == nil {
			t.Fatalf("expected input error for %s", args)
		}
	}
}
