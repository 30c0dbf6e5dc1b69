package redis

import (
	"testing"
	"time"

	rds "github.com/redis/go-redis/v9"
)

func TestKeyLayout(t *testing.T) {
	client := rds.NewClient(&rds.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	base := NewStore(client, time.Minute, "ateam")
	ns := base.Namespace("researcher")

	if got := ns.key("notes"); got != "ateam:researcher:notes" {
		t.Fatalf("key = %q", got)
	}
	if got := ns.pattern(); got != "ateam:researcher:*" {
		t.Fatalf("pattern = %q", got)
	}

	bare := NewStore(client, 0, "")
	if bare.key("x") != "x" || bare.pattern() != "*" {
		t.Fatalf("unprefixed store should use raw keys")
	}
}
