package s3

import (
	"context"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/2026-10-15_dream.json", want: "owner/2026-10-15_dream.json"},
		{name: "simple prefix", prefix: "root", key: "owner/2026-10-15_dream.json", want: "root/owner/2026-10-15_dream.json"},
		{name: "prefix trailing slash", prefix: "root/", key: "owner/2026-10-15_dream.json", want: "root/owner/2026-10-15_dream.json"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/owner/2026-10-15_dream.json", want: "root/owner/2026-10-15_dream.json"},
		{name: "nested prefix", prefix: "root/sub", key: "owner/2026-10-15_dream.json", want: "root/sub/owner/2026-10-15_dream.json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), "eu-north-1", "", "dreams", ""); err == nil {
		t.Fatalf("expected missing bucket to be rejected")
	}
}
