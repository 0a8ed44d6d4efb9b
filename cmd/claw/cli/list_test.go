package cli

import (
	"testing"
)

func TestNormalizeListStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "all", want: ""},
		{in: "pending", want: "pending"},
		{in: "processing", want: "processing"},
		{in: "completed", want: "completed"},
		{in: "failed", want: "failed"},
		{in: "delivered", want: "delivered"},
		{in: "queued", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := normalizeListStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizeListStatus(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeListStatus(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeListStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("hello world", 8); got != "hello..." {
		t.Fatalf("truncate long = %q", got)
	}
	if got := truncate("hello", 3); got != "hel" {
		t.Fatalf("truncate tiny = %q", got)
	}
}

func TestOneLineCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	if got := oneLine("fix  the\nbug\tplease"); got != "fix the bug please" {
		t.Fatalf("oneLine = %q", got)
	}
}
