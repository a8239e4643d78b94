package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("chat: %w", context.DeadlineExceeded)) {
		t.Fatal("wrapped deadline should be a timeout")
	}
	if IsTimeout(errors.New("connection refused")) {
		t.Fatal("plain error should not be a timeout")
	}
	if IsTimeout(nil) {
		t.Fatal("nil should not be a timeout")
	}
}
