package reliability

import (
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 501} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = true, want false", code)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	base, cap := 200*time.Millisecond, time.Second

	if d := ExponentialBackoff(0, base, cap); d != base {
		t.Fatalf("attempt 0 = %v, want %v", d, base)
	}
	if d := ExponentialBackoff(1, base, cap); d != 400*time.Millisecond {
		t.Fatalf("attempt 1 = %v", d)
	}
	if d := ExponentialBackoff(2, base, cap); d != 800*time.Millisecond {
		t.Fatalf("attempt 2 = %v", d)
	}
	if d := ExponentialBackoff(10, base, cap); d != cap {
		t.Fatalf("attempt 10 = %v, want cap %v", d, cap)
	}
}
