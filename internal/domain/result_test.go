package domain

import (
	"testing"
	"time"
)

func TestParseRetryDelay(t *testing.T) {
	cases := []struct {
		message string
		want    time.Duration
		found   bool
	}{
		{"You have exceeded your GPU quota. Try again in 00:03:12", 3*time.Minute + 12*time.Second, true},
		{"Try again in 1:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"quota exceeded, no hint", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseRetryDelay(tc.message)
		if ok != tc.found {
			t.Fatalf("%q: found = %v, want %v", tc.message, ok, tc.found)
		}
		if got != tc.want {
			t.Fatalf("%q: delay = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestFormatRetryDelay(t *testing.T) {
	if got := FormatRetryDelay(3*time.Minute + 12*time.Second); got != "00:03:12" {
		t.Fatalf("formatted = %q, want 00:03:12", got)
	}
	if got := FormatRetryDelay(-time.Minute); got != "00:00:00" {
		t.Fatalf("negative delay formatted = %q, want 00:00:00", got)
	}
}

func TestConversionResultOK(t *testing.T) {
	if !Succeeded("https://cdn/x.glb", nil).OK() {
		t.Fatalf("success result should be OK")
	}
	if Failed(ErrorProvider, "boom").OK() {
		t.Fatalf("failed result should not be OK")
	}
	if (ConversionResult{}).OK() {
		t.Fatalf("empty result should not be OK")
	}
}

func TestFailureError(t *testing.T) {
	f := &Failure{Kind: ErrorQuotaExceeded, Message: "slow down"}
	if f.Error() != "quota_exceeded: slow down" {
		t.Fatalf("error = %q", f.Error())
	}
}
