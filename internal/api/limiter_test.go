package api

import "testing"

func TestKeyLimiterNilAllowsAll(t *testing.T) {
	var l *KeyLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("any") {
			t.Fatal("nil limiter must admit everything")
		}
	}
}

func TestKeyLimiterBurst(t *testing.T) {
	l := NewKeyLimiter(1, 2)

	if !l.Allow("key-a") || !l.Allow("key-a") {
		t.Fatal("burst of 2 should admit two immediate requests")
	}
	if l.Allow("key-a") {
		t.Error("third immediate request should be rejected")
	}

	// Other keys have their own bucket.
	if !l.Allow("key-b") {
		t.Error("independent key should be admitted")
	}
}
