package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowWithinBurst(t *testing.T) {
	l := NewLimiter(1, 2)

	if !l.Allow("https://example.com/a") {
		t.Error("first request should be allowed")
	}
	if !l.Allow("https://example.com/b") {
		t.Error("second request within burst should be allowed")
	}
	if l.Allow("https://example.com/c") {
		t.Error("third request should exceed the burst")
	}
}

func TestLimiter_DomainsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("https://one.example.com/a") {
		t.Fatal("first domain should be allowed")
	}
	if !l.Allow("https://two.example.com/a") {
		t.Error("a different domain must have its own budget")
	}
	if l.Allow("https://one.example.com/b") {
		t.Error("first domain's budget should be spent")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetDomainRate("slow.example.com", 0.001, 1)

	if !l.Allow("https://slow.example.com/a") {
		t.Fatal("burst of one should be allowed")
	}
	if l.Allow("https://slow.example.com/b") {
		t.Error("overridden rate should deny the second request")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow("https://example.com/a") // spend the burst

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "https://example.com/b"); err == nil {
		t.Error("Wait should fail when the context expires first")
	}
}

func TestLimiter_WaitWithDelayHonorsContext(t *testing.T) {
	l := NewLimiter(100, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.WaitWithDelay(ctx, "https://example.com/a", time.Second)
	if err == nil {
		t.Error("crawl delay longer than the context deadline should fail")
	}
}

func TestLimiter_RejectsUnparseableURL(t *testing.T) {
	l := NewLimiter(1, 1)
	if l.Allow("://notaurl") {
		t.Error("malformed URL should be denied")
	}
}
