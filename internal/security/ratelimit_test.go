package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	clock := time.Now()
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request in window should be denied")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own budget")
	}

	clock = clock.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("budget should refill after the window")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "2.2.2.2"}, remote: "10.0.0.2:1234", want: "2.2.2.2"},
		{name: "remote addr", remote: "3.3.3.3:5678", want: "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
