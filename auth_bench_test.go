package zikauth

import (
	"context"
	"testing"
)

func BenchmarkAuthenticateWeb(b *testing.B) {
	env := newTestEnv(b)
	tok := env.login(b, "ada@example.com")
	r := webRequest(tok)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authenticate(r); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateMobile(b *testing.B) {
	env := newTestEnv(b)
	tok := env.login(b, "bo@example.com")
	r := mobileRequest(tok)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authenticate(r); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	env := newTestEnv(b)
	tok := env.login(b, "ada@example.com")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		auth, err := env.engine.Authenticate(webRequest(tok))
		if err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
		tok, err = env.engine.Refresh(context.Background(), auth, RefreshRequest{
			RefreshToken: tok.RefreshToken,
			SessionID:    tok.SessionID,
		})
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkLogin(b *testing.B) {
	env := newTestEnv(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Login(context.Background(), "ada@example.com", testPassword); err != nil {
			b.Fatalf("login failed: %v", err)
		}
	}
}
