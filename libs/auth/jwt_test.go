package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func testClaims(role string) Claims {
	return Claims{
		Sub:        "user-1",
		BusinessID: "biz-1",
		Role:       role,
		Iat:        time.Now().Unix(),
		Exp:        time.Now().Add(time.Hour).Unix(),
	}
}

func TestHS256RoundTrip(t *testing.T) {
	token, err := SignHS256(testClaims("owner"), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256: %v", err)
	}
	if parsed.Sub != "user-1" || parsed.BusinessID != "biz-1" || parsed.Role != "owner" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := testClaims("staff")
	claims.Exp = time.Now().Add(-2 * expLeeway).Unix()
	token, err := SignHS256(claims, "s")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseHeader(t *testing.T) {
	token, err := SignHS256(testClaims("owner"), "s")
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}
	h, err := ParseHeader(token)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Alg != "HS256" || h.Typ != "JWT" {
		t.Fatalf("unexpected header: %+v", h)
	}

	for _, bad := range []string{"", "a.b", "not-a-token", "!!!.x.y"} {
		if _, err := ParseHeader(bad); err == nil {
			t.Fatalf("ParseHeader(%q): expected error", bad)
		}
	}
}

func TestRS256Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	token, err := signRS256(testClaims("admin"), key, "kid-1")
	if err != nil {
		t.Fatalf("signRS256: %v", err)
	}
	parsed, err := VerifyRS256(token, &key.PublicKey)
	if err != nil {
		t.Fatalf("VerifyRS256: %v", err)
	}
	if parsed.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	if _, err := VerifyRS256(token, &other.PublicKey); err == nil {
		t.Fatal("expected verification failure with wrong key")
	}
}

func signRS256(claims Claims, key *rsa.PrivateKey, kid string) (string, error) {
	headerJSON, err := json.Marshal(Header{Alg: "RS256", Typ: "JWT", Kid: kid})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	digest := sha256.Sum256([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
