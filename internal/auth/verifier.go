// Package auth provides JWT verification helpers.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Roles understood by the service.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

var (
	ErrMalformed    = errors.New("invalid JWT")
	ErrBadSignature = errors.New("bad signature")
	ErrExpired      = errors.New("token expired")
)

// Verifier validates JWTs and extracts the role claim.
// Supports modes: none (no verification, every caller is admin) and hmac (HS256).
type Verifier struct {
	Mode         string
	HMACSecret   []byte
	RoleClaim    string
	SubjectClaim string
	now          func() time.Time
}

type Principal struct {
	Subject string
	Role    string
}

func NewVerifier(mode, secret, roleClaim string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "none"
	}
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &Verifier{
		Mode:         mode,
		HMACSecret:   []byte(secret),
		RoleClaim:    roleClaim,
		SubjectClaim: "sub",
		now:          time.Now,
	}
}

// Enabled reports whether requests must carry a valid token.
func (v *Verifier) Enabled() bool { return v.Mode != "none" }

func (v *Verifier) Verify(token string) (Principal, error) {
	if !v.Enabled() {
		return Principal{Role: RoleAdmin}, nil
	}
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, ErrMalformed
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, ErrMalformed
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, ErrMalformed
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, ErrMalformed
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, ErrMalformed
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, ErrMalformed
	}
	switch v.Mode {
	case "hmac":
		if alg, _ := hdr["alg"].(string); alg != "HS256" {
			return Principal{}, errors.New("unsupported alg for hmac")
		}
		if !hmac.Equal(v.mac(segs[0]+"."+segs[1]), sig) {
			return Principal{}, ErrBadSignature
		}
	default:
		return Principal{}, errors.New("unsupported auth mode")
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, ErrExpired
	}
	role, _ := claims[v.RoleClaim].(string)
	sub, _ := claims[v.SubjectClaim].(string)
	if role == "" {
		role = RoleClient
	}
	return Principal{Subject: sub, Role: strings.ToLower(role)}, nil
}

// Sign issues an HS256 token for claims. Used by tooling and tests.
func (v *Verifier) Sign(claims map[string]any) (string, error) {
	hdr, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	input := b64urlEncode(hdr) + "." + b64urlEncode(body)
	return input + "." + b64urlEncode(v.mac(input)), nil
}

func (v *Verifier) mac(input string) []byte {
	m := hmac.New(sha256.New, v.HMACSecret)
	m.Write([]byte(input))
	return m.Sum(nil)
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string          { return base64.RawURLEncoding.EncodeToString(b) }
