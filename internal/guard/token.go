package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CookieName carries the signed loop guard state between requests.
const CookieName = "rg_redirect_guard"

var ErrInvalidToken = errors.New("guard: invalid token")

type tokenPayload struct {
	T    int64  `json:"t"`
	N    int    `json:"n"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// TokenCodec signs and verifies the guard cookie value. The format is
// base64url(payload) + "." + base64url(HMAC-SHA256(payload)), with the window
// start as unix milliseconds. Tampered or malformed tokens decode to
// ErrInvalidToken; callers treat that the same as no cookie at all.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret}
}

func (c *TokenCodec) Encode(st State) (string, error) {
	payload, err := json.Marshal(tokenPayload{
		T:    st.WindowStart.UnixMilli(),
		N:    st.Count,
		From: st.LastFrom,
		To:   st.LastTo,
	})
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + c.sign(body), nil
}

func (c *TokenCodec) Decode(token string) (State, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return State{}, ErrInvalidToken
	}
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return State{}, ErrInvalidToken
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	if !hmac.Equal(mac.Sum(nil), want) {
		return State{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return State{}, ErrInvalidToken
	}
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return State{}, ErrInvalidToken
	}
	if p.T <= 0 || p.N < 0 {
		return State{}, ErrInvalidToken
	}
	return State{
		WindowStart: time.UnixMilli(p.T),
		Count:       p.N,
		LastFrom:    p.From,
		LastTo:      p.To,
	}, nil
}

func (c *TokenCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
