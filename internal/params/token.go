package params

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"

	"image-resize-ai/internal/mediaerr"
)

// Signer produces and checks keyed MACs over opaque tokens.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer for key (1 to 64 bytes).
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("signing key must be 1-%d bytes, got %d", blake2b.Size, len(key))
	}
	return &Signer{key: append([]byte(nil), key...)}, nil
}

// Sign returns the base64url MAC of payload.
func (s *Signer) Sign(payload string) string {
	h, _ := blake2b.New256(s.key)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Verify reports whether mac is the MAC of payload.
func (s *Signer) Verify(payload, mac string) bool {
	return subtle.ConstantTimeCompare([]byte(s.Sign(payload)), []byte(mac)) == 1
}

// EncodeToken returns the opaque form of p: base64url of the canonical
// query, followed by ".<mac>" when signer is non-nil.
func EncodeToken(p Params, signer *Signer) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(p.Canonical()))
	if signer == nil {
		return payload
	}
	return payload + "." + signer.Sign(payload)
}

// DecodeToken parses an opaque token. signed is true only when the token
// carries a MAC that verifies against signer.
func DecodeToken(token string, signer *Signer, opts ParseOptions) (p Params, signed bool, err error) {
	payload, mac, hasMAC := strings.Cut(token, ".")
	if hasMAC {
		if signer == nil || !signer.Verify(payload, mac) {
			return Params{}, false, mediaerr.New(mediaerr.ErrInvalidParams, "decode token", "token signature does not verify", nil)
		}
		signed = true
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Params{}, false, mediaerr.New(mediaerr.ErrInvalidParams, "decode token", "malformed token", err)
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return Params{}, false, mediaerr.New(mediaerr.ErrInvalidParams, "decode token", "malformed token payload", err)
	}

	p, err = Parse(values, opts)
	if err != nil {
		return Params{}, false, err
	}
	return p, signed, nil
}
