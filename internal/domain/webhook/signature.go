package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature is returned when a delivery's signature is missing,
// malformed, stale, or does not match the body.
var ErrInvalidSignature = errors.New("invalid signature")

// Verifier checks HMAC-SHA256 webhook signatures.
//
// Two header formats are accepted:
//
//	t=<unix seconds>,v0=<hex hmac of "<t>.<body>">
//	<hex hmac of body>
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier. An empty secret rejects every delivery.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// Verify returns nil when header is a valid signature of body.
func (v *Verifier) Verify(header string, body []byte) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	ts, sig, timestamped := parseHeader(header)
	if !timestamped {
		return v.compare(sig, body)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(unix, 0))
		if age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}
	return v.compare(sig, signedPayload(ts, body))
}

func (v *Verifier) compare(sig string, payload []byte) error {
	got, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}
	if !hmac.Equal(got, v.mac(payload)) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, v.secret)
	m.Write(payload)
	return m.Sum(nil)
}

// Sign returns a timestamped signature header for body.
func Sign(secret string, body []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(signedPayload(ts, body))
	return "t=" + ts + ",v0=" + hex.EncodeToString(m.Sum(nil))
}

// SignLegacy returns the bare hex signature of body.
func SignLegacy(secret string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func signedPayload(ts string, body []byte) []byte {
	out := make([]byte, 0, len(ts)+1+len(body))
	out = append(out, ts...)
	out = append(out, '.')
	return append(out, body...)
}

// parseHeader splits a timestamped header. For a bare digest it returns the
// digest with timestamped false.
func parseHeader(header string) (ts, sig string, timestamped bool) {
	if !strings.Contains(header, "=") {
		return "", header, false
	}
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v0":
			sig = val
		case "sha256":
			return "", val, false
		}
	}
	return ts, sig, true
}
