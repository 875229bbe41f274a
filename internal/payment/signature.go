package payment

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

// ErrInvalidSignature is returned when a webhook notification fails
// authenticity verification. The notification must not be processed;
// this is a security boundary, not a retry condition.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// signatureTolerance bounds how stale a signed timestamp may be. Replays of
// an old capture outside this window are rejected even with a valid MAC.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks a notification's signature header against the
// shared secret. The header carries the signing timestamp and an
// HMAC-SHA256 of "<timestamp>.<payload>":
//
//	t=1712345678,v1=5257a869e7...
func VerifySignature(secret, payload []byte, header string, now time.Time) error {
	var ts int64
	var mac string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			ts = parsed
		case "v1":
			mac = v
		}
	}
	if ts == 0 || mac == "" {
		return fmt.Errorf("%w: missing timestamp or digest", ErrInvalidSignature)
	}

	signedAt := time.Unix(ts, 0)
	if now.Sub(signedAt) > signatureTolerance || signedAt.Sub(now) > signatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := computeMAC(secret, ts, payload)
	given, err := hex.DecodeString(mac)
	if err != nil || !hmac.Equal(expected, given) {
		return fmt.Errorf("%w: digest mismatch", ErrInvalidSignature)
	}
	return nil
}

// SignPayload produces the signature header the processor would attach.
// Exported for the test harness and for local processor stubs.
func SignPayload(secret, payload []byte, now time.Time) string {
	ts := now.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(computeMAC(secret, ts, payload)))
}

func computeMAC(secret []byte, ts int64, payload []byte) []byte {
	h := hmac.New(sha256.New, secret)
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return h.Sum(nil)
}
