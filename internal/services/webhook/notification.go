package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "casamento/internal/errors"
)

const topicPayment = "payment"

type parsedNotification struct {
	PaymentID string
	// Fallbacks are the other distinct candidates, in order. The top-level
	// id of a v2 webhook is the notification's own id, so these are tried
	// when the gateway does not know PaymentID.
	Fallbacks []string
	Topic     string
}

// parseNotification extracts the payment id from a notification. The first
// non-empty candidate wins: body id, body data.id, body resource, query
// data.id, query id.
func parseNotification(n Notification) (parsedNotification, error) {
	var out parsedNotification

	body := map[string]interface{}{}
	trimmed := bytes.TrimSpace(n.Body)
	if len(trimmed) > 0 {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			if n.Query["data.id"] == "" && n.Query["id"] == "" {
				return out, appErrors.ErrMalformedNotification.WithDetail(err.Error())
			}
			body = map[string]interface{}{}
		}
	}

	out.Topic = firstNonEmpty(
		scalar(body["type"]),
		scalar(body["topic"]),
		n.Query["type"],
		n.Query["topic"],
	)

	var dataID, resourceID string
	if data, ok := body["data"].(map[string]interface{}); ok {
		dataID = scalar(data["id"])
	}
	switch res := body["resource"].(type) {
	case map[string]interface{}:
		resourceID = scalar(res["id"])
	case string:
		resourceID = lastSegment(res)
	}

	candidates := distinct(
		scalar(body["id"]),
		dataID,
		resourceID,
		n.Query["data.id"],
		n.Query["id"],
	)
	if len(candidates) > 0 {
		out.PaymentID = candidates[0]
		out.Fallbacks = candidates[1:]
	}
	return out, nil
}

func distinct(values ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ignored reports whether the notification is about something other than a
// payment.
func (p parsedNotification) ignored() bool {
	return p.Topic != "" && p.Topic != topicPayment
}

func scalar(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}

func lastSegment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// VerifySignature checks an x-signature header of the form "ts=...,v1=..."
// against the HMAC-SHA256 of the notification manifest, then rejects ts
// values further than tolerance from now. A zero tolerance skips the
// freshness check.
func VerifySignature(secret, header, requestID, dataID string, now time.Time, tolerance time.Duration) error {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return appErrors.ErrInvalidSignature.WithDetail("malformed x-signature header")
	}

	expected, err := hex.DecodeString(v1)
	if err != nil {
		return appErrors.ErrInvalidSignature.WithDetail("malformed x-signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	if !hmac.Equal(mac.Sum(nil), expected) {
		return appErrors.ErrInvalidSignature
	}

	if tolerance <= 0 {
		return nil
	}
	signedAt, err := signatureTime(ts)
	if err != nil {
		return appErrors.ErrInvalidSignature.WithDetail("malformed signature timestamp")
	}
	if d := now.Sub(signedAt); d > tolerance || d < -tolerance {
		return appErrors.ErrInvalidSignature.WithDetail("signature timestamp outside tolerance")
	}
	return nil
}

// signatureTime reads ts as unix seconds, or milliseconds when it is too
// large to be seconds.
func signatureTime(ts string) (time.Time, error) {
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n > 1e11 {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}

// Manifest builds the signed template. Empty parts are left out.
func Manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%s;", ts)
	return b.String()
}
