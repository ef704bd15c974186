package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	appErrors "casamento/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		query     map[string]string
		wantID    string
		wantTopic string
	}{
		{"data id string", `{"type":"payment","data":{"id":"123"}}`, nil, "123", "payment"},
		{"data id number", `{"data":{"id":1234567890123}}`, nil, "1234567890123", ""},
		{"top-level id wins", `{"id":"9","data":{"id":"123"}}`, nil, "9", ""},
		{"resource object", `{"resource":{"id":77}}`, nil, "77", ""},
		{"resource url", `{"resource":"https://api.mercadolibre.com/collections/notifications/555","topic":"payment"}`, nil, "555", "payment"},
		{"query data.id", `{}`, map[string]string{"data.id": "42", "type": "payment"}, "42", "payment"},
		{"query id", ``, map[string]string{"id": "43", "topic": "payment"}, "43", "payment"},
		{"body beats query", `{"data":{"id":"1"}}`, map[string]string{"data.id": "2"}, "1", ""},
		{"invalid body with query id", `not json`, map[string]string{"id": "44"}, "44", ""},
		{"nothing", `{"action":"payment.updated"}`, nil, "", ""},
		{"empty body", ``, nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNotification(Notification{Body: []byte(tt.body), Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.PaymentID)
			assert.Equal(t, tt.wantTopic, got.Topic)
		})
	}
}

func TestParseNotificationFallbacks(t *testing.T) {
	got, err := parseNotification(Notification{
		Body:  []byte(`{"id":12345,"type":"payment","data":{"id":"P1"}}`),
		Query: map[string]string{"data.id": "P1", "id": "77"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", got.PaymentID)
	assert.Equal(t, []string{"P1", "77"}, got.Fallbacks)

	got, err = parseNotification(Notification{Body: []byte(`{"data":{"id":"P1"}}`)})
	require.NoError(t, err)
	assert.Empty(t, got.Fallbacks)
}

func TestParseNotificationMalformed(t *testing.T) {
	_, err := parseNotification(Notification{Body: []byte("id=123&topic=payment")})
	assert.ErrorIs(t, err, appErrors.ErrMalformedNotification)
}

func TestNotificationIgnored(t *testing.T) {
	assert.False(t, parsedNotification{Topic: ""}.ignored())
	assert.False(t, parsedNotification{Topic: "payment"}.ignored())
	assert.True(t, parsedNotification{Topic: "merchant_order"}.ignored())
}

func sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "s3cret"
	manifest := "id:123;request-id:req-1;ts:1704908010;"
	assert.Equal(t, manifest, Manifest("123", "req-1", "1704908010"))

	header := "ts=1704908010,v1=" + sign(secret, manifest)
	signedAt := time.Unix(1704908010, 0)
	assert.NoError(t, VerifySignature(secret, header, "req-1", "123", signedAt.Add(time.Minute), 5*time.Minute))

	assert.ErrorIs(t, VerifySignature(secret, header, "req-1", "124", signedAt, 0), appErrors.ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("other", header, "req-1", "123", signedAt, 0), appErrors.ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, "v1=abc", "req-1", "123", signedAt, 0), appErrors.ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, "ts=1,v1=zz", "req-1", "123", signedAt, 0), appErrors.ErrInvalidSignature)
}

func TestVerifySignatureFreshness(t *testing.T) {
	const secret = "s3cret"
	signedAt := time.Unix(1704908010, 0)
	header := "ts=1704908010,v1=" + sign(secret, Manifest("123", "req-1", "1704908010"))

	tests := []struct {
		name      string
		now       time.Time
		tolerance time.Duration
		wantErr   bool
	}{
		{"within tolerance", signedAt.Add(4 * time.Minute), 5 * time.Minute, false},
		{"replayed later", signedAt.Add(time.Hour), 5 * time.Minute, true},
		{"from the future", signedAt.Add(-10 * time.Minute), 5 * time.Minute, true},
		{"check disabled", signedAt.Add(24 * time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(secret, header, "req-1", "123", tt.now, tt.tolerance)
			if tt.wantErr {
				assert.ErrorIs(t, err, appErrors.ErrInvalidSignature)
				return
			}
			assert.NoError(t, err)
		})
	}

	msHeader := "ts=1704908010000,v1=" + sign(secret, Manifest("123", "req-1", "1704908010000"))
	assert.NoError(t, VerifySignature(secret, msHeader, "req-1", "123", signedAt.Add(time.Minute), 5*time.Minute))
}

func TestManifestSkipsMissingParts(t *testing.T) {
	assert.Equal(t, "ts:1;", Manifest("", "", "1"))
	assert.Equal(t, "id:abc;ts:1;", Manifest("ABC", "", "1"))
}
