package cache

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityPresent EntityType = "present"
	EntityPayment EntityType = "payment"
	EntityWebhook EntityType = "webhook"
	EntityQueue   EntityType = "queue"
)

type KeyType string

const (
	KeyID      KeyType = "id"
	KeyAll     KeyType = "all"
	KeyFinal   KeyType = "final"
	KeyLinkage KeyType = "linkage"
)

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	if value == nil {
		return fmt.Sprintf("%s:%s", entity, keyType)
	}
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// CatalogKey holds the cached present listing.
func CatalogKey() string {
	return GenerateKey(EntityPresent, KeyAll, nil)
}

// PresentKey holds one cached present.
func PresentKey(id string) string {
	return GenerateKey(EntityPresent, KeyID, id)
}

// WebhookFinalKey marks a payment whose final status was already applied.
func WebhookFinalKey(paymentID string) string {
	return GenerateKey(EntityWebhook, KeyFinal, paymentID)
}

// LinkageQueueKey is the list of charges whose store linkage failed.
func LinkageQueueKey() string {
	return GenerateKey(EntityQueue, KeyLinkage, nil)
}

// ParseKey extracts components from a cache key
func ParseKey(key string) map[string]string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return nil
	}

	result := map[string]string{
		"entity": parts[0],
		"type":   parts[1],
	}
	if len(parts) > 2 {
		result["value"] = strings.Join(parts[2:], ":")
	}
	return result
}
