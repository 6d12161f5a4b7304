package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://abc.r2.cloudflarestorage.com/bucket", "abc.r2.cloudflarestorage.com"},
		{"http://localhost:9000", "localhost:9000"},
		{"s3.amazonaws.com/", "s3.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.in))
		})
	}
}

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://x.R2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType("s3.us-east-1.amazonaws.com"))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com", publicBaseURL("https://cdn.example.com/", "http://localhost:9000", "plans"))
	assert.Equal(t, "http://localhost:9000/plans", publicBaseURL("", "http://localhost:9000", "plans"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "recipes/abc-123.png", RecipeImageKey("abc-123", ""))
	assert.Equal(t, "recipes/abc.webp", RecipeImageKey("abc", ".WEBP"))
	assert.Equal(t, "recipes/etc_passwd.jpg", RecipeImageKey("../etc/passwd", "jpg"))

	at := time.Date(2026, 2, 3, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "plans/2026-02/pay_123.xlsx", PlanDocumentKey("pay_123", at))
	assert.Equal(t, "plans/2026-02/unnamed.xlsx", PlanDocumentKey("  ", at))
}
