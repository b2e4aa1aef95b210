//go:build e2e

package e2e

import (
	"os"
	"strings"
	"testing"
)

// serviceURL points at a running `actiontag serve`; tests skip without it.
func serviceURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("ACTIONTAG_URL")
	if url == "" {
		t.Skip("ACTIONTAG_URL not set")
	}
	return strings.TrimRight(url, "/")
}

func kafkaBrokers(t *testing.T) []string {
	t.Helper()
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	return strings.Split(brokers, ",")
}
