package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestNormalizeURLWithoutScheme(t *testing.T) {
	_, domain, err := NormalizeURL("example.org/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.org" {
		t.Fatalf("unexpected domain: %s", domain)
	}
}
