package util

import "testing"

func TestHashUserKey(t *testing.T) {
	id := "guest:12345"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	if HashUserKey("guest:12345") == HashUserKey("guest:12346") {
		t.Fatalf("distinct ids must not collide trivially")
	}
}

func TestSanitizeFileName(t *testing.T) {
	got, err := SanitizeFileName("My Plan (v2).pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got == "" {
		t.Fatal("expected non-empty sanitized name")
	}

	if _, err := SanitizeFileName("../../etc/passwd"); err == nil {
		t.Fatal("expected path traversal rejection")
	}
}
