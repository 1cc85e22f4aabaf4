package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	plain := []byte("PK\x03\x04 pretend package payload")
	enc, err := encryptGCM(plain, "secret")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if !bytes.HasPrefix(enc, []byte(envelopeMagic)) {
		t.Fatalf("envelope missing magic, got %q", enc[:8])
	}
	if bytes.Contains(enc, plain) {
		t.Error("ciphertext contains the plaintext")
	}

	dec, err := decryptGCM(enc, "secret")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Error("round trip lost data")
	}
}

func TestEnvelopeUniquePerEncryption(t *testing.T) {
	plain := []byte("same input")
	a, _ := encryptGCM(plain, "pw")
	b, _ := encryptGCM(plain, "pw")
	if bytes.Equal(a, b) {
		t.Error("expected fresh salt/nonce per encryption")
	}
}

func TestEnvelopeWrongPassword(t *testing.T) {
	enc, _ := encryptGCM([]byte("data"), "right")
	if _, err := decryptGCM(enc, "wrong"); err == nil {
		t.Error("expected failure with the wrong password")
	}
}

func TestEnvelopeTruncated(t *testing.T) {
	enc, _ := encryptGCM([]byte("data"), "pw")
	for _, n := range []int{0, 8, len(envelopeMagic) + saltLen, len(enc) / 2} {
		if _, err := decryptGCM(enc[:n], "pw"); err == nil {
			t.Errorf("expected failure for %d-byte envelope", n)
		}
	}
}

func TestSaveLocal(t *testing.T) {
	dir := t.TempDir()
	data := []byte("package bytes")

	path, err := SaveLocal(dir, "job1.pptx", data)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(path) != "job1.pptx" {
		t.Errorf("unexpected path %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("file content mismatch: %v", err)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly the package in the dir, found %d entries", len(entries))
	}

	// Overwrite with new content.
	if _, err := SaveLocal(dir, "job1.pptx", []byte("v2")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "v2" {
		t.Errorf("expected overwritten content, got %q", got)
	}
}

func TestSaveLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")
	if _, err := SaveLocal(dir, "out.pptx", []byte("x")); err != nil {
		t.Fatalf("expected dir creation, got %v", err)
	}
}
