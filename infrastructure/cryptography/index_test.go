package cryptography

import (
	"bytes"
	"testing"

	"faceguard.io/application/utils"
)

var key = utils.GetStringPointer("6368616e676520746869732070617373776f726420746f206120736563726574")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payload := []byte("feature-vector-bytes")

	encrypted, err := EncryptData(payload, key)
	if err != nil {
		t.Fatalf("unexpected encrypt error: %v", err)
	}
	if *encrypted == string(payload) {
		t.Fatal("ciphertext must differ from plaintext")
	}

	decrypted, err := DecryptData(*encrypted, key)
	if err != nil {
		t.Fatalf("unexpected decrypt error: %v", err)
	}
	if !bytes.Equal(decrypted, payload) {
		t.Errorf("decrypted = %q, want %q", decrypted, payload)
	}
}

func TestEncryptionIsSalted(t *testing.T) {
	first, err := EncryptData([]byte("payload"), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EncryptData([]byte("payload"), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first == *second {
		t.Error("two encryptions of the same payload must not repeat the IV")
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	if _, err := DecryptData("not-base64!!", key); err == nil {
		t.Error("expected an error for invalid base64")
	}
	if _, err := DecryptData("c2hvcnQ=", key); err == nil {
		t.Error("expected an error for a truncated ciphertext")
	}
	if _, err := EncryptData([]byte("payload"), utils.GetStringPointer("zz")); err == nil {
		t.Error("expected an error for a malformed key")
	}
}
