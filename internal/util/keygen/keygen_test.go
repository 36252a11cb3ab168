package keygen

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestGenerateRSAKeyPair_InvalidBits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		bits int
	}{
		{"zero bits", 0},
		{"negative bits", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := GenerateRSAKeyPair(tt.bits, ""); err == nil {
				t.Errorf("GenerateRSAKeyPair(%d) should have failed", tt.bits)
			}
		})
	}
}

func TestGenerateRSAKeyPair_Comment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		comment string
	}{
		{"with comment", "root"},
		{"without comment", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			keyPair, err := GenerateRSAKeyPair(2048, tt.comment)
			if err != nil {
				t.Fatalf("GenerateRSAKeyPair failed: %v", err)
			}

			pub := string(keyPair.PublicKey)
			if !strings.HasPrefix(pub, "ssh-rsa ") {
				t.Errorf("public key should start with 'ssh-rsa ', got %q", pub[:min(20, len(pub))])
			}
			if !strings.HasSuffix(pub, "\n") {
				t.Error("public key should end with newline")
			}
			if strings.Count(pub, "\n") != 1 {
				t.Error("public key should be a single line")
			}

			_, gotComment, _, _, err := ssh.ParseAuthorizedKey(keyPair.PublicKey)
			if err != nil {
				t.Fatalf("failed to parse public key as authorized key: %v", err)
			}
			if gotComment != tt.comment {
				t.Errorf("comment = %q, want %q", gotComment, tt.comment)
			}
		})
	}
}

func TestGenerateRSAKeyPair_KeyPairCorrespondence(t *testing.T) {
	t.Parallel()
	keyPair, err := GenerateRSAKeyPair(2048, "root")
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair failed: %v", err)
	}

	block, _ := pem.Decode(keyPair.PrivateKey)
	if block == nil {
		t.Fatal("failed to decode private key PEM")
	}
	if block.Type != "RSA PRIVATE KEY" { //nolint:staticcheck // t.Fatal above ensures block is not nil
		t.Errorf("expected PEM type 'RSA PRIVATE KEY', got %q", block.Type)
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		t.Fatalf("failed to parse private key: %v", err)
	}
	if privateKey.N.BitLen() != 2048 {
		t.Errorf("expected 2048-bit modulus, got %d", privateKey.N.BitLen())
	}

	parsedPubKey, _, _, _, err := ssh.ParseAuthorizedKey(keyPair.PublicKey)
	if err != nil {
		t.Fatalf("failed to parse public key: %v", err)
	}
	expectedPubKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to create SSH public key from private: %v", err)
	}
	if !bytes.Equal(parsedPubKey.Marshal(), expectedPubKey.Marshal()) {
		t.Error("public key does not correspond to private key")
	}
}

func TestGenerateRSAKeyPair_Uniqueness(t *testing.T) {
	t.Parallel()
	a, err := GenerateRSAKeyPair(2048, "")
	if err != nil {
		t.Fatalf("first GenerateRSAKeyPair failed: %v", err)
	}
	b, err := GenerateRSAKeyPair(2048, "")
	if err != nil {
		t.Fatalf("second GenerateRSAKeyPair failed: %v", err)
	}
	if bytes.Equal(a.PrivateKey, b.PrivateKey) {
		t.Error("two generated key pairs should have different private keys")
	}
}
