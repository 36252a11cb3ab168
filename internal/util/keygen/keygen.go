package keygen

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds an RSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the RSA private key in PEM-encoded PKCS#1 format.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format,
	// newline terminated.
	PublicKey []byte
}

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size.
// A non-empty comment is appended to the authorized_keys line.
func GenerateRSAKeyPair(bits int, comment string) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicRsaKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  withComment(ssh.MarshalAuthorizedKey(publicRsaKey), comment),
	}, nil
}

// withComment replaces the trailing newline of an authorized key with " comment\n".
func withComment(authorizedKey []byte, comment string) []byte {
	if comment == "" {
		return authorizedKey
	}
	line := bytes.TrimRight(authorizedKey, "\n")
	out := make([]byte, 0, len(line)+len(comment)+2)
	out = append(out, line...)
	out = append(out, ' ')
	out = append(out, comment...)
	return append(out, '\n')
}
