package keys

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/util/keygen"
)

// Key generation parameters and injected file layout.
const (
	KeyBits    = 2048
	KeyComment = "root"

	PrivateKeyPath     = "/root/.ssh/id_rsa"
	PublicKeyPath      = "/root/.ssh/id_rsa.pub"
	AuthorizedKeysPath = "/root/.ssh/authorized_keys"

	FileOwner = "root"
	FileGroup = "root"
	FileMode  = 0o600
)

// Manager generates key pairs and keeps the private halves in a Store.
type Manager struct {
	store Store
}

// NewManager creates a manager that persists private keys to store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying private key store.
func (m *Manager) Store() Store {
	return m.store
}

// Generate creates a fresh key pair.
func (m *Manager) Generate() (*keygen.KeyPair, error) {
	kp, err := keygen.GenerateRSAKeyPair(KeyBits, KeyComment)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cluster key pair: %w", err)
	}
	return kp, nil
}

// Persist writes the private key of clusterID to the store.
func (m *Manager) Persist(ctx context.Context, clusterID string, kp *keygen.KeyPair) error {
	if err := m.store.Put(ctx, clusterID, kp.PrivateKey); err != nil {
		return fmt.Errorf("failed to persist private key for cluster %s: %w", clusterID, err)
	}
	return nil
}

// Purge removes the private key of clusterID. A missing key is not an error.
func (m *Manager) Purge(ctx context.Context, clusterID string) error {
	if err := m.store.Delete(ctx, clusterID); err != nil {
		return fmt.Errorf("failed to purge private key for cluster %s: %w", clusterID, err)
	}
	return nil
}

// Personality builds the files injected into a node of the given role.
// Every node gets the public key and an authorized_keys file holding the
// cluster key followed by extraKeys. The master also gets the private key.
func Personality(kp *keygen.KeyPair, role provisioning.Role, extraKeys []string) []cloud.PersonalityFile {
	files := make([]cloud.PersonalityFile, 0, 3)
	if role == provisioning.RoleMaster {
		files = append(files, file(PrivateKeyPath, kp.PrivateKey))
	}
	files = append(files,
		file(PublicKeyPath, kp.PublicKey),
		file(AuthorizedKeysPath, authorizedKeys(kp.PublicKey, extraKeys)),
	)
	return files
}

func authorizedKeys(clusterKey []byte, extraKeys []string) []byte {
	var buf bytes.Buffer
	buf.Write(clusterKey)
	for _, k := range extraKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		buf.WriteString(k)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func file(path string, contents []byte) cloud.PersonalityFile {
	return cloud.PersonalityFile{
		Path:     path,
		Contents: base64.StdEncoding.EncodeToString(contents),
		Owner:    FileOwner,
		Group:    FileGroup,
		Mode:     FileMode,
	}
}
