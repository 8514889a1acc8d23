package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIdentityNotFound is returned when a wallet label has no identity.
var ErrIdentityNotFound = errors.New("identity not found in wallet")

// Identity is a signing credential for the ledger network: a PEM
// certificate and private key plus the owning organization's MSP ID.
type Identity struct {
	MSPID       string
	Certificate string
	PrivateKey  string
}

// Wallet is a persistent key/identity lookup used to sign ledger
// requests. The gateway only ever reads; provisioning writes.
type Wallet interface {
	Get(label string) (*Identity, error)
	Put(label string, identity *Identity) error
	Exists(label string) bool
}

// walletEntry is the on-disk encoding of an identity. The layout
// matches the X.509 identity files written by fabric-network file
// system wallets, so identities provisioned by either tool
// interoperate.
type walletEntry struct {
	Credentials struct {
		Certificate string `json:"certificate"`
		PrivateKey  string `json:"privateKey"`
	} `json:"credentials"`
	MSPID   string `json:"mspId"`
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// FileSystemWallet stores identities as <label>.id JSON files under a
// directory.
type FileSystemWallet struct {
	path string
}

// NewFileSystemWallet creates a wallet rooted at the given directory.
func NewFileSystemWallet(path string) *FileSystemWallet {
	return &FileSystemWallet{path: path}
}

func (w *FileSystemWallet) entryPath(label string) string {
	return filepath.Join(w.path, label+".id")
}

// Get returns the identity stored under the label, or
// ErrIdentityNotFound when absent.
func (w *FileSystemWallet) Get(label string) (*Identity, error) {
	data, err := os.ReadFile(w.entryPath(label))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to read wallet entry %q: %w", label, err)
	}

	var entry walletEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse wallet entry %q: %w", label, err)
	}

	return &Identity{
		MSPID:       entry.MSPID,
		Certificate: entry.Credentials.Certificate,
		PrivateKey:  entry.Credentials.PrivateKey,
	}, nil
}

// Put stores the identity under the label, overwriting any prior entry.
func (w *FileSystemWallet) Put(label string, identity *Identity) error {
	if err := os.MkdirAll(w.path, 0o750); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	entry := walletEntry{
		MSPID:   identity.MSPID,
		Type:    "X.509",
		Version: 1,
	}
	entry.Credentials.Certificate = identity.Certificate
	entry.Credentials.PrivateKey = identity.PrivateKey

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode wallet entry: %w", err)
	}

	if err := os.WriteFile(w.entryPath(label), data, 0o600); err != nil {
		return fmt.Errorf("failed to write wallet entry %q: %w", label, err)
	}

	return nil
}

// Exists reports whether an identity is stored under the label.
func (w *FileSystemWallet) Exists(label string) bool {
	_, err := os.Stat(w.entryPath(label))
	return err == nil
}
