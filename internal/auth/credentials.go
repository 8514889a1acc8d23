package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/types"
)

// ErrCredentialNotFound is returned when no credential matches the email.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialStore looks up login credentials by email. Credentials are
// read-only for the lifetime of the core.
type CredentialStore interface {
	FindByEmail(email string) (*types.Credential, error)
}

// VerifyPassword verifies a password against a bcrypt hash.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// demoPasswordHash is the bcrypt hash of "password" shared by the seed
// accounts.
const demoPasswordHash = "$2a$10$92IXUNpkjO0rOQ5byMi.Ye4oKoEa3Ro9llC/.og/at2.uheWG/igi"

// SeedCredentialStore is an in-memory CredentialStore holding the demo
// accounts. Lookups are case-insensitive on email.
type SeedCredentialStore struct {
	mu      sync.RWMutex
	byEmail map[string]*types.Credential
}

// NewSeedCredentialStore creates a store pre-populated with the demo
// admin, doctor and patient accounts.
func NewSeedCredentialStore() *SeedCredentialStore {
	seed := []*types.Credential{
		{
			ID:           "admin1",
			Email:        "admin@hospital.com",
			PasswordHash: demoPasswordHash,
			Name:         "System Administrator",
			Role:         types.RoleAdmin,
			Hospital:     "General Hospital",
		},
		{
			ID:             "doctor1",
			Email:          "dr.smith@hospital.com",
			PasswordHash:   demoPasswordHash,
			Name:           "Dr. John Smith",
			Role:           types.RoleDoctor,
			Specialization: "Cardiology",
			Hospital:       "General Hospital",
		},
		{
			ID:           "patient1",
			Email:        "patient.john@email.com",
			PasswordHash: demoPasswordHash,
			Name:         "John Doe",
			Role:         types.RolePatient,
			Age:          45,
			Condition:    "Hypertension",
		},
	}

	byEmail := make(map[string]*types.Credential, len(seed))
	for _, cred := range seed {
		byEmail[strings.ToLower(cred.Email)] = cred
	}

	return &SeedCredentialStore{byEmail: byEmail}
}

// FindByEmail returns the credential for the email or
// ErrCredentialNotFound.
func (s *SeedCredentialStore) FindByEmail(email string) (*types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}
