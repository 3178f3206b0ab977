package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Credential struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type credentialsFile struct {
	Users []Credential `yaml:"users"`
}

// StaticAuthenticator checks a fixed table of bcrypt-hashed credentials.
type StaticAuthenticator struct {
	hashes map[string][]byte
	dummy  []byte
}

func NewStaticAuthenticator(creds []Credential) (*StaticAuthenticator, error) {
	if len(creds) == 0 {
		return nil, errors.New("no credentials configured")
	}
	hashes := make(map[string][]byte, len(creds))
	for _, c := range creds {
		name := strings.TrimSpace(c.Username)
		if name == "" || c.PasswordHash == "" {
			return nil, errors.New("credential requires username and password_hash")
		}
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return nil, fmt.Errorf("credential %s: %w", name, err)
		}
		hashes[name] = []byte(c.PasswordHash)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	return &StaticAuthenticator{hashes: hashes, dummy: dummy}, nil
}

// LoadCredentials reads a YAML credentials file of the form
//
//	users:
//	  - username: clinician
//	    password_hash: $2a$10$...
func LoadCredentials(path string) ([]Credential, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var file credentialsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, err
	}
	return file.Users, nil
}

// HashCredential bcrypt-hashes a plaintext password, for single-user setups
// configured from the environment.
func HashCredential(username, password string) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Username: username, PasswordHash: string(hash)}, nil
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) (bool, error) {
	hash, ok := a.hashes[strings.TrimSpace(username)]
	if !ok {
		// keep timing similar for unknown users
		_ = bcrypt.CompareHashAndPassword(a.dummy, []byte(password))
		return false, nil
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return false, nil
	}
	return true, nil
}
