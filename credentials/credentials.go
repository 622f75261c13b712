// Package credentials provides secure secret storage for the scrumlink agent.
// It stores the intelligence service API key and the Telegram bot token in
// ~/.scrumlink/credentials.yaml with encryption for sensitive data at rest.
//
// Encryption Key Storage:
// The encryption key is stored securely using the system keyring:
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
//
// For CI and headless environments, set SCRUMLINK_ENCRYPTION_KEY to a
// 64-character hex string (32 bytes), or use a passphrase-derived key.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrumlink/scrumlink/config"
)

// DefaultCredentialsFile is the credentials file name inside the config dir.
const DefaultCredentialsFile = "credentials.yaml"

// Common errors.
var (
	// ErrNoCredentials is returned when no credentials are stored.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrEncryptionFailed is returned when encryption/decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// Credentials holds the stored secrets.
type Credentials struct {
	// IntelligenceKey is the API key for the text intelligence service
	// (encrypted at rest).
	IntelligenceKey string `yaml:"intelligence_key,omitempty"`
	// TelegramToken is the Telegram bot token (encrypted at rest).
	TelegramToken string `yaml:"telegram_token,omitempty"`
	// Salt is the passphrase key-derivation salt, present only when a
	// passphrase-based key provider is in use.
	Salt []byte `yaml:"salt,omitempty"`
	// LastUpdated is when the credentials were last written.
	LastUpdated time.Time `yaml:"last_updated"`
}

// Store manages credential storage operations.
type Store struct {
	// credentialsDir is the directory containing the credentials file.
	credentialsDir string
	// encryptionKey is the key used for encrypting/decrypting secrets.
	encryptionKey []byte
	// keyProvider is the source of the encryption key.
	keyProvider KeyProvider
}

// NewStore creates a credential store with the default key provider.
// It uses the system keyring (macOS Keychain, Windows Credential Manager,
// or Linux Secret Service) to store the encryption key securely.
func NewStore() (*Store, error) {
	keyProvider, err := GetDefaultKeyProvider()
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}
	return NewStoreWithKeyProvider(keyProvider)
}

// NewStoreWithKeyProvider creates a credential store with a custom key
// provider. Used for passphrase-based keys on headless hosts and in tests.
func NewStoreWithKeyProvider(keyProvider KeyProvider) (*Store, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}

	key, err := keyProvider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}

	return &Store{
		credentialsDir: dir,
		encryptionKey:  key,
		keyProvider:    keyProvider,
	}, nil
}

// CredentialsPath returns the full path to the credentials file.
func CredentialsPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

// Save stores credentials to the credentials file.
func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(s.credentialsDir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	storageCreds := *creds
	storageCreds.LastUpdated = time.Now()

	if storageCreds.IntelligenceKey != "" {
		encrypted, err := s.encrypt(storageCreds.IntelligenceKey)
		if err != nil {
			return fmt.Errorf("encrypting intelligence key: %w", err)
		}
		storageCreds.IntelligenceKey = encrypted
	}

	if storageCreds.TelegramToken != "" {
		encrypted, err := s.encrypt(storageCreds.TelegramToken)
		if err != nil {
			return fmt.Errorf("encrypting telegram token: %w", err)
		}
		storageCreds.TelegramToken = encrypted
	}

	data, err := yaml.Marshal(&storageCreds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	if err := os.WriteFile(credPath, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	return nil
}

// Load reads and decrypts credentials from the credentials file.
func (s *Store) Load() (*Credentials, error) {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)

	data, err := os.ReadFile(credPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.IntelligenceKey != "" {
		decrypted, err := s.decrypt(creds.IntelligenceKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting intelligence key: %w", err)
		}
		creds.IntelligenceKey = decrypted
	}

	if creds.TelegramToken != "" {
		decrypted, err := s.decrypt(creds.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("decrypting telegram token: %w", err)
		}
		creds.TelegramToken = decrypted
	}

	return &creds, nil
}

// Delete removes stored credentials.
func (s *Store) Delete() error {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)

	if err := os.Remove(credPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("removing credentials file: %w", err)
	}

	return nil
}

// Exists reports whether a credentials file exists.
func (s *Store) Exists() bool {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	_, err := os.Stat(credPath)
	return err == nil
}

// ActiveIntelligenceKey returns the intelligence service API key.
// Environment takes precedence over the stored value.
func (s *Store) ActiveIntelligenceKey() (string, error) {
	if key := os.Getenv("SCRUMLINK_INTELLIGENCE_KEY"); key != "" {
		return key, nil
	}

	creds, err := s.Load()
	if err != nil {
		return "", err
	}
	if creds.IntelligenceKey == "" {
		return "", ErrNoCredentials
	}
	return creds.IntelligenceKey, nil
}

// ActiveTelegramToken returns the Telegram bot token.
// Environment takes precedence over the stored value.
func (s *Store) ActiveTelegramToken() (string, error) {
	if token := os.Getenv("SCRUMLINK_TELEGRAM_TOKEN"); token != "" {
		return token, nil
	}

	creds, err := s.Load()
	if err != nil {
		return "", err
	}
	if creds.TelegramToken == "" {
		return "", ErrNoCredentials
	}
	return creds.TelegramToken, nil
}

// encrypt encrypts a string using AES-GCM.
func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an AES-GCM encrypted string.
func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}

	return string(plaintext), nil
}

// MaskSecret returns a masked version of a secret for display.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
