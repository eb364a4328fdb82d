// Package security provides credential encryption and audit logging.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptionKeySize is the size of the AES-256 key in bytes.
	EncryptionKeySize = 32
	// SaltSize is the size of the salt for key derivation.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

// CredentialManager handles secure storage and retrieval of credentials.
type CredentialManager struct {
	configDir    string
	masterKey    []byte
	credentials  *EncryptedCredentials
	mu           sync.RWMutex
	sessionStart time.Time
	timeout      time.Duration
}

// EncryptedCredentials holds encrypted credential data.
type EncryptedCredentials struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	Version    int    `json:"version"`
}

// PlainCredentials holds decrypted credential data.
type PlainCredentials struct {
	Tiger  TigerCredentials  `json:"tiger"`
	OpenAI OpenAICredentials `json:"openai"`
}

// TigerCredentials holds Tiger OpenAPI credentials.
type TigerCredentials struct {
	TigerID        string `json:"tiger_id"`
	Account        string `json:"account"`
	PrivateKeyPath string `json:"private_key_path"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `json:"api_key"`
}

// NewCredentialManager creates a new credential manager.
func NewCredentialManager(configDir string, sessionTimeout time.Duration) *CredentialManager {
	if sessionTimeout == 0 {
		sessionTimeout = 8 * time.Hour
	}
	return &CredentialManager{
		configDir:    configDir,
		timeout:      sessionTimeout,
		sessionStart: time.Now(),
	}
}

// Initialize sets up the credential manager with a master password,
// creating an empty encrypted store on first use.
func (cm *CredentialManager) Initialize(masterPassword string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	encryptedPath := filepath.Join(cm.configDir, "credentials.enc")
	if _, err := os.Stat(encryptedPath); os.IsNotExist(err) {
		return cm.saveCredentials(masterPassword, &PlainCredentials{}, encryptedPath)
	}
	return cm.loadEncryptedCredentials(masterPassword, encryptedPath)
}

// deriveKey derives an encryption key from a password using PBKDF2.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, EncryptionKeySize, sha256.New)
}

// encrypt encrypts plaintext using AES-256-GCM.
func encrypt(plaintext, key []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// decrypt decrypts ciphertext using AES-256-GCM.
func decrypt(ciphertext, key, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}

// saveCredentials encrypts and saves credentials.
func (cm *CredentialManager) saveCredentials(masterPassword string, creds *PlainCredentials, path string) error {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey(masterPassword, salt)
	cm.masterKey = key

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}

	nonce, ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypting credentials: %w", err)
	}

	encCreds := &EncryptedCredentials{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Version:    1,
	}

	data, err := json.MarshalIndent(encCreds, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing encrypted credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing encrypted credentials: %w", err)
	}

	cm.credentials = encCreds
	return nil
}

// loadEncryptedCredentials loads and decrypts credentials.
func (cm *CredentialManager) loadEncryptedCredentials(masterPassword, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading encrypted credentials: %w", err)
	}

	encCreds := &EncryptedCredentials{}
	if err := json.Unmarshal(data, encCreds); err != nil {
		return fmt.Errorf("parsing encrypted credentials: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(encCreds.Salt)
	if err != nil {
		return fmt.Errorf("decoding salt: %w", err)
	}

	cm.masterKey = deriveKey(masterPassword, salt)
	cm.credentials = encCreds
	cm.sessionStart = time.Now()

	// Verify by attempting to decrypt. The caller already holds cm.mu, so
	// use the lock-free helper to avoid re-acquiring it.
	if _, err := cm.getCredentialsLocked(); err != nil {
		cm.masterKey = nil
		return fmt.Errorf("invalid master password")
	}
	return nil
}

// GetCredentials returns decrypted credentials.
func (cm *CredentialManager) GetCredentials() (*PlainCredentials, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.getCredentialsLocked()
}

// getCredentialsLocked decrypts credentials; the caller must hold cm.mu.
func (cm *CredentialManager) getCredentialsLocked() (*PlainCredentials, error) {
	if cm.masterKey == nil || cm.credentials == nil {
		return nil, fmt.Errorf("credential manager not initialized")
	}
	if time.Since(cm.sessionStart) > cm.timeout {
		return nil, fmt.Errorf("session expired, please re-authenticate")
	}

	nonce, err := base64.StdEncoding.DecodeString(cm.credentials.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(cm.credentials.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	plaintext, err := decrypt(ciphertext, cm.masterKey, nonce)
	if err != nil {
		return nil, fmt.Errorf("decrypting credentials: %w", err)
	}

	creds := &PlainCredentials{}
	if err := json.Unmarshal(plaintext, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds, nil
}

// UpdateCredentials updates and re-encrypts credentials.
func (cm *CredentialManager) UpdateCredentials(creds *PlainCredentials) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.masterKey == nil {
		return fmt.Errorf("credential manager not initialized")
	}
	if time.Since(cm.sessionStart) > cm.timeout {
		return fmt.Errorf("session expired, please re-authenticate")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}

	nonce, ciphertext, err := encrypt(plaintext, cm.masterKey)
	if err != nil {
		return fmt.Errorf("encrypting credentials: %w", err)
	}

	cm.credentials.Nonce = base64.StdEncoding.EncodeToString(nonce)
	cm.credentials.Ciphertext = base64.StdEncoding.EncodeToString(ciphertext)

	path := filepath.Join(cm.configDir, "credentials.enc")
	data, err := json.MarshalIndent(cm.credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing encrypted credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing encrypted credentials: %w", err)
	}
	return nil
}

// IsSessionValid checks if the current session is still valid.
func (cm *CredentialManager) IsSessionValid() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.masterKey != nil && time.Since(cm.sessionStart) <= cm.timeout
}

// ClearSession clears the session and master key from memory.
func (cm *CredentialManager) ClearSession() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.masterKey != nil {
		for i := range cm.masterKey {
			cm.masterKey[i] = 0
		}
		cm.masterKey = nil
	}
	cm.credentials = nil
}
