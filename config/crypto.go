package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh"
)

var keyDerivationMessage = []byte("fieldreport-credentials-v1")

// loadSigner parses the SSH private key at keyPath, using passphrase when the
// key is protected.
func loadSigner(keyPath, passphrase string) (ssh.Signer, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("ssh_key credentials require credentials.ssh_key_path")
	}
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("invalid SSH key: %w", err)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("SSH key is encrypted - set FIELDREPORT_SSH_PASSPHRASE")
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key (wrong passphrase?): %w", err)
	}
	if DebugLog != nil {
		DebugLog.Printf("[Config] Loaded passphrase-protected SSH key %s", keyPath)
	}
	return signer, nil
}

// deriveKey signs a fixed message and hashes the signature into an AES-256
// key. Ed25519 and RSA PKCS#1 v1.5 signatures are deterministic, so the same
// key always yields the same AES key.
func deriveKey(signer ssh.Signer) ([]byte, error) {
	sig, err := signer.Sign(rand.Reader, keyDerivationMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sum := sha256.Sum256(sig.Blob)
	return sum[:], nil
}

// encrypt seals plaintext with AES-256-GCM as [nonce][ciphertext+tag].
func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
