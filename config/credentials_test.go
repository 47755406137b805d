package config

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"
)

func writeTestKey(t *testing.T, dir, passphrase string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestCredentialStore_PlainText(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(dir); err != nil {
		t.Fatalf("load from empty dir: %v", err)
	}
	_ = store.Set("openai", "sk-1")
	_ = store.Set("groq", "gsk-2")
	_ = store.Delete("groq")
	if err := store.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(credentialsPath(dir))
	if err != nil {
		t.Fatalf("credentials file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 credentials file, got %o", info.Mode().Perm())
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dir); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Get("openai"); got != "sk-1" {
		t.Errorf("openai key = %q", got)
	}
	if got := reloaded.Get("groq"); got != "" {
		t.Errorf("deleted key came back: %q", got)
	}
}

func TestCredentialStore_UnknownMethod(t *testing.T) {
	store := NewCredentialStore("vault", "")
	if err := store.Load(t.TempDir()); err == nil {
		t.Error("expected error for unknown method on load")
	}
	if err := store.Save(t.TempDir()); err == nil {
		t.Error("expected error for unknown method on save")
	}
}

func TestCredentialStore_Sealed(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
	}{
		{"unencrypted key", ""},
		{"encrypted key", "hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			keyPath := writeTestKey(t, dir, tt.passphrase)

			store := NewCredentialStore(SecuritySSHKey, keyPath)
			store.SetPassphrase(tt.passphrase)
			_ = store.Set("anthropic", "sk-ant-secret")
			if err := store.Save(dir); err != nil {
				t.Fatalf("save: %v", err)
			}

			blob, err := os.ReadFile(sealedCredentialsPath(dir))
			if err != nil {
				t.Fatalf("sealed file missing: %v", err)
			}
			if bytes.Contains(blob, []byte("sk-ant-secret")) {
				t.Fatal("sealed file contains the plaintext key")
			}

			reloaded := NewCredentialStore(SecuritySSHKey, keyPath)
			reloaded.SetPassphrase(tt.passphrase)
			if err := reloaded.Load(dir); err != nil {
				t.Fatalf("reload: %v", err)
			}
			if got := reloaded.Get("anthropic"); got != "sk-ant-secret" {
				t.Errorf("anthropic key = %q", got)
			}
		})
	}
}

func TestCredentialStore_SealedWrongKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestKey(t, dir, "")

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	_ = store.Set("openai", "sk-1")
	if err := store.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	otherDir := t.TempDir()
	otherKey := writeTestKey(t, otherDir, "")
	other := NewCredentialStore(SecuritySSHKey, otherKey)
	if err := other.Load(dir); err == nil {
		t.Fatal("expected decryption failure with a different key")
	}
}

func TestCredentialStore_MissingPassphrase(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestKey(t, dir, "secret")

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	if err := store.Save(dir); err == nil {
		t.Fatal("expected error for encrypted key without passphrase")
	}
}

func TestSealer(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	s, err := NewSealer(key)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	sealed, err := s.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	again, _ := s.Seal([]byte("payload"))
	if bytes.Equal(sealed, again) {
		t.Error("expected a fresh nonce per seal")
	}

	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plain) != "payload" {
		t.Errorf("Open() = %q", plain)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := s.Open(sealed); err == nil {
		t.Error("expected tampered ciphertext to fail")
	}
	if _, err := s.Open([]byte{1, 2}); err == nil {
		t.Error("expected short ciphertext to fail")
	}
	if _, err := NewSealer([]byte("short")); err == nil {
		t.Error("expected invalid key length error")
	}
}
