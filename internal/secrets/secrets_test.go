package secrets

import (
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatal(err)
	}
	key := DeriveKey("master-password", salt)

	plaintext := []byte(`{"openai": "sk-test"}`)
	encrypted, err := encrypt(plaintext, key)
	if err != nil {
		t.Fatal(err)
	}
	if encrypted == string(plaintext) {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := decrypt(encrypted, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(decrypted) != string(plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("right", salt)
	wrong := DeriveKey("wrong", salt)

	encrypted, err := encrypt([]byte("secret"), key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decrypt(encrypted, wrong); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, _ := GenerateSalt()
	a := DeriveKey("password", salt)
	b := DeriveKey("password", salt)
	if string(a) != string(b) {
		t.Fatal("same password and salt should derive the same key")
	}

	other, _ := GenerateSalt()
	c := DeriveKey("password", other)
	if string(a) == string(c) {
		t.Fatal("different salts should derive different keys")
	}
}

func TestVaultSetGetDelete(t *testing.T) {
	salt, _ := GenerateSalt()
	vault := NewVault(filepath.Join(t.TempDir(), "vault.enc"), DeriveKey("pw", salt))

	if err := vault.Set("openai", "sk-live"); err != nil {
		t.Fatal(err)
	}
	got, err := vault.Get("openai")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sk-live" {
		t.Fatalf("expected sk-live, got %q", got)
	}

	if err := vault.Delete("openai"); err != nil {
		t.Fatal(err)
	}
	if _, err := vault.Get("openai"); err == nil {
		t.Fatal("expected missing secret after delete")
	}
}

func TestVaultWithoutKeyFails(t *testing.T) {
	vault := NewVault(filepath.Join(t.TempDir(), "vault.enc"), nil)
	if err := vault.Set("openai", "sk"); err == nil {
		t.Fatal("expected error writing without a key")
	}
}

func TestResolverPrefersEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	salt, _ := GenerateSalt()
	vault := NewVault(filepath.Join(t.TempDir(), "vault.enc"), DeriveKey("pw", salt))
	if err := vault.Set("openai", "sk-from-vault"); err != nil {
		t.Fatal(err)
	}

	r := NewResolverWithVault(vault)
	if got := r.APIKey("openai"); got != "sk-from-env" {
		t.Fatalf("expected env credential, got %q", got)
	}
}

func TestResolverEmptyWhenUnconfigured(t *testing.T) {
	t.Setenv("FAKEPROVIDER_API_KEY", "")
	r := NewResolverWithVault(nil)
	if got := r.APIKey("fakeprovider"); got != "" {
		t.Fatalf("expected empty credential, got %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("sk-abcdef1234567890"); got != "sk-...7890" {
		t.Fatalf("unexpected mask: %q", got)
	}
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("expected full mask for short keys, got %q", got)
	}
}
