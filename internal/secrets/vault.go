package secrets

import (
	"encoding/json"
	"fmt"
	"os"
)

// Vault is an encrypted JSON file of name/value secrets, the fallback store
// on systems without a usable OS keyring. All operations rewrite the whole
// file; the secret count is small.
type Vault struct {
	path string
	key  []byte
}

func NewVault(path string, key []byte) *Vault {
	return &Vault{path: path, key: key}
}

func (v *Vault) Get(name string) (string, error) {
	secrets, err := v.load()
	if err != nil {
		return "", err
	}
	val, ok := secrets[name]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", name)
	}
	return val, nil
}

func (v *Vault) Set(name, value string) error {
	secrets, err := v.load()
	if err != nil {
		secrets = make(map[string]string)
	}
	secrets[name] = value
	return v.save(secrets)
}

func (v *Vault) Delete(name string) error {
	secrets, err := v.load()
	if err != nil {
		return nil
	}
	delete(secrets, name)
	return v.save(secrets)
}

func (v *Vault) load() (map[string]string, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	if v.key == nil {
		return nil, fmt.Errorf("no vault key set")
	}

	plaintext, err := decrypt(string(data), v.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}
	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	return secrets, nil
}

func (v *Vault) save(secrets map[string]string) error {
	if v.key == nil {
		return fmt.Errorf("no vault key set")
	}
	data, err := json.Marshal(secrets)
	if err != nil {
		return err
	}
	encrypted, err := encrypt(data, v.key)
	if err != nil {
		return err
	}
	return os.WriteFile(v.path, []byte(encrypted), 0600)
}
