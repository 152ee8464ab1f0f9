package keystore

import (
	"os"
	"path/filepath"
)

// Dir returns the directory identities live in, creating it on first use.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".river")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the identity file path for a name, or the explicit override
// when one is given.
func Path(name, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+"_identity.json"), nil
}
