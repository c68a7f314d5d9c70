package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"

	"codeberg.org/mutker/threadstone/internal/errors"
	"golang.org/x/crypto/ssh"
)

const (
	PrivateKeyFile = "threadstone.key"
	PublicKeyFile  = "threadstone.pub"

	privateKeyPerm = 0o600
	publicKeyPerm  = 0o644
	keyDirPerm     = 0o700
)

// LoadPrivateKey reads a 64-byte raw private key file.
func LoadPrivateKey(path string) ([]byte, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrReadKey, err)
	}

	if _, err := privateKey(data); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidKey, err)
	}

	return data, nil
}

// LoadPublicKey reads a public key file. The file holds either 32 raw
// bytes or an OpenSSH authorized-keys line for an ssh-ed25519 key.
func LoadPublicKey(path string) ([]byte, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrReadKey, err)
	}

	if len(data) == ed25519.PublicKeySize {
		return data, nil
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(ssh.KeyAlgoED25519)) {
		return parseAuthorizedKey(data)
	}

	return nil, errFactory.WithData(errors.ErrInvalidKey, struct {
		Got  int
		Want int
	}{len(data), ed25519.PublicKeySize})
}

func parseAuthorizedKey(data []byte) ([]byte, error) {
	errFactory := errors.New()

	parsed, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidKey, err)
	}

	crypto, ok := parsed.(ssh.CryptoPublicKey)
	if !ok {
		return nil, errFactory.WithMessage(errors.ErrInvalidKey, "unsupported ssh key type")
	}

	public, ok := crypto.CryptoPublicKey().(ed25519.PublicKey)
	if !ok {
		return nil, errFactory.WithMessage(errors.ErrInvalidKey, "ssh key is not ed25519")
	}

	return []byte(public), nil
}

// GenerateKeypair creates a new key pair in the on-disk layout.
func GenerateKeypair() (public, private []byte, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, errors.New().Wrap(errors.ErrInitFailed, err)
	}

	return pub, priv, nil
}

// SaveKeypair writes the pair into dir. The private key file has 0600
// permissions; the public key file has 0644.
func SaveKeypair(dir string, public, private []byte) error {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, keyDirPerm); err != nil {
		return errFactory.Wrap(errors.ErrWriteKey, err)
	}

	if err := os.WriteFile(filepath.Join(dir, PrivateKeyFile), private, privateKeyPerm); err != nil {
		return errFactory.Wrap(errors.ErrWriteKey, err)
	}

	if err := os.WriteFile(filepath.Join(dir, PublicKeyFile), public, publicKeyPerm); err != nil {
		return errFactory.Wrap(errors.ErrWriteKey, err)
	}

	return nil
}
