package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"PushOrShame/config"
)

// GitHub / X 的 OAuth 访问令牌以 AES-256-GCM 密文存库，格式 nonce || ciphertext

var (
	errInvalidCipherText = errors.New("invalid ciphertext payload")
	errEmptyToken        = errors.New("empty token")
)

func EncryptToken(plain string) ([]byte, error) {
	if plain == "" {
		return nil, errEmptyToken
	}

	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, []byte(plain), nil), nil
}

func DecryptToken(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", errEmptyToken
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errInvalidCipherText
	}

	plain, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", err
	}

	return string(plain), nil
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(config.Cfg.EncryptionKey))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
