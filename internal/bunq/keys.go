// Package bunq implements the signed-session client for the bunq REST API:
// key material, request signing, the identity handshake and paginated
// payment retrieval.
package bunq

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const keyBits = 2048

// KeyPair holds the client signing key and its PEM encodings as persisted on
// the Connection.
type KeyPair struct {
	Private    *rsa.PrivateKey
	PrivatePEM string
	PublicPEM  string
}

// GenerateKeyPair creates a 2048-bit RSA keypair for RSA-SHA256 PKCS#1v1.5
// request signing. Failure is fatal to bootstrap; there is no retry.
func GenerateKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &KeyPair{
		Private:    key,
		PrivatePEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}, nil
}

// ParsePrivateKeyPEM loads a stored PKCS#8 private key.
func ParsePrivateKeyPEM(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("parse private key: no PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: unexpected type %T", parsed)
	}
	return key, nil
}

// signBody signs the exact request body bytes with RSA-SHA256 PKCS#1v1.5.
func signBody(key *rsa.PrivateKey, body []byte) ([]byte, error) {
	sum := sha256.Sum256(body)
	return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
}
