package tokenengine

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Signer provides the signing method and key material for the engine.
// HMACSigner signs and verifies with a shared secret; RSASigner signs with a
// private key so verification needs only the public key.
type Signer interface {
	Method() jwt.SigningMethod
	SignKey() interface{}
	VerifyKey() interface{}
}

// HMACSigner implements Signer using HMAC-SHA256 with a shared secret
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner creates a new HMAC signer
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (s *HMACSigner) Method() jwt.SigningMethod { return jwt.SigningMethodHS256 }

func (s *HMACSigner) SignKey() interface{} { return s.secret }

func (s *HMACSigner) VerifyKey() interface{} { return s.secret }

// RSASigner implements Signer using RSA-SHA256. Verification only needs the
// public key, so services that merely verify tokens never hold the private key.
type RSASigner struct {
	privateKey *rsa.PrivateKey
	keyID      string
}

// NewRSASigner creates a new RSA signer
func NewRSASigner(privateKey *rsa.PrivateKey, keyID string) *RSASigner {
	return &RSASigner{
		privateKey: privateKey,
		keyID:      keyID,
	}
}

func (s *RSASigner) Method() jwt.SigningMethod { return jwt.SigningMethodRS256 }

func (s *RSASigner) SignKey() interface{} { return s.privateKey }

func (s *RSASigner) VerifyKey() interface{} { return &s.privateKey.PublicKey }

// KeyID returns the key ID embedded in token headers
func (s *RSASigner) KeyID() string { return s.keyID }

// PublicKey returns the public key for this signer
func (s *RSASigner) PublicKey() *rsa.PublicKey { return &s.privateKey.PublicKey }

// LoadRSAPrivateKeyFromPEM loads an RSA private key from a PEM file.
// Supports both PKCS#1 and PKCS#8 encodings.
func LoadRSAPrivateKeyFromPEM(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block from %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not an RSA key", path)
	}
	return key, nil
}
