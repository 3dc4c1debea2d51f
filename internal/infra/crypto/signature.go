package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"filechain/internal/domain"
)

const (
	AlgRSA     = "rsa"
	AlgECDSA   = "ecdsa"
	AlgEd25519 = "ed25519"
)

// SignatureService checks attestations against blocks. RSA keys use
// PKCS#1 v1.5 over SHA-256, ECDSA keys ASN.1 over SHA-256, Ed25519 keys sign
// the payload directly.
type SignatureService struct {
	Encoding domain.CanonicalEncoding
	Binding  domain.SignatureBinding
}

func NewSignatureService(enc domain.CanonicalEncoding, binding domain.SignatureBinding) *SignatureService {
	if !enc.Valid() {
		enc = domain.EncodingLengthPrefixed
	}
	if !binding.Valid() {
		binding = domain.BindingIndex
	}
	return &SignatureService{Encoding: enc, Binding: binding}
}

// Payload is the byte string a signer signs for b: the canonical block
// string under index binding, the identity hash under identity binding.
func (s *SignatureService) Payload(b domain.Block) []byte {
	if s.Binding == domain.BindingIdentity {
		return []byte(b.Hash)
	}
	return CanonicalBlockOf(s.Encoding, b)
}

// Verify reports whether signatureB64 is a valid signature over b's payload
// under publicKeyPEM. A well-formed signature that does not match returns
// false with a nil error; unparsable key or signature material returns
// domain.ErrCrypto.
func (s *SignatureService) Verify(b domain.Block, signatureB64, publicKeyPEM string) (bool, error) {
	pub, err := ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return false, err
	}
	sig, err := DecodeSignature(signatureB64)
	if err != nil {
		return false, err
	}
	payload := s.Payload(b)
	digest := sha256.Sum256(payload)

	switch key := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil, nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(key, digest[:], sig), nil
	case ed25519.PublicKey:
		if len(key) != ed25519.PublicKeySize {
			return false, fmt.Errorf("%w: invalid ed25519 public key length: %d", domain.ErrCrypto, len(key))
		}
		return ed25519.Verify(key, payload, sig), nil
	default:
		return false, fmt.Errorf("%w: unsupported public key type %T", domain.ErrCrypto, pub)
	}
}

// Sign produces the base64 signature Verify accepts for b.
func (s *SignatureService) Sign(b domain.Block, signer crypto.Signer) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: signer is required", domain.ErrCrypto)
	}
	payload := s.Payload(b)
	var (
		sig []byte
		err error
	)
	switch signer.Public().(type) {
	case ed25519.PublicKey:
		sig, err = signer.Sign(rand.Reader, payload, crypto.Hash(0))
	case *rsa.PublicKey, *ecdsa.PublicKey:
		digest := sha256.Sum256(payload)
		sig, err = signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	default:
		return "", fmt.Errorf("%w: unsupported private key type %T", domain.ErrCrypto, signer)
	}
	if err != nil {
		return "", fmt.Errorf("sign block %d: %w", b.Index, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func DecodeSignature(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: signature value is required", domain.ErrCrypto)
	}
	sig, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature encoding: %w", domain.ErrCrypto, err)
	}
	return sig, nil
}

// ParsePublicKeyPEM accepts PKIX "PUBLIC KEY" and PKCS#1 "RSA PUBLIC KEY"
// blocks.
func ParsePublicKeyPEM(value string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(value)))
	if block == nil {
		return nil, fmt.Errorf("%w: public key is not PEM encoded", domain.ErrCrypto)
	}
	switch block.Type {
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse public key: %w", domain.ErrCrypto, err)
		}
		return pub, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse rsa public key: %w", domain.ErrCrypto, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", domain.ErrCrypto, block.Type)
	}
}

// ParsePrivateKeyPEM accepts PKCS#8, PKCS#1 and SEC 1 private keys.
func ParsePrivateKeyPEM(value string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(value)))
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not PEM encoded", domain.ErrCrypto)
	}
	var (
		key any
		err error
	)
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", domain.ErrCrypto, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %w", domain.ErrCrypto, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: private key type %T cannot sign", domain.ErrCrypto, key)
	}
	return signer, nil
}

func MarshalPublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func MarshalPrivateKeyPEM(signer crypto.Signer) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(signer)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// GenerateKey creates a signing key. bits is only used for RSA.
func GenerateKey(alg string, bits int) (crypto.Signer, error) {
	switch strings.ToLower(alg) {
	case "", AlgRSA:
		if bits <= 0 {
			bits = 2048
		}
		key, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, err
		}
		return key, nil
	case AlgECDSA:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		return key, nil
	case AlgEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return priv, nil
	default:
		return nil, errors.New("unsupported key algorithm: " + alg)
	}
}
