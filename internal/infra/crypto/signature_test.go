package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"
	"testing"

	"filechain/internal/domain"
)

var (
	rsaOnce sync.Once
	rsaKey  crypto.Signer
	rsaErr  error
)

func testRSAKey(t *testing.T) crypto.Signer {
	t.Helper()
	rsaOnce.Do(func() {
		rsaKey, rsaErr = GenerateKey(AlgRSA, 2048)
	})
	if rsaErr != nil {
		t.Fatalf("generate rsa key: %v", rsaErr)
	}
	return rsaKey
}

func testBlock() domain.Block {
	b := domain.Block{
		Index:        1,
		PreviousHash: "c9e04ae1eb1ca752f743a456df8e1a169355fed55718d5ee16610220b15d1e8f",
		ContentHash:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		OwnerID:      "alice",
		Timestamp:    1712345679.25,
	}
	b.Hash = BlockIdentityHash(domain.EncodingLengthPrefixed, b)
	return b
}

func publicPEM(t *testing.T, signer crypto.Signer) string {
	t.Helper()
	out, err := MarshalPublicKeyPEM(signer.Public())
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return out
}

func TestSignatureRoundTrip(t *testing.T) {
	algs := []string{AlgRSA, AlgECDSA, AlgEd25519}
	for _, alg := range algs {
		for _, binding := range []domain.SignatureBinding{domain.BindingIndex, domain.BindingIdentity} {
			t.Run(alg+"/"+string(binding), func(t *testing.T) {
				var signer crypto.Signer
				if alg == AlgRSA {
					signer = testRSAKey(t)
				} else {
					var err error
					signer, err = GenerateKey(alg, 0)
					if err != nil {
						t.Fatalf("generate key: %v", err)
					}
				}
				svc := NewSignatureService(domain.EncodingLengthPrefixed, binding)
				block := testBlock()

				sig, err := svc.Sign(block, signer)
				if err != nil {
					t.Fatalf("sign: %v", err)
				}
				ok, err := svc.Verify(block, sig, publicPEM(t, signer))
				if err != nil {
					t.Fatalf("verify: %v", err)
				}
				if !ok {
					t.Fatal("expected signature to verify")
				}

				altered := block
				altered.OwnerID = "mallory"
				altered.Hash = BlockIdentityHash(domain.EncodingLengthPrefixed, altered)
				ok, err = svc.Verify(altered, sig, publicPEM(t, signer))
				if err != nil {
					t.Fatalf("verify altered: %v", err)
				}
				if ok {
					t.Fatal("expected altered payload to fail verification")
				}
			})
		}
	}
}

func TestVerifyMismatchedKey(t *testing.T) {
	svc := NewSignatureService(domain.EncodingLengthPrefixed, domain.BindingIndex)
	block := testBlock()
	signer := testRSAKey(t)
	other, err := GenerateKey(AlgECDSA, 0)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := svc.Sign(block, signer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := svc.Verify(block, sig, publicPEM(t, other))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched key to fail")
	}
}

func TestVerifySignsCanonicalStringNotDigest(t *testing.T) {
	signer := testRSAKey(t)
	svc := NewSignatureService(domain.EncodingLegacy, domain.BindingIndex)
	block := testBlock()
	block.Hash = BlockIdentityHash(domain.EncodingLegacy, block)

	want := "1" + block.PreviousHash + block.ContentHash + "alice" + "1712345679.25"
	if got := string(svc.Payload(block)); got != want {
		t.Fatalf("unexpected payload %q", got)
	}

	identity := NewSignatureService(domain.EncodingLegacy, domain.BindingIdentity)
	if got := string(identity.Payload(block)); got != block.Hash {
		t.Fatalf("identity binding should sign the block hash, got %q", got)
	}

	sig, err := svc.Sign(block, signer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := identity.Verify(block, sig, publicPEM(t, signer))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("signature over canonical string must not verify under identity binding")
	}
}

func TestVerifyAcceptsPKCS1PublicKey(t *testing.T) {
	signer := testRSAKey(t)
	pub := signer.Public().(*rsa.PublicKey)
	pkcs1 := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(pub)}))

	svc := NewSignatureService(domain.EncodingLengthPrefixed, domain.BindingIndex)
	block := testBlock()
	sig, err := svc.Sign(block, signer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := svc.Verify(block, sig, pkcs1)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected PKCS#1 public key to verify")
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	signer := testRSAKey(t)
	svc := NewSignatureService(domain.EncodingLengthPrefixed, domain.BindingIndex)
	block := testBlock()
	sig, err := svc.Sign(block, signer)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	pubPEM := publicPEM(t, signer)

	tests := []struct {
		name string
		sig  string
		key  string
	}{
		{name: "key not pem", sig: sig, key: "not a key"},
		{name: "key garbage der", sig: sig, key: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte("junk")}))},
		{name: "private key block", sig: sig, key: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")}))},
		{name: "signature not base64", sig: "%%%not-base64%%%", key: pubPEM},
		{name: "signature empty", sig: "", key: pubPEM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.Verify(block, tt.sig, tt.key)
			if !errors.Is(err, domain.ErrCrypto) {
				t.Fatalf("expected ErrCrypto, got %v", err)
			}
			if ok {
				t.Fatal("malformed input must not verify")
			}
		})
	}
}

func TestVerifyWrongLengthSignatureIsFalse(t *testing.T) {
	signer := testRSAKey(t)
	svc := NewSignatureService(domain.EncodingLengthPrefixed, domain.BindingIndex)
	ok, err := svc.Verify(testBlock(), base64.StdEncoding.EncodeToString([]byte("short")), publicPEM(t, signer))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("short signature must not verify")
	}
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	for _, alg := range []string{AlgECDSA, AlgEd25519} {
		signer, err := GenerateKey(alg, 0)
		if err != nil {
			t.Fatalf("generate %s: %v", alg, err)
		}
		encoded, err := MarshalPrivateKeyPEM(signer)
		if err != nil {
			t.Fatalf("marshal %s: %v", alg, err)
		}
		parsed, err := ParsePrivateKeyPEM(encoded)
		if err != nil {
			t.Fatalf("parse %s: %v", alg, err)
		}
		svc := NewSignatureService(domain.EncodingLengthPrefixed, domain.BindingIndex)
		sig, err := svc.Sign(testBlock(), parsed)
		if err != nil {
			t.Fatalf("sign %s: %v", alg, err)
		}
		ok, err := svc.Verify(testBlock(), sig, publicPEM(t, signer))
		if err != nil || !ok {
			t.Fatalf("verify %s: ok=%v err=%v", alg, ok, err)
		}
	}
	if _, err := GenerateKey("dsa", 0); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
