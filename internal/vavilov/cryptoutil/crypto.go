// Package cryptoutil implements C1: sign/verify/hash and truststore lookup
// by logical key name, grounded on the ECDSA/P256 + blake2b-512 primitives
// the teacher uses for account keys and block hashing.
package cryptoutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/jbenet/go-base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"

	"github.com/vavilov/consensus/internal/vavilov/vaverr"
)

// Curve is the signature curve used across the engine.
var Curve = elliptic.P256()

// Digest is a fixed-width content digest (opsHash, message digest, ...).
type Digest [32]byte

// Hash returns the blake2b-512 digest of the concatenation of data, folded
// down to 32 bytes the way the teacher's INRISeqHash folds into common.Hash.
func Hash(data ...[]byte) Digest {
	d, err := blake2b.New512(nil)
	if err != nil {
		panic(err) // blake2b.New512 with a nil key never errors
	}
	for _, b := range data {
		d.Write(b)
	}
	sum := d.Sum(nil)
	var out Digest
	copy(out[:], sum[len(sum)-32:])
	return out
}

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// GenerateKey creates a new ECDSA/P256 keypair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(Curve, rand.Reader)
}

// Sign produces a deterministic-format ASN.1 DER signature over data.
func Sign(data []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	digest := Hash(data)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, vaverr.NewSignatureError("sign", "", err)
	}
	return sig, nil
}

// Verify checks an ASN.1 DER signature over data against pub.
func Verify(data, sig []byte, pub *ecdsa.PublicKey) bool {
	digest := Hash(data)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// Mnemonic derives a BIP-39 recovery phrase from priv's scalar, displayed
// once at key-generation time so an operator can recover the identity
// offline without keeping the raw PEM file as the only copy.
func Mnemonic(priv *ecdsa.PrivateKey) (string, error) {
	entropy := make([]byte, 32)
	d := priv.D.Bytes()
	copy(entropy[32-len(d):], d)
	return bip39.NewMnemonic(entropy)
}

// Fingerprint returns a short base58-encoded identity fingerprint derived
// from a public key, used for display (truststore listings, log lines)
// rather than as part of the signature-verification path itself.
func Fingerprint(pub *ecdsa.PublicKey) string {
	digest := Hash(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
	return base58.Encode(digest[:8])
}

// Truststore maps a replica's logical crypto name to its verification key.
// Read-only after construction; safe to share by reference across
// goroutines, matching the teacher's config.VaultConfig keys lifecycle.
type Truststore struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PublicKey
}

// NewTruststore builds an empty truststore.
func NewTruststore() *Truststore {
	return &Truststore{keys: make(map[string]*ecdsa.PublicKey)}
}

// Add registers a public key under a logical name.
func (t *Truststore) Add(name string, pub *ecdsa.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys[name] = pub
}

// Lookup resolves a logical crypto name to its public key.
func (t *Truststore) Lookup(name string) (*ecdsa.PublicKey, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pub, ok := t.keys[name]
	if !ok {
		return nil, vaverr.NewSignatureError("lookupPublicKey", name, fmt.Errorf("unknown crypto name"))
	}
	return pub, nil
}

// EncodePrivateKeyPEM serializes a private key to PEM, the format the
// keystore file on disk uses.
func EncodePrivateKeyPEM(priv *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})), nil
}

// DecodePrivateKeyPEM parses a PEM-encoded private key from the keystore file.
func DecodePrivateKeyPEM(pemEncoded string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemEncoded))
	if block == nil {
		return nil, fmt.Errorf("decode keystore pem: no block found")
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

// EncodePublicKeyPEM serializes a public key to PEM, the format a
// truststore entry on disk uses.
func EncodePublicKeyPEM(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// DecodePublicKeyPEM parses a PEM-encoded public key from a truststore file.
func DecodePublicKeyPEM(pemEncoded string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemEncoded))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("decode truststore pem: no PUBLIC KEY block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("decode truststore pem: not an ECDSA public key")
	}
	return ecdsaPub, nil
}
