package sec

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json/v2"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

var ErrUnknownKey = errors.New("unknown key id")

// JWK JSON Web Key (RSA only)
type JWK struct {
	Kty string `json:"kty"` // Key Type
	Use string `json:"use"` // Usage
	Kid string `json:"kid"` // Key ID
	Alg string `json:"alg"` // Algorithm
	N   string `json:"n"`   // Modulus
	E   string `json:"e"`   // Exponent
}

// ToPublicKey Convert JWK to an rsa.PublicKey
func (j *JWK) ToPublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, fmt.Errorf("key %s: unsupported kty %q", j.Kid, j.Kty)
	}
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode N: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode E: %w", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if len(nb) == 0 || e == 0 {
		return nil, fmt.Errorf("key %s: empty modulus or exponent", j.Kid)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: e,
	}, nil
}

func NewJWKFromPublicKey(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// JWKS JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

func (s *JWKS) CreateJSONFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("[ERROR] %v", closeErr)
		}
	}()
	return json.MarshalWrite(file, s)
}

// LoadPublicPEMKeysAsJWKS reads every <kid>_public.pem in dirPath
func LoadPublicPEMKeysAsJWKS(dirPath string) (*JWKS, error) {
	dirEntries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	var keys []JWK
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_public.pem") {
			continue
		}
		pemBytes, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read pem file %s: %w", entry.Name(), err)
		}
		pemBlock, rest := pem.Decode(pemBytes)
		if pemBlock == nil || pemBlock.Type != "PUBLIC KEY" {
			continue
		}
		if len(rest) > 0 {
			// one public key per key id
			return nil, fmt.Errorf("extra data found after PEM block in %s", entry.Name())
		}
		pub, err := x509.ParsePKIXPublicKey(pemBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key %s: %w", entry.Name(), err)
		}
		publicKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			log.Printf("[WARN][KEYS] skipping non-RSA key %s", entry.Name())
			continue
		}
		keys = append(keys, NewJWKFromPublicKey(strings.TrimSuffix(entry.Name(), "_public.pem"), publicKey))
	}
	return &JWKS{Keys: keys}, nil
}

// KeyResolver finds the verification key for a token's kid header
type KeyResolver interface {
	PublicKey(kid string) (*rsa.PublicKey, error)
}

// KeyRing merges key sets from several sources and can be replaced whole while serving
type KeyRing struct {
	keys atomic.Pointer[map[string]*rsa.PublicKey]
}

// Ensure KeyRing implements KeyResolver
var _ KeyResolver = (*KeyRing)(nil)

// Replace swaps in the union of sets. A kid present in more than one set is an error.
func (r *KeyRing) Replace(sets ...*JWKS) (int, error) {
	keys := make(map[string]*rsa.PublicKey)
	for _, set := range sets {
		if set == nil {
			continue
		}
		for i := range set.Keys {
			jwk := &set.Keys[i]
			if _, dup := keys[jwk.Kid]; dup {
				return 0, fmt.Errorf("duplicate key id %q", jwk.Kid)
			}
			pub, err := jwk.ToPublicKey()
			if err != nil {
				return 0, err
			}
			keys[jwk.Kid] = pub
		}
	}
	r.keys.Store(&keys)
	return len(keys), nil
}

func (r *KeyRing) PublicKey(kid string) (*rsa.PublicKey, error) {
	keys := r.keys.Load()
	if keys == nil {
		return nil, ErrUnknownKey
	}
	pub, ok := (*keys)[kid]
	if !ok {
		return nil, ErrUnknownKey
	}
	return pub, nil
}

func (r *KeyRing) Len() int {
	if keys := r.keys.Load(); keys != nil {
		return len(*keys)
	}
	return 0
}
