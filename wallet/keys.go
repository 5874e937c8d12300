package wallet

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160"
)

const (
	DefaultAddressPrefix = "BTS"

	compressedKeyLength = 33
	checksumLength      = 4
)

var (
	ErrInvalidKey = errors.New("invalid public key")
	ErrChecksum   = errors.New("checksum mismatch")
	ErrMalformed  = errors.New("malformed base58 payload")
)

// PublicKey is a compressed secp256k1 key in its graphene text form:
// prefix followed by base58(key || ripemd160(key)[:4]).
type PublicKey struct {
	prefix string
	data   [compressedKeyLength]byte
}

func NewPublicKey(prefix string, pub *ecdsa.PublicKey) PublicKey {
	k := PublicKey{prefix: prefix}
	copy(k.data[:], crypto.CompressPubkey(pub))

	return k
}

// ParsePublicKey decodes a graphene key string. The prefix is whatever precedes
// the checksummed payload, so keys of any chain prefix are accepted. Only the
// checksum is verified: chains lock accounts with keys that are not curve
// points (the all-zero null key among them), so use Validate where a usable
// key is required.
func ParsePublicKey(s string) (PublicKey, error) {
	prefix, payload, err := splitChecksummed(s, compressedKeyLength)
	if err != nil {
		return PublicKey{}, errors.Wrapf(err, "public key %q", s)
	}

	k := PublicKey{prefix: prefix}
	copy(k.data[:], payload)

	return k, nil
}

func (k PublicKey) Prefix() string {
	return k.prefix
}

func (k PublicKey) Bytes() []byte {
	return append([]byte(nil), k.data[:]...)
}

// IsZero reports whether k is the null key.
func (k PublicKey) IsZero() bool {
	return k.data == [compressedKeyLength]byte{}
}

// Validate checks that k decompresses to a secp256k1 point.
func (k PublicKey) Validate() error {
	if _, err := crypto.DecompressPubkey(k.data[:]); err != nil {
		return errors.Wrapf(ErrInvalidKey, "public key %q is not on the curve", k.String())
	}

	return nil
}

func (k PublicKey) String() string {
	return k.prefix + encodeChecksummed(k.data[:])
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

func encodeChecksummed(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumLength)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)

	return base58.Encode(buf)
}

// splitChecksummed finds the shortest prefix of s whose remainder decodes to
// size bytes plus a valid checksum.
func splitChecksummed(s string, size int) (string, []byte, error) {
	found := false
	for i := 0; i < len(s); i++ {
		raw := base58.Decode(s[i:])
		if len(raw) != size+checksumLength {
			continue
		}
		found = true

		payload, sum := raw[:size], raw[size:]
		if string(checksum(payload)) != string(sum) {
			continue
		}

		return s[:i], payload, nil
	}

	if found {
		return "", nil, ErrChecksum
	}

	return "", nil, ErrMalformed
}

func checksum(payload []byte) []byte {
	return ripemd160Sum(payload)[:checksumLength]
}

func ripemd160Sum(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)

	return h.Sum(nil)
}
