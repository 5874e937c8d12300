package wallet

import (
	"crypto/sha512"

	"github.com/pkg/errors"
)

const addressLength = 20

// Address is the graphene balance owner: ripemd160(sha512(compressed key)).
type Address struct {
	prefix string
	hash   [addressLength]byte
}

// AddressFromKey derives the address of k. The address carries the key's prefix.
func AddressFromKey(k PublicKey) Address {
	digest := sha512.Sum512(k.data[:])

	a := Address{prefix: k.prefix}
	copy(a.hash[:], ripemd160Sum(digest[:]))

	return a
}

func ParseAddress(s string) (Address, error) {
	prefix, payload, err := splitChecksummed(s, addressLength)
	if err != nil {
		return Address{}, errors.Wrapf(err, "address %q", s)
	}

	a := Address{prefix: prefix}
	copy(a.hash[:], payload)

	return a, nil
}

func (a Address) Prefix() string {
	return a.prefix
}

func (a Address) String() string {
	return a.prefix + encodeChecksummed(a.hash[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed

	return nil
}
