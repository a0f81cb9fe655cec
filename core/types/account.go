package types

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AccountPrefix is the human-readable part of every ledger account identifier.
const AccountPrefix = "lend"

// AccountIDLength is the raw payload size of an account identifier.
const AccountIDLength = 20

// AccountID identifies a borrower, lender, or liquidity provider on the
// ledger. Identifiers are opaque 20-byte values rendered as bech32 strings
// with the "lend" prefix.
type AccountID [AccountIDLength]byte

// NewAccountID copies b into an AccountID. It returns an error when b is not
// exactly AccountIDLength bytes.
func NewAccountID(b []byte) (AccountID, error) {
	var id AccountID
	if len(b) != AccountIDLength {
		return id, fmt.Errorf("account id must be %d bytes, got %d", AccountIDLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// DecodeAccountID parses a bech32 account string.
func DecodeAccountID(s string) (AccountID, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AccountPrefix {
		return AccountID{}, fmt.Errorf("unexpected account prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return AccountID{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAccountID(conv)
}

// String renders the account as a bech32 string.
func (a AccountID) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AccountPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw payload.
func (a AccountID) Bytes() []byte {
	out := make([]byte, AccountIDLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the account is the unset zero value.
func (a AccountID) IsZero() bool {
	return bytes.Equal(a[:], make([]byte, AccountIDLength))
}

// MarshalText implements encoding.TextMarshaler so accounts serialise as
// bech32 strings in JSON payloads and storage snapshots.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	decoded, err := DecodeAccountID(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
