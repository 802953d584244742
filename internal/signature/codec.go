// Package signature implements the cross-host trust primitive: ed25519
// signatures over an ordered sequence of byte strings. Signer and verifier
// must supply the parts in the same order or verification fails.
package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// GenerateKeypair produces a fresh keypair from the system's secure random
// source. Failure here means the process cannot proceed.
func GenerateKeypair() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating keypair: %w", err)
	}
	return priv, pub, nil
}

// Sign signs the in-order concatenation of parts.
func Sign(priv ed25519.PrivateKey, parts ...[]byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key has %d bytes, want %d", len(priv), ed25519.PrivateKeySize)
	}
	return ed25519.Sign(priv, join(parts)), nil
}

// Verify reports whether sig is a valid signature by pub over the in-order
// concatenation of parts. Malformed input of any kind yields false, never a
// panic.
func Verify(pub ed25519.PublicKey, sig []byte, parts ...[]byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, join(parts), sig)
}

func join(parts [][]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func PublicKeyToBytes(pub ed25519.PublicKey) []byte {
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

func PublicKeyFromBytes(b []byte) (ed25519.PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes, want %d", len(b), ed25519.PublicKeySize)
	}
	out := make([]byte, ed25519.PublicKeySize)
	copy(out, b)
	return ed25519.PublicKey(out), nil
}

func PrivateKeyToBytes(priv ed25519.PrivateKey) []byte {
	out := make([]byte, len(priv))
	copy(out, priv)
	return out
}

func PrivateKeyFromBytes(b []byte) (ed25519.PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key has %d bytes, want %d", len(b), ed25519.PrivateKeySize)
	}
	out := make([]byte, ed25519.PrivateKeySize)
	copy(out, b)
	return ed25519.PrivateKey(out), nil
}
