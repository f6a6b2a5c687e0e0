// Copyright 2026 The satellion Authors
// This file is part of the satellion library.
//
// The satellion library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The satellion library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the satellion library. If not, see <http://www.gnu.org/licenses/>.

// Package envelope implements envelope encryption (key wrapping) for wallet
// payloads. A random DEK encrypts the payload with AES-256-GCM; a KEK derived
// from the passphrase with Argon2id wraps the DEK.
//
// Storage format:
//
//	ciphertext:  [12 bytes dek nonce][payload ciphertext+tag]
//	wrapped_key: [12 bytes kek nonce][48 bytes wrapped dek]
//	kdf_salt:    32 bytes
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const (
	NonceSize = 12
	KeySize   = 32
	SaltSize  = 32

	// RFC 9106 second recommended (low-memory) parameter set.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var (
	// ErrBadPassphrase means the KEK failed to unwrap the DEK: the
	// passphrase does not match.
	ErrBadPassphrase = errors.New("envelope: bad passphrase")
	// ErrCorrupt means the envelope is structurally broken or the payload
	// failed authentication under a correctly unwrapped DEK.
	ErrCorrupt = errors.New("envelope: corrupt data")
)

// Envelope is the encrypted at-rest representation of a wallet payload.
type Envelope struct {
	Ciphertext []byte `json:"ciphertext"`
	WrappedKey []byte `json:"wrapped_key"`
	KDFSalt    []byte `json:"kdf_salt"`
}

// Encrypt seals plaintext under a fresh DEK wrapped by the passphrase-derived
// KEK.
func Encrypt(plaintext, passphrase []byte) (*Envelope, error) {
	dek := make([]byte, KeySize)
	salt := make([]byte, SaltSize)
	dekNonce := make([]byte, NonceSize)
	kekNonce := make([]byte, NonceSize)
	for _, buf := range [][]byte{dek, salt, dekNonce, kekNonce} {
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Wrap(err, "envelope: cannot draw randomness")
		}
	}

	kek := deriveKEK(passphrase, salt)

	dataCiphertext, err := aesSeal(dek, dekNonce, plaintext)
	if err != nil {
		return nil, err
	}
	wrappedDEK, err := aesSeal(kek, kekNonce, dek)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Ciphertext: append(dekNonce, dataCiphertext...),
		WrappedKey: append(kekNonce, wrappedDEK...),
		KDFSalt:    salt,
	}, nil
}

// Decrypt opens an envelope. ErrBadPassphrase and ErrCorrupt are returned
// distinctly so callers can tell a wrong passphrase from a damaged file.
func Decrypt(env *Envelope, passphrase []byte) ([]byte, error) {
	if len(env.WrappedKey) < NonceSize || len(env.Ciphertext) < NonceSize {
		return nil, ErrCorrupt
	}

	kek := deriveKEK(passphrase, env.KDFSalt)

	kekNonce, wrappedDEK := env.WrappedKey[:NonceSize], env.WrappedKey[NonceSize:]
	dek, err := aesOpen(kek, kekNonce, wrappedDEK)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	if len(dek) != KeySize {
		return nil, ErrCorrupt
	}

	dekNonce, dataCiphertext := env.Ciphertext[:NonceSize], env.Ciphertext[NonceSize:]
	plaintext, err := aesOpen(dek, dekNonce, dataCiphertext)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

func deriveKEK(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, KeySize)
}

func aesSeal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func aesOpen(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "envelope: cannot init cipher")
	}
	return cipher.NewGCM(block)
}
