// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"hash"
	"strings"

	"github.com/croessner/portier/server/definitions"
	"github.com/croessner/portier/server/errors"
	"github.com/simia-tech/crypt"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// CredentialVerifier checks a plain password against a stored hash.
type CredentialVerifier interface {
	Verify(encoded string, password string, salt string) (bool, error)
}

// PasswordHasher creates argon2id hashes for local accounts and verifies every hash
// format accounts may have been imported with.
//
// The account salt is appended to the password before hashing. argon2id additionally
// uses its own random salt, which is stored inside the encoded hash.
type PasswordHasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var _ CredentialVerifier = (*PasswordHasher)(nil)

// NewPasswordHasher returns a hasher with the RFC 9106 second recommended parameter set.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{Time: 3, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

// NewSalt returns definitions.SaltSize random bytes encoded with standard base64.
func NewSalt() (string, error) {
	buf := make([]byte, definitions.SaltSize)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Hash returns the PHC string of password+salt.
func (h *PasswordHasher) Hash(password string, salt string) (string, error) {
	phcSalt := make([]byte, 16)

	if _, err := rand.Read(phcSalt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password+salt), phcSalt, h.Time, h.Memory, h.Threads, h.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(phcSalt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password+salt matches encoded. Supported formats are argon2id,
// bcrypt, the crypt(3) family (MD5, SHA-256, SHA-512, argon2i) and the binary PBKDF2
// format with marker byte 0x01. A mismatch is not an error.
func (h *PasswordHasher) Verify(encoded string, password string, salt string) (bool, error) {
	if encoded == "" {
		return false, nil
	}

	plain := password + salt

	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(encoded, plain)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		if stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}

		return err == nil, err
	case strings.HasPrefix(encoded, "$"):
		return verifyCrypt(encoded, plain)
	default:
		return verifyPBKDF2(encoded, plain)
	}
}

// maxArgon2Memory caps the memory parameter (KiB) read from a stored hash at 4 GiB.
const maxArgon2Memory = 4 << 20

func verifyArgon2id(encoded string, plain string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, errors.ErrPasswordHashFormat
	}

	var (
		version             int
		memory, timeCost    uint32
		threads             uint8
		phcSalt, storedHash []byte
		err                 error
	)

	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errors.ErrPasswordHashFormat
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, errors.ErrPasswordHashFormat
	}

	// argon2.IDKey panics on a zero time or thread count.
	if timeCost < 1 || threads < 1 || memory > maxArgon2Memory {
		return false, errors.ErrPasswordHashFormat
	}

	if phcSalt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return false, errors.ErrPasswordEncoding
	}

	if storedHash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return false, errors.ErrPasswordEncoding
	}

	if len(storedHash) == 0 {
		return false, errors.ErrPasswordHashFormat
	}

	key := argon2.IDKey([]byte(plain), phcSalt, timeCost, memory, threads, uint32(len(storedHash)))

	return subtle.ConstantTimeCompare(key, storedHash) == 1, nil
}

func verifyCrypt(encoded string, plain string) (bool, error) {
	_, _, _, pwhash, err := crypt.DecodeSettings(encoded)
	if err != nil {
		return false, errors.ErrPasswordHashFormat
	}

	settings, _, found := strings.Cut(encoded, pwhash)
	if !found {
		return false, errors.ErrPasswordHashFormat
	}

	computed, err := crypt.Crypt(plain, settings)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(encoded)) == 1, nil
}

const (
	pbkdf2Marker       = 0x01
	pbkdf2HeaderSize   = 13
	pbkdf2PRFSHA256    = 1
	pbkdf2PRFSHA512    = 2
	pbkdf2MinSaltSize  = 16
	pbkdf2MinSubkeyLen = 32
)

// verifyPBKDF2 handles the base64 blob 0x01 | prf | iterations | salt length | salt | subkey,
// all integers big endian uint32.
func verifyPBKDF2(encoded string, plain string) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, errors.ErrPasswordEncoding
	}

	if len(raw) < pbkdf2HeaderSize || raw[0] != pbkdf2Marker {
		return false, errors.ErrPasswordHashFormat
	}

	prf := binary.BigEndian.Uint32(raw[1:5])
	iterations := int(binary.BigEndian.Uint32(raw[5:9]))
	saltLen := int(binary.BigEndian.Uint32(raw[9:13]))

	if saltLen < pbkdf2MinSaltSize || len(raw) < pbkdf2HeaderSize+saltLen+pbkdf2MinSubkeyLen {
		return false, errors.ErrPasswordHashFormat
	}

	var digest func() hash.Hash

	switch prf {
	case pbkdf2PRFSHA256:
		digest = sha256.New
	case pbkdf2PRFSHA512:
		digest = sha512.New
	default:
		return false, errors.ErrPasswordHashFormat
	}

	pbkdf2Salt := raw[pbkdf2HeaderSize : pbkdf2HeaderSize+saltLen]
	storedKey := raw[pbkdf2HeaderSize+saltLen:]

	key := pbkdf2.Key([]byte(plain), pbkdf2Salt, iterations, len(storedKey), digest)

	return subtle.ConstantTimeCompare(key, storedKey) == 1, nil
}
