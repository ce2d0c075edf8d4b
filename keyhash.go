package herdcache

import (
	"crypto/md5" //nolint:gosec // MD5 is used for key shortening, not for security.
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeyHasher transforms logical key into storage key.
type KeyHasher interface {
	Hash(key string) string
}

// KeyHasherFunc is a function adapter of KeyHasher.
type KeyHasherFunc func(key string) string

// Hash calls f.
func (f KeyHasherFunc) Hash(key string) string {
	return f(key)
}

// KeyHashing enumerates built-in key hashing strategies.
type KeyHashing string

// Key hashing strategies.
const (
	KeyHashingNone        = KeyHashing("none")
	KeyHashingXXHash      = KeyHashing("xxhash")
	KeyHashingMD5Upper    = KeyHashing("md5_upper")
	KeyHashingMD5Lower    = KeyHashing("md5_lower")
	KeyHashingSHA256Upper = KeyHashing("sha256_upper")
	KeyHashingSHA256Lower = KeyHashing("sha256_lower")
)

// ParseKeyHashing parses strategy name, empty name means no hashing.
//
// Names are case insensitive, "native_xxhash" and "java_xxhash" are accepted as "xxhash".
func ParseKeyHashing(s string) (KeyHashing, error) {
	switch kh := KeyHashing(strings.ToLower(strings.TrimSpace(s))); kh {
	case "", KeyHashingNone:
		return KeyHashingNone, nil
	case "native_xxhash", "java_xxhash", KeyHashingXXHash:
		return KeyHashingXXHash, nil
	case KeyHashingMD5Upper, KeyHashingMD5Lower, KeyHashingSHA256Upper, KeyHashingSHA256Lower:
		return kh, nil
	default:
		return "", fmt.Errorf("%w: unknown key hashing %q", ErrInvalidConfig, s)
	}
}

// Hasher returns KeyHasher of strategy, nil for KeyHashingNone.
func (kh KeyHashing) Hasher() KeyHasher {
	switch kh {
	case KeyHashingXXHash:
		return KeyHasherFunc(func(key string) string {
			return strconv.FormatUint(xxhash.Sum64String(key), 16)
		})
	case KeyHashingMD5Upper:
		return KeyHasherFunc(func(key string) string {
			return strings.ToUpper(md5Hex(key))
		})
	case KeyHashingMD5Lower:
		return KeyHasherFunc(md5Hex)
	case KeyHashingSHA256Upper:
		return KeyHasherFunc(func(key string) string {
			return strings.ToUpper(sha256Hex(key))
		})
	case KeyHashingSHA256Lower:
		return KeyHasherFunc(sha256Hex)
	default:
		return nil
	}
}

func md5Hex(key string) string {
	sum := md5.Sum([]byte(key)) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

func sha256Hex(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}
