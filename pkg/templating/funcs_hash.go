package templating

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned by hash for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("templating: unknown hash algorithm")

var hashers = map[string]func() hash.Hash{
	"md5":      md5.New,
	"sha1":     sha1.New,
	"sha224":   sha256.New224,
	"sha256":   sha256.New,
	"sha384":   sha512.New384,
	"sha512":   sha512.New,
	"sha3_256": func() hash.Hash { return sha3.New256() },
	"sha3_512": func() hash.Hash { return sha3.New512() },
	"blake2b": func() hash.Hash {
		h, _ := blake2b.New512(nil) // only fails for over-long keys
		return h
	},
	"blake2s": func() hash.Hash {
		h, _ := blake2s.New256(nil)
		return h
	},
}

// hashAlgorithms returns the supported algorithm names, sorted.
func hashAlgorithms() []string {
	names := make([]string, 0, len(hashers))
	for name := range hashers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hexDigest(newHash func() hash.Hash, value any) string {
	h := newHash()
	_, _ = h.Write([]byte(toString(value)))
	return hex.EncodeToString(h.Sum(nil))
}

// digestFunc returns a template function hashing its argument with the
// named algorithm.
func digestFunc(algorithm string) func(any) string {
	newHash := hashers[algorithm]
	return func(value any) string {
		return hexDigest(newHash, value)
	}
}

// hashWith returns the hex digest of value using the named algorithm.
func hashWith(algorithm string, value any) (string, error) {
	newHash, ok := hashers[algorithm]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return hexDigest(newHash, value), nil
}

// hashValue is hashWith with the arguments in filter order.
func hashValue(value any, algorithm string) (string, error) {
	return hashWith(algorithm, value)
}
