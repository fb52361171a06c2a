package authorization

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonSaltLen = 16
	argonKeyLen  = 32
)

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

var (
	defaultArgon = argonParams{memory: 64 * 1024, time: 1, threads: 4}
	b64          = base64.RawStdEncoding
)

// HashKey returns the Argon2id encoding stored in ADMIN_API_KEYS, in the
// PHC form $argon2id$v=19$m=..,t=..,p=..$salt$hash.
func HashKey(raw string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := defaultArgon
	sum := argon2.IDKey([]byte(raw), salt, p.time, p.memory, p.threads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads, b64.EncodeToString(salt), b64.EncodeToString(sum)), nil
}

// VerifyKey checks a raw key against an encoded hash. Malformed encodings
// never verify.
func VerifyKey(raw, encoded string) bool {
	p, salt, want, ok := decodeHash(encoded)
	if !ok {
		return false
	}
	got := argon2.IDKey([]byte(raw), salt, p.time, p.memory, p.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1
}

func decodeHash(encoded string) (argonParams, []byte, []byte, bool) {
	var p argonParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" || fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, false
	}

	var memory, time, threads uint64
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil || n != 3 || fields[3] != fmt.Sprintf("m=%d,t=%d,p=%d", memory, time, threads) {
		return p, nil, nil, false
	}
	if memory == 0 || memory > 1<<32-1 || time == 0 || time > 1<<32-1 || threads == 0 || threads > 255 {
		return p, nil, nil, false
	}
	p = argonParams{memory: uint32(memory), time: uint32(time), threads: uint8(threads)}

	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, false
	}
	sum, err := b64.DecodeString(fields[5])
	if err != nil || len(sum) == 0 {
		return p, nil, nil, false
	}
	return p, salt, sum, true
}
