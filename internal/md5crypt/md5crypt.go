// Package md5crypt implements the classic FreeBSD MD5 password hash
// ($1$ magic) that the Webshare login endpoint expects. The round
// structure and the final base64 byte permutation have to match the
// upstream bit for bit, so none of it is simplified here.
package md5crypt

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const magic = "$1$"

// itoa64 is the crypt(3) base64 alphabet, which differs from RFC 4648.
const itoa64 = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Crypt hashes password with the given salt and returns the full crypt
// string "$1$<salt>$<22 chars>". A "$1$" prefix on the salt is stripped and
// the salt is truncated to 8 characters, as crypt(3) does. The function is
// pure: same inputs always produce the same output.
func Crypt(password, salt string) string {
	if len(salt) >= len(magic) && salt[:len(magic)] == magic {
		salt = salt[len(magic):]
	}
	if i := strings.IndexByte(salt, '$'); i >= 0 {
		salt = salt[:i]
	}
	if len(salt) > 8 {
		salt = salt[:8]
	}

	key := []byte(password)
	sal := []byte(salt)

	// Intermediate digest over password+salt+password.
	alt := md5.Sum(append(append(append([]byte{}, key...), sal...), key...))

	ctx := md5.New()
	ctx.Write(key)
	ctx.Write([]byte(magic))
	ctx.Write(sal)
	for pl := len(key); pl > 0; pl -= 16 {
		if pl > 16 {
			ctx.Write(alt[:16])
		} else {
			ctx.Write(alt[:pl])
		}
	}
	// One bit per step of the key length: zero byte or first key byte.
	for i := len(key); i > 0; i >>= 1 {
		if i&1 != 0 {
			ctx.Write([]byte{0})
		} else {
			ctx.Write(key[:1])
		}
	}
	var final [md5.Size]byte
	ctx.Sum(final[:0])

	// 1000 strengthening rounds, alternating key/digest by round parity and
	// interleaving salt (rounds not divisible by 3) and key (not by 7).
	for i := 0; i < 1000; i++ {
		round := md5.New()
		if i&1 != 0 {
			round.Write(key)
		} else {
			round.Write(final[:])
		}
		if i%3 != 0 {
			round.Write(sal)
		}
		if i%7 != 0 {
			round.Write(key)
		}
		if i&1 != 0 {
			round.Write(final[:])
		} else {
			round.Write(key)
		}
		round.Sum(final[:0])
	}

	out := make([]byte, 0, len(magic)+len(salt)+1+22)
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, '$')
	out = appendTo64(out, uint32(final[0])<<16|uint32(final[6])<<8|uint32(final[12]), 4)
	out = appendTo64(out, uint32(final[1])<<16|uint32(final[7])<<8|uint32(final[13]), 4)
	out = appendTo64(out, uint32(final[2])<<16|uint32(final[8])<<8|uint32(final[14]), 4)
	out = appendTo64(out, uint32(final[3])<<16|uint32(final[9])<<8|uint32(final[15]), 4)
	out = appendTo64(out, uint32(final[4])<<16|uint32(final[10])<<8|uint32(final[5]), 4)
	out = appendTo64(out, uint32(final[11]), 2)
	return string(out)
}

// LoginDigest returns the value the Webshare login call transmits as the
// password field: the hex SHA1 of the full md5crypt string.
func LoginDigest(password, salt string) string {
	sum := sha1.Sum([]byte(Crypt(password, salt)))
	return hex.EncodeToString(sum[:])
}

// appendTo64 encodes v into n characters of the crypt base64 alphabet,
// least significant 6 bits first.
func appendTo64(dst []byte, v uint32, n int) []byte {
	for ; n > 0; n-- {
		dst = append(dst, itoa64[v&0x3f])
		v >>= 6
	}
	return dst
}
