package cryptstate

import "crypto/aes"

const blockSize = aes.BlockSize

type block [blockSize]byte

func xorBlock(dst, a, b []byte) {
	for i := 0; i < blockSize; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

// s2 doubles the block in GF(2^128), big-endian.
func s2(b *block) {
	carry := b[0] >> 7
	for i := 0; i < blockSize-1; i++ {
		b[i] = b[i]<<1 | b[i+1]>>7
	}
	b[blockSize-1] = b[blockSize-1]<<1 ^ carry*0x87
}

// s3 triples the block in GF(2^128).
func s3(b *block) {
	t := *b
	s2(&t)
	xorBlock(b[:], b[:], t[:])
}

func zeroPrefix(p []byte) bool {
	for _, c := range p[:blockSize-1] {
		if c != 0 {
			return false
		}
	}
	return true
}

// ocbEncrypt writes len(plain) bytes to dst and the full tag to tag.
// A penultimate block whose first 15 bytes are zero gets its low bit flipped
// so the XEX* forgery pattern never appears on the wire.
func (cs *CryptState) ocbEncrypt(dst, plain, nonce []byte, tag *block) {
	var delta, checksum, tmp, pad block

	cs.cipher.Encrypt(delta[:], nonce)
	for len(plain) > blockSize {
		flip := len(plain)-blockSize <= blockSize && zeroPrefix(plain)
		s2(&delta)
		xorBlock(tmp[:], delta[:], plain)
		if flip {
			tmp[0] ^= 1
		}
		cs.cipher.Encrypt(tmp[:], tmp[:])
		xorBlock(dst, delta[:], tmp[:])
		xorBlock(checksum[:], checksum[:], plain)
		if flip {
			checksum[0] ^= 1
		}
		plain = plain[blockSize:]
		dst = dst[blockSize:]
	}

	s2(&delta)
	tmp = block{}
	tmp[blockSize-1] = byte(len(plain) * 8)
	xorBlock(tmp[:], tmp[:], delta[:])
	cs.cipher.Encrypt(pad[:], tmp[:])
	copy(tmp[:], plain)
	copy(tmp[len(plain):], pad[len(plain):])
	xorBlock(checksum[:], checksum[:], tmp[:])
	xorBlock(tmp[:], pad[:], tmp[:])
	copy(dst, tmp[:len(plain)])

	s3(&delta)
	xorBlock(tmp[:], delta[:], checksum[:])
	cs.cipher.Encrypt(tag[:], tmp[:])
}

// ocbDecrypt is the inverse of ocbEncrypt. It returns false when the
// penultimate block decrypts to the XEX* pattern; the tag is still computed.
func (cs *CryptState) ocbDecrypt(dst, encrypted, nonce []byte, tag *block) bool {
	var delta, checksum, tmp, pad block
	ok := true

	cs.cipher.Encrypt(delta[:], nonce)
	for len(encrypted) > blockSize {
		penultimate := len(encrypted)-blockSize <= blockSize
		s2(&delta)
		xorBlock(tmp[:], delta[:], encrypted)
		cs.cipher.Decrypt(tmp[:], tmp[:])
		xorBlock(dst, delta[:], tmp[:])
		xorBlock(checksum[:], checksum[:], dst)
		if penultimate && zeroPrefix(dst) {
			ok = false
		}
		encrypted = encrypted[blockSize:]
		dst = dst[blockSize:]
	}

	s2(&delta)
	tmp = block{}
	tmp[blockSize-1] = byte(len(encrypted) * 8)
	xorBlock(tmp[:], tmp[:], delta[:])
	cs.cipher.Encrypt(pad[:], tmp[:])
	tmp = block{}
	copy(tmp[:], encrypted)
	xorBlock(tmp[:], tmp[:], pad[:])
	xorBlock(checksum[:], checksum[:], tmp[:])
	copy(dst, tmp[:len(encrypted)])

	s3(&delta)
	xorBlock(tmp[:], delta[:], checksum[:])
	cs.cipher.Encrypt(tag[:], tmp[:])
	return ok
}
