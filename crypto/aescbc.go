package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"
)

// KeySize is the only key length this adapter accepts: AES-128.
const KeySize = 16

// IVSize is the AES block size, and therefore the required IV length.
const IVSize = aes.BlockSize

// AESCBC implements BlockCrypt with AES-128 in CBC mode and PKCS#7
// padding, matching the audio payload encryption contract of the
// reference Moonlight payloader: one IV per packet, no reuse across the
// stream's lifetime.
type AESCBC struct {
	block cipher.Block
}

// NewAESCBC builds an AESCBC cipher from a 16-byte key.
func NewAESCBC(key []byte) (*AESCBC, error) {
	if len(key) != KeySize {
		return nil, errors.Errorf("crypto: AES-128 key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: constructing aes cipher")
	}
	return &AESCBC{block: block}, nil
}

// Encrypt PKCS#7-pads plaintext to a multiple of the AES block size and
// encrypts it under iv in CBC mode.
func (c *AESCBC) Encrypt(plaintext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, errors.Errorf("crypto: iv must be %d bytes, got %d", IVSize, len(iv))
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt reverses Encrypt: CBC-decrypts ciphertext under iv and strips
// the PKCS#7 padding.
func (c *AESCBC) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, errors.Errorf("crypto: iv must be %d bytes, got %d", IVSize, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Errorf("crypto: ciphertext length %d is not a positive multiple of the block size", len(ciphertext))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("crypto: cannot unpad empty buffer")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("crypto: invalid pkcs7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("crypto: invalid pkcs7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
