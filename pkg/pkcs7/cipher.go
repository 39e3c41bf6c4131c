package pkcs7

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"encoding/asn1"
	"fmt"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// Cipher is a symmetric content encryption algorithm in CBC mode.
type Cipher struct {
	name     string
	oid      asn1.ObjectIdentifier
	keySize  int
	newBlock func(key []byte) (cipher.Block, error)
}

// Supported ciphers. New ciphers only need an entry in cipherTable.
var (
	CipherDESEDE3CBC = Cipher{name: "des_ede3_cbc", oid: OIDDESEDE3CBC, keySize: 24, newBlock: des.NewTripleDESCipher}
	CipherAES128CBC  = Cipher{name: "aes_128_cbc", oid: OIDAES128CBC, keySize: 16, newBlock: aes.NewCipher}
	CipherAES192CBC  = Cipher{name: "aes_192_cbc", oid: OIDAES192CBC, keySize: 24, newBlock: aes.NewCipher}
	CipherAES256CBC  = Cipher{name: "aes_256_cbc", oid: OIDAES256CBC, keySize: 32, newBlock: aes.NewCipher}
)

var cipherTable = []Cipher{CipherDESEDE3CBC, CipherAES128CBC, CipherAES192CBC, CipherAES256CBC}

// SelectCipher maps a cipher name such as "des_ede3_cbc" to its algorithm.
func SelectCipher(name string) (Cipher, error) {
	for _, c := range cipherTable {
		if c.name == name {
			return c, nil
		}
	}
	return Cipher{}, errstack.Raise(errstack.InvalidOption, ErrUnknownCipher, name)
}

// CipherNames lists the accepted cipher names.
func CipherNames() []string {
	names := make([]string, len(cipherTable))
	for i, c := range cipherTable {
		names[i] = c.name
	}
	return names
}

func cipherByOID(oid asn1.ObjectIdentifier) (Cipher, bool) {
	for _, c := range cipherTable {
		if c.oid.Equal(oid) {
			return c, true
		}
	}
	return Cipher{}, false
}

// Name returns the selector name of the cipher.
func (c Cipher) Name() string { return c.name }

// OID returns the algorithm identifier.
func (c Cipher) OID() asn1.ObjectIdentifier { return c.oid }

// KeySize returns the key length in bytes.
func (c Cipher) KeySize() int { return c.keySize }

func (c Cipher) valid() bool { return c.newBlock != nil }

// encrypt pads data (PKCS #7 padding) and encrypts it under a fresh key and
// IV. It returns ciphertext, key and IV.
func (c Cipher) encrypt(data []byte) ([]byte, []byte, []byte, error) {
	key := make([]byte, c.keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, nil, err
	}
	block, err := c.newBlock(key)
	if err != nil {
		return nil, nil, nil, err
	}
	iv := make([]byte, block.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, err
	}

	padded := pad(data, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, key, iv, nil
}

func (c Cipher) decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if len(key) != c.keySize {
		return nil, fmt.Errorf("%s: key length %d, want %d", c.name, len(key), c.keySize)
	}
	block, err := c.newBlock(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, fmt.Errorf("%s: iv length %d, want %d", c.name, len(iv), bs)
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%s: ciphertext length %d is not a multiple of the block size", c.name, len(ciphertext))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out, bs)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
