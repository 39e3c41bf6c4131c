package pkcs7

import (
	"bytes"
	"testing"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

func TestU_SelectCipher_Known(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
		oid     string
	}{
		{"des_ede3_cbc", 24, "1.2.840.113549.3.7"},
		{"aes_128_cbc", 16, "2.16.840.1.101.3.4.1.2"},
		{"aes_192_cbc", 24, "2.16.840.1.101.3.4.1.22"},
		{"aes_256_cbc", 32, "2.16.840.1.101.3.4.1.42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := SelectCipher(tt.name)
			if err != nil {
				t.Fatalf("SelectCipher() error = %v", err)
			}
			if c.Name() != tt.name || c.KeySize() != tt.keySize || c.OID().String() != tt.oid {
				t.Errorf("SelectCipher(%q) = %s/%d/%s", tt.name, c.Name(), c.KeySize(), c.OID())
			}
		})
	}
}

func TestU_SelectCipher_Unknown(t *testing.T) {
	for _, name := range []string{"", "rc2_40_cbc", "DES_EDE3_CBC", "aes_256_gcm"} {
		_, err := SelectCipher(name)
		assertFailure(t, err, errstack.InvalidOption, ErrUnknownCipher)
	}
}

func TestU_CipherByOID(t *testing.T) {
	for _, c := range cipherTable {
		got, ok := cipherByOID(c.OID())
		if !ok || got.Name() != c.Name() {
			t.Errorf("cipherByOID(%s) = %v, %v", c.OID(), got.Name(), ok)
		}
	}
	if _, ok := cipherByOID(OIDData); ok {
		t.Error("cipherByOID(data) matched")
	}
}

func TestU_Cipher_EncryptDecrypt(t *testing.T) {
	inputs := [][]byte{{}, []byte("x"), bytes.Repeat([]byte{0xAB}, 16), bytes.Repeat([]byte("0123456789"), 100)}
	for _, c := range cipherTable {
		for _, in := range inputs {
			ct, key, iv, err := c.encrypt(in)
			if err != nil {
				t.Fatalf("%s encrypt: %v", c.Name(), err)
			}
			if len(ct)%len(iv) != 0 || len(ct) <= len(in) {
				t.Errorf("%s: ciphertext length %d for %d bytes", c.Name(), len(ct), len(in))
			}
			out, err := c.decrypt(ct, key, iv)
			if err != nil {
				t.Fatalf("%s decrypt: %v", c.Name(), err)
			}
			if !bytes.Equal(out, in) {
				t.Errorf("%s: round trip mismatch", c.Name())
			}
		}
	}
}

func TestU_Cipher_DecryptRejectsBadInput(t *testing.T) {
	c := CipherAES128CBC
	ct, key, iv, err := c.encrypt([]byte("some plaintext"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := c.decrypt(ct, key[:8], iv); err == nil {
		t.Error("short key accepted")
	}
	if _, err := c.decrypt(ct, key, iv[:4]); err == nil {
		t.Error("short iv accepted")
	}
	if _, err := c.decrypt(ct[:len(ct)-1], key, iv); err == nil {
		t.Error("truncated ciphertext accepted")
	}
}

func TestU_Unpad(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		ok   bool
	}{
		{"full block", bytes.Repeat([]byte{8}, 8), true},
		{"one byte", []byte{1, 2, 3, 4, 5, 6, 7, 1}, true},
		{"zero", []byte{1, 2, 3, 4, 5, 6, 7, 0}, false},
		{"too large", []byte{1, 2, 3, 4, 5, 6, 7, 9}, false},
		{"inconsistent", []byte{1, 2, 3, 4, 5, 6, 2, 3}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unpad(tt.in, 8)
			if (err == nil) != tt.ok {
				t.Errorf("unpad() error = %v, want ok %v", err, tt.ok)
			}
		})
	}
}
