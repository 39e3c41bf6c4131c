package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

// =============================================================================
// Sign / Verify Tests
// =============================================================================

func TestF_SignVerify_Attached(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("hello from alice"))

	tc.run("sign",
		"--cert", tc.path("alice.crt"),
		"--key", tc.path("alice.key"),
		"--in", tc.path("msg.txt"),
		"-O", "binary",
		"--out", tc.path("msg.p7m"),
	)

	p7, err := pkcs7.Parse(tc.readFile("msg.p7m"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p7.Type() != pkcs7.TypeSigned || p7.Detached() {
		t.Fatalf("unexpected structure: type=%v detached=%v", p7.Type(), p7.Detached())
	}

	out := tc.run("verify", tc.path("msg.p7m"),
		"--ca", tc.path("ca.crt"),
		"-O", "binary",
		"--out", tc.path("content.txt"),
	)
	if !strings.Contains(out, "Verification successful") {
		t.Errorf("output = %q", out)
	}
	if got := tc.readFile("content.txt"); string(got) != "hello from alice" {
		t.Errorf("content = %q", got)
	}
}

func TestF_SignVerify_DetachedPEM(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("detached body"))

	tc.run("sign",
		"--cert", tc.path("alice.crt"),
		"--key", tc.path("alice.key"),
		"--in", tc.path("msg.txt"),
		"-O", "detached,binary",
		"--pem",
		"--out", tc.path("msg.p7s"),
	)
	if !bytes.HasPrefix(tc.readFile("msg.p7s"), []byte("-----BEGIN PKCS7-----")) {
		t.Fatal("expected PEM output")
	}

	tc.run("verify", tc.path("msg.p7s"),
		"--data", tc.path("msg.txt"),
		"--ca", tc.path("ca.crt"),
		"-O", "binary",
	)

	tc.writeFile("tampered.txt", []byte("detached b0dy"))
	_, err := executeCommand(rootCmd, "verify", tc.path("msg.p7s"),
		"--data", tc.path("tampered.txt"),
		"--ca", tc.path("ca.crt"),
		"-O", "binary",
	)
	if err == nil {
		t.Fatal("verify should fail on tampered content")
	}
}

func TestF_Verify_UntrustedSigner(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("x"))
	tc.run("sign", "--cert", tc.path("alice.crt"), "--key", tc.path("alice.key"),
		"--in", tc.path("msg.txt"), "-O", "binary", "--out", tc.path("msg.p7m"))

	if _, err := executeCommand(rootCmd, "verify", tc.path("msg.p7m"), "-O", "binary"); err == nil {
		t.Fatal("verify without trust anchors should fail")
	}

	// noverify skips chain validation.
	tc.run("verify", tc.path("msg.p7m"), "-O", "noverify")
}

func TestF_Sign_MissingOptions(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("x"))

	_, err := executeCommand(rootCmd, "sign",
		"--cert", tc.path("alice.crt"),
		"--key", tc.path("alice.key"),
		"--in", tc.path("msg.txt"),
	)
	if k, ok := errstack.KindOf(err); !ok || k != errstack.InvalidOption {
		t.Fatalf("KindOf(%v) = %v, %v", err, k, ok)
	}
}

func TestF_Sign_UnknownOption(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("x"))

	_, err := executeCommand(rootCmd, "sign",
		"--cert", tc.path("alice.crt"),
		"--key", tc.path("alice.key"),
		"--in", tc.path("msg.txt"),
		"-O", "binary,bogus",
	)
	if k, _ := errstack.KindOf(err); k != errstack.InvalidOption {
		t.Fatalf("kind = %v, want invalid_option", k)
	}

	var buf bytes.Buffer
	printError(&buf, err)
	if !strings.Contains(buf.String(), "unknown option") || !strings.Contains(buf.String(), "bogus") {
		t.Errorf("printError() = %q", buf.String())
	}
}

func TestF_Sign_KeyMismatch(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("msg.txt", []byte("x"))

	_, err := executeCommand(rootCmd, "sign",
		"--cert", tc.path("alice.crt"),
		"--key", tc.path("bob.key"),
		"--in", tc.path("msg.txt"),
		"-O", "binary",
	)
	if k, _ := errstack.KindOf(err); k != errstack.CryptoEngineError {
		t.Fatalf("kind = %v, want crypto_engine_error", k)
	}
}

func TestF_Sign_MissingRequiredFlags(t *testing.T) {
	if _, err := executeCommand(rootCmd, "sign", "-O", "binary"); err == nil {
		t.Fatal("expected required flag error")
	}
}

// =============================================================================
// Encrypt / Decrypt Tests
// =============================================================================

func TestF_EncryptDecrypt_MultipleRecipients(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("secret.txt", []byte("top secret"))

	tc.run("encrypt",
		"--recipient", tc.path("alice.crt"),
		"--recipient", tc.path("bob.crt"),
		"--in", tc.path("secret.txt"),
		"--cipher", "aes_256_cbc",
		"-O", "binary",
		"--pem",
		"--out", tc.path("secret.p7m"),
	)

	p7, err := pkcs7.ParsePEM(tc.readFile("secret.p7m"))
	if err != nil {
		t.Fatalf("ParsePEM() error = %v", err)
	}
	if p7.RecipientCount() != 2 {
		t.Errorf("RecipientCount() = %d, want 2", p7.RecipientCount())
	}

	for _, who := range []string{"alice", "bob"} {
		t.Run(who, func(t *testing.T) {
			out := tc.run("decrypt",
				"--in", tc.path("secret.p7m"),
				"--key", tc.path(who+".key"),
				"--cert", tc.path(who+".crt"),
			)
			if out != "top secret" {
				t.Errorf("decrypt output = %q", out)
			}
		})
	}
}

func TestF_Decrypt_KeyMismatch(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("secret.txt", []byte("for bob"))
	tc.run("encrypt", "--recipient", tc.path("bob.crt"), "--in", tc.path("secret.txt"),
		"-O", "binary", "--out", tc.path("secret.p7m"))

	_, err := executeCommand(rootCmd, "decrypt",
		"--in", tc.path("secret.p7m"),
		"--key", tc.path("alice.key"),
		"--cert", tc.path("bob.crt"),
	)
	if k, _ := errstack.KindOf(err); k != errstack.CryptoEngineError {
		t.Fatalf("kind = %v, want crypto_engine_error (err = %v)", k, err)
	}
}

func TestF_Decrypt_WrongRecipient(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("secret.txt", []byte("for bob"))
	tc.run("encrypt", "--recipient", tc.path("bob.crt"), "--in", tc.path("secret.txt"),
		"-O", "binary", "--out", tc.path("secret.p7m"))

	_, err := executeCommand(rootCmd, "decrypt",
		"--in", tc.path("secret.p7m"),
		"--key", tc.path("alice.key"),
		"--cert", tc.path("alice.crt"),
	)
	if k, _ := errstack.KindOf(err); k != errstack.CryptoEngineError {
		t.Fatalf("kind = %v, want crypto_engine_error (err = %v)", k, err)
	}
}

func TestF_Encrypt_UnknownCipher(t *testing.T) {
	tc := newTestContext(t)
	tc.writeFile("secret.txt", []byte("x"))

	_, err := executeCommand(rootCmd, "encrypt",
		"--recipient", tc.path("bob.crt"),
		"--in", tc.path("secret.txt"),
		"--cipher", "rc4",
		"-O", "binary",
	)
	if k, _ := errstack.KindOf(err); k != errstack.InvalidOption {
		t.Fatalf("kind = %v, want invalid_option", k)
	}
}

func TestF_Encrypt_StdinInput(t *testing.T) {
	tc := newTestContext(t)
	rootCmd.SetIn(strings.NewReader("piped"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	tc.run("encrypt", "--recipient", tc.path("bob.crt"), "--in", "-",
		"-O", "binary", "--out", tc.path("piped.p7m"))

	out := tc.run("decrypt", "--in", tc.path("piped.p7m"), "--key", tc.path("bob.key"), "--cert", tc.path("bob.crt"))
	if out != "piped" {
		t.Errorf("decrypt output = %q", out)
	}
}

func TestF_Decrypt_MissingFile(t *testing.T) {
	tc := newTestContext(t)
	_, err := executeCommand(rootCmd, "decrypt", "--in", tc.path("nope.p7m"),
		"--key", tc.path("bob.key"), "--cert", tc.path("bob.crt"))
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Fatalf("err = %v", err)
	}
}
