package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/remiblancher/smimekit/internal/testpki"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	resetFlags()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string

	ca    *testpki.Identity
	alice *testpki.Identity
	bob   *testpki.Identity
}

// newTestContext creates a test context with a temp directory and a small
// PKI written to it: ca.crt, alice.{crt,key} and bob.{crt,key}.
func newTestContext(t *testing.T) *testContext {
	t.Helper()
	tc := &testContext{t: t, tempDir: t.TempDir()}

	tc.ca = testpki.CA(t, "CLI Test CA")
	tc.alice = testpki.Issue(t, tc.ca, testpki.RSAKey(t), "Alice")
	tc.bob = testpki.Issue(t, tc.ca, testpki.RSAKey(t), "Bob")

	tc.writeFile("ca.crt", tc.ca.CertPEM())
	tc.writeFile("alice.crt", tc.alice.CertPEM())
	tc.writeFile("alice.key", tc.alice.KeyPEM(t))
	tc.writeFile("bob.crt", tc.bob.CertPEM())
	tc.writeFile("bob.key", tc.bob.KeyPEM(t))
	return tc
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name string, content []byte) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}

// readFile reads a file from the temp directory.
func (tc *testContext) readFile(name string) []byte {
	tc.t.Helper()
	data, err := os.ReadFile(tc.path(name))
	if err != nil {
		tc.t.Fatalf("Failed to read file %s: %v", name, err)
	}
	return data
}

// run executes the root command and fails the test on error.
func (tc *testContext) run(args ...string) string {
	tc.t.Helper()
	out, err := executeCommand(rootCmd, args...)
	if err != nil {
		tc.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

// resetFlags restores every package-level flag variable and clears the
// Changed marks so required-flag checks start from scratch.
// t.Parallel() is not used because Cobra commands share global flag state.
func resetFlags() {
	auditLogPath = ""
	logLevel = ""
	logFormat = "text"

	resetPEMFlags()
	resetPKCS7Flags()
	resetSMIMEFlags()
	resetServeFlags()
	auditLogFile = ""

	var unmark func(c *cobra.Command)
	unmark = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			// cobra's own help and version flags keep their value otherwise
			if f.Value.Type() == "bool" {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
		for _, sub := range c.Commands() {
			unmark(sub)
		}
	}
	unmark(rootCmd)
}

func resetPEMFlags() {
	pemKeyPassword = ""
}

func resetPKCS7Flags() {
	encryptRecipients = nil
	encryptInput = ""
	encryptOutput = ""
	encryptCipher = "des_ede3_cbc"
	encryptOptions = nil
	encryptPEM = false

	decryptInput = ""
	decryptKey = ""
	decryptPassword = ""
	decryptCert = ""
	decryptOutput = ""

	signCert = ""
	signKey = ""
	signPassword = ""
	signExtra = nil
	signInput = ""
	signOutput = ""
	signOptions = nil
	signPEM = false

	verifyCerts = nil
	verifyCAs = nil
	verifyData = ""
	verifyOutput = ""
	verifyOptions = nil
}

func resetSMIMEFlags() {
	smimeWriteData = ""
	smimeWriteOutput = ""
	smimeWriteOptions = nil

	smimeReadOutput = ""
	smimeReadContentOut = ""
	smimeReadPEM = false
}

func resetServeFlags() {
	serveConfigPath = ""
	serveHost = ""
	servePort = 0
	serveTLSCert = ""
	serveTLSKey = ""
}
