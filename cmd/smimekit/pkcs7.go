package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remiblancher/smimekit/internal/api/service"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Envelope data for one or more recipients",
	Long: `Encrypt data into a PKCS7 enveloped-data structure.

Every certificate of every --recipient file becomes a recipient. At least one
option is required; "binary" leaves the data untouched while "text" prepends a
text/plain MIME header.

Examples:
  smimekit encrypt --recipient bob.crt --in secret.txt -O binary --out secret.p7m
  smimekit encrypt --recipient team.pem --in secret.txt -O binary --cipher aes_256_cbc --pem`,
	RunE: runEncrypt,
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Open an enveloped-data structure",
	Long: `Decrypt a PKCS7 enveloped-data structure (DER or PEM) with a private key.

--cert selects the recipient entry to open and must match --key.

Examples:
  smimekit decrypt --in secret.p7m --key bob.key --cert bob.crt --out secret.txt`,
	RunE: runDecrypt,
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign data",
	Long: `Sign data into a PKCS7 signed-data structure.

Use -O detached to leave the content out of the structure and -O nocerts to
leave out the signer certificate. --extra adds certificates, typically
intermediate CAs.

Examples:
  smimekit sign --cert alice.crt --key alice.key --in msg.txt -O binary --out msg.p7m
  smimekit sign --cert alice.crt --key alice.key --extra sub-ca.crt --in msg.txt -O detached,binary --pem`,
	RunE: runSign,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <pkcs7-file>",
	Short: "Verify a signed-data structure",
	Long: `Verify the signatures of a PKCS7 signed-data structure (DER or PEM).

--data supplies the content of a detached signature. --ca loads trust anchors
for certificate chain validation, skipped entirely with -O noverify. The
verified content is written to --out when given.

Examples:
  smimekit verify msg.p7m --ca root.crt -O binary --out msg.txt
  smimekit verify msg.p7s --data msg.txt --ca root.crt -O binary
  smimekit verify msg.p7m -O noverify`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var (
	encryptRecipients []string
	encryptInput      string
	encryptOutput     string
	encryptCipher     string
	encryptOptions    []string
	encryptPEM        bool

	decryptInput    string
	decryptKey      string
	decryptPassword string
	decryptCert     string
	decryptOutput   string

	signCert     string
	signKey      string
	signPassword string
	signExtra    []string
	signInput    string
	signOutput   string
	signOptions  []string
	signPEM      bool

	verifyCerts   []string
	verifyCAs     []string
	verifyData    string
	verifyOutput  string
	verifyOptions []string
)

func init() {
	// encrypt
	ef := encryptCmd.Flags()
	ef.StringArrayVar(&encryptRecipients, "recipient", nil, "Recipient certificate PEM file (repeatable)")
	ef.StringVar(&encryptInput, "in", "", "Input file, - for stdin (required)")
	ef.StringVar(&encryptOutput, "out", "", "Output file (default: stdout)")
	ef.StringVar(&encryptCipher, "cipher", pkcs7.CipherDESEDE3CBC.Name(), "Content cipher")
	ef.StringSliceVarP(&encryptOptions, "options", "O", nil, "Options (comma separated or repeated)")
	ef.BoolVar(&encryptPEM, "pem", false, "Write PEM instead of DER")
	_ = encryptCmd.MarkFlagRequired("recipient")
	_ = encryptCmd.MarkFlagRequired("in")

	// decrypt
	df := decryptCmd.Flags()
	df.StringVar(&decryptInput, "in", "", "PKCS7 file, DER or PEM, - for stdin (required)")
	df.StringVar(&decryptKey, "key", "", "Private key PEM file (required)")
	df.StringVar(&decryptPassword, "password", "", "Password of an encrypted key")
	df.StringVar(&decryptCert, "cert", "", "Recipient certificate PEM file (required)")
	df.StringVar(&decryptOutput, "out", "", "Output file (default: stdout)")
	_ = decryptCmd.MarkFlagRequired("in")
	_ = decryptCmd.MarkFlagRequired("key")
	_ = decryptCmd.MarkFlagRequired("cert")

	// sign
	sf := signCmd.Flags()
	sf.StringVar(&signCert, "cert", "", "Signer certificate PEM file (required)")
	sf.StringVar(&signKey, "key", "", "Signer private key PEM file (required)")
	sf.StringVar(&signPassword, "password", "", "Password of an encrypted key")
	sf.StringArrayVar(&signExtra, "extra", nil, "Additional certificates PEM file (repeatable)")
	sf.StringVar(&signInput, "in", "", "Input file, - for stdin (required)")
	sf.StringVar(&signOutput, "out", "", "Output file (default: stdout)")
	sf.StringSliceVarP(&signOptions, "options", "O", nil, "Options (comma separated or repeated)")
	sf.BoolVar(&signPEM, "pem", false, "Write PEM instead of DER")
	_ = signCmd.MarkFlagRequired("cert")
	_ = signCmd.MarkFlagRequired("key")
	_ = signCmd.MarkFlagRequired("in")

	// verify
	vf := verifyCmd.Flags()
	vf.StringArrayVar(&verifyCerts, "certs", nil, "Extra signer certificates PEM file (repeatable)")
	vf.StringArrayVar(&verifyCAs, "ca", nil, "Trust anchor PEM file (repeatable)")
	vf.StringVar(&verifyData, "data", "", "Content of a detached signature")
	vf.StringVar(&verifyOutput, "out", "", "Write the verified content to this file")
	vf.StringSliceVarP(&verifyOptions, "options", "O", nil, "Options (comma separated or repeated)")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	recipients, err := readAll(cmd, encryptRecipients)
	if err != nil {
		return err
	}
	plaintext, err := readInput(cmd, encryptInput)
	if err != nil {
		return err
	}

	p7, err := newService().Encrypt(cmd.Context(), service.EncryptInput{
		Recipients: recipients,
		Plaintext:  plaintext,
		Cipher:     encryptCipher,
		Options:    encryptOptions,
	})
	if err != nil {
		return err
	}
	return writeStructure(cmd, encryptOutput, p7, encryptPEM)
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	structure, err := readInput(cmd, decryptInput)
	if err != nil {
		return err
	}
	key, err := readInput(cmd, decryptKey)
	if err != nil {
		return err
	}
	cert, err := readInput(cmd, decryptCert)
	if err != nil {
		return err
	}

	data, err := newService().Decrypt(cmd.Context(), service.DecryptInput{
		Structure:   structure,
		Key:         key,
		KeyPassword: []byte(decryptPassword),
		Certificate: cert,
	})
	if err != nil {
		return err
	}
	return writeOutput(cmd, decryptOutput, data)
}

func runSign(cmd *cobra.Command, args []string) error {
	cert, err := readInput(cmd, signCert)
	if err != nil {
		return err
	}
	key, err := readInput(cmd, signKey)
	if err != nil {
		return err
	}
	extra, err := readAll(cmd, signExtra)
	if err != nil {
		return err
	}
	content, err := readInput(cmd, signInput)
	if err != nil {
		return err
	}

	p7, err := newService().Sign(cmd.Context(), service.SignInput{
		Certificate: cert,
		Key:         key,
		KeyPassword: []byte(signPassword),
		ExtraCerts:  extra,
		Content:     content,
		Options:     signOptions,
	})
	if err != nil {
		return err
	}
	return writeStructure(cmd, signOutput, p7, signPEM)
}

func runVerify(cmd *cobra.Command, args []string) error {
	structure, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	certs, err := readAll(cmd, verifyCerts)
	if err != nil {
		return err
	}
	anchors, err := readAll(cmd, verifyCAs)
	if err != nil {
		return err
	}

	var detached []byte
	if verifyData != "" {
		if detached, err = readInput(cmd, verifyData); err != nil {
			return err
		}
		if detached == nil {
			detached = []byte{}
		}
	}

	ok, content, err := newService().Verify(cmd.Context(), service.VerifyInput{
		Structure:    structure,
		Certificates: certs,
		TrustAnchors: anchors,
		Detached:     detached,
		Options:      verifyOptions,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("verification failed")
	}

	if verifyOutput != "" {
		if err := writeOutput(cmd, verifyOutput, content); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Verification successful")
	return nil
}

// writeStructure writes a structure as DER, or PEM when asPEM is set.
func writeStructure(cmd *cobra.Command, path string, p7 *pkcs7.PKCS7, asPEM bool) error {
	if asPEM {
		return writeOutput(cmd, path, p7.PEM())
	}
	return writeOutput(cmd, path, p7.DER())
}
