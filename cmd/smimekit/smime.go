package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var smimeCmd = &cobra.Command{
	Use:   "smime",
	Short: "Convert between PKCS7 and S/MIME",
}

var smimeWriteCmd = &cobra.Command{
	Use:   "write <pkcs7-file>",
	Short: "Render a PKCS7 structure as S/MIME",
	Long: `Render a PKCS7 structure (DER or PEM) as an S/MIME message.

A signed structure with -O detached and --data becomes multipart/signed with
the data as first part. Anything else becomes an opaque application/pkcs7-mime
message.

Examples:
  smimekit smime write msg.p7s --data msg.txt -O detached --out msg.eml
  smimekit smime write secret.p7m -O binary --out secret.eml`,
	Args: cobra.ExactArgs(1),
	RunE: runSMIMEWrite,
}

var smimeReadCmd = &cobra.Command{
	Use:   "read <smime-file>",
	Short: "Extract the PKCS7 structure of an S/MIME message",
	Long: `Parse an S/MIME message and write its PKCS7 structure.

For multipart/signed messages the first part is written to --content-out.

Examples:
  smimekit smime read msg.eml --out msg.p7s --content-out msg.txt
  smimekit smime read secret.eml --pem`,
	Args: cobra.ExactArgs(1),
	RunE: runSMIMERead,
}

var (
	smimeWriteData    string
	smimeWriteOutput  string
	smimeWriteOptions []string

	smimeReadOutput     string
	smimeReadContentOut string
	smimeReadPEM        bool
)

func init() {
	wf := smimeWriteCmd.Flags()
	wf.StringVar(&smimeWriteData, "data", "", "Content of a detached signature")
	wf.StringVar(&smimeWriteOutput, "out", "", "Output file (default: stdout)")
	wf.StringSliceVarP(&smimeWriteOptions, "options", "O", nil, "Options (comma separated or repeated)")

	rf := smimeReadCmd.Flags()
	rf.StringVar(&smimeReadOutput, "out", "", "PKCS7 output file (default: stdout)")
	rf.StringVar(&smimeReadContentOut, "content-out", "", "Write the multipart/signed content to this file")
	rf.BoolVar(&smimeReadPEM, "pem", false, "Write PEM instead of DER")

	smimeCmd.AddCommand(smimeWriteCmd)
	smimeCmd.AddCommand(smimeReadCmd)
}

func runSMIMEWrite(cmd *cobra.Command, args []string) error {
	structure, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	content, err := readOptional(cmd, smimeWriteData)
	if err != nil {
		return err
	}

	out, err := newService().WriteSMIME(cmd.Context(), structure, content, smimeWriteOptions)
	if err != nil {
		return err
	}
	return writeOutput(cmd, smimeWriteOutput, out)
}

func runSMIMERead(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	p7, content, err := newService().ReadSMIME(cmd.Context(), text)
	if err != nil {
		return err
	}

	if smimeReadContentOut != "" {
		if content == nil {
			return fmt.Errorf("message has no separate content part")
		}
		if err := writeOutput(cmd, smimeReadContentOut, content); err != nil {
			return err
		}
	}
	return writeStructure(cmd, smimeReadOutput, p7, smimeReadPEM)
}
