package pkcs7

import (
	"strings"

	"github.com/remiblancher/smimekit/pkg/errstack"
)

// Flags is a bitmask of options that change signing, verification,
// enveloping and S/MIME output.
type Flags uint32

const (
	FlagText          Flags = 0x1
	FlagNoCerts       Flags = 0x2
	FlagNoSigs        Flags = 0x4
	FlagNoChain       Flags = 0x8
	FlagNoIntern      Flags = 0x10
	FlagNoVerify      Flags = 0x20
	FlagDetached      Flags = 0x40
	FlagBinary        Flags = 0x80
	FlagNoAttr        Flags = 0x100
	FlagNoSMIMECap    Flags = 0x200
	FlagNoOldMIMEType Flags = 0x400
	FlagCRLFEOL       Flags = 0x800

	// Accepted and carried in the mask; no operation reads them.
	FlagStream      Flags = 0x1000
	FlagNoCRL       Flags = 0x2000
	FlagPartial     Flags = 0x4000
	FlagReuseDigest Flags = 0x8000
)

// flagTable is the complete name to bit mapping. Adding an option is one
// entry here.
var flagTable = [...]struct {
	name string
	flag Flags
}{
	{"text", FlagText},
	{"nocerts", FlagNoCerts},
	{"nosigs", FlagNoSigs},
	{"nochain", FlagNoChain},
	{"nointern", FlagNoIntern},
	{"noverify", FlagNoVerify},
	{"detached", FlagDetached},
	{"binary", FlagBinary},
	{"noattr", FlagNoAttr},
	{"nosmimecap", FlagNoSMIMECap},
	{"nooldmimetype", FlagNoOldMIMEType},
	{"crlfeol", FlagCRLFEOL},
	{"stream", FlagStream},
	{"nocrl", FlagNoCRL},
	{"partial", FlagPartial},
	{"reuse_digest", FlagReuseDigest},
}

var flagsByName = func() map[string]Flags {
	m := make(map[string]Flags, len(flagTable))
	for _, e := range flagTable {
		m[e.name] = e.flag
	}
	return m
}()

// FlagNames returns every accepted option name in table order.
func FlagNames() []string {
	names := make([]string, len(flagTable))
	for i, e := range flagTable {
		names[i] = e.name
	}
	return names
}

// DecodeFlags ORs the named options together. Matching is exact and case
// sensitive. The first unknown name fails the whole call with an
// InvalidOption error naming it. An empty list decodes to zero.
func DecodeFlags(names []string) (Flags, error) {
	var flags Flags
	for _, name := range names {
		f, ok := flagsByName[name]
		if !ok {
			return 0, errstack.Raise(errstack.InvalidOption, ErrUnknownOption, name)
		}
		flags |= f
	}
	return flags, nil
}

// RequireFlags is DecodeFlags for operations that need at least one option
// (encrypt, sign, verify and S/MIME write). An empty list is rejected before
// any name is looked at.
func RequireFlags(names []string) (Flags, error) {
	if len(names) == 0 {
		return 0, errstack.Raise(errstack.InvalidOption, ErrEmptyOptions, "")
	}
	return DecodeFlags(names)
}

// Has reports whether every bit of f is set.
func (flags Flags) Has(f Flags) bool { return flags&f == f }

// Names lists the set options in table order.
func (flags Flags) Names() []string {
	var names []string
	for _, e := range flagTable {
		if flags.Has(e.flag) {
			names = append(names, e.name)
		}
	}
	return names
}

// String joins the set option names with commas.
func (flags Flags) String() string {
	if flags == 0 {
		return "none"
	}
	return strings.Join(flags.Names(), ",")
}
