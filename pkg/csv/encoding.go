package csv

import (
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// canonicalEncoding validates a declared encoding name against the IANA
// character set registry and returns its canonical name. The empty name means
// undeclared and is returned as is. No bytes are ever transcoded; the name is
// only attached to rows.
func canonicalEncoding(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", &ConfigError{Option: "Encoding", Message: "unknown character set " + name, Cause: err}
	}
	if enc == nil {
		// registered but without an implementation in x/text; the name is still valid
		return strings.ToUpper(name), nil
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return strings.ToUpper(name), nil
	}
	return canonical, nil
}
