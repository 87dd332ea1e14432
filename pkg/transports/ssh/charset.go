package ssh

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset is the character set of the device console, as set by
// "console character".
type Charset string

const (
	CharsetASCII Charset = "ascii"
	CharsetSJIS  Charset = "sjis"
	CharsetEUCJP Charset = "euc"
	CharsetUTF8  Charset = "utf8"
)

// ParseCharset maps a "console character" value to a Charset.
func ParseCharset(s string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "en.ascii":
		return CharsetASCII, nil
	case "sjis", "ja.sjis", "shift_jis":
		return CharsetSJIS, nil
	case "euc", "ja.euc", "euc-jp":
		return CharsetEUCJP, nil
	case "utf8", "ja.utf8", "utf-8":
		return CharsetUTF8, nil
	}
	return "", fmt.Errorf("unsupported charset: %s", s)
}

// encoding returns the x/text encoding for the charset. ASCII and UTF-8
// sessions need no transcoding.
func (c Charset) encoding() (encoding.Encoding, error) {
	switch c {
	case "", CharsetASCII, CharsetUTF8:
		return unicode.UTF8, nil
	case CharsetSJIS:
		return japanese.ShiftJIS, nil
	case CharsetEUCJP:
		return japanese.EUCJP, nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", c)
}

// decodeReader wraps device output so that it reads as UTF-8.
func (c Charset) decodeReader(r io.Reader) io.Reader {
	enc, err := c.encoding()
	if err != nil || enc == unicode.UTF8 {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}

// encodeString converts UTF-8 input to the device charset.
func (c Charset) encodeString(s string) (string, error) {
	enc, err := c.encoding()
	if err != nil || enc == unicode.UTF8 {
		return s, err
	}
	out, _, err := transform.String(enc.NewEncoder(), s)
	if err != nil {
		return "", fmt.Errorf("failed to encode %q as %s: %w", s, c, err)
	}
	return out, nil
}
