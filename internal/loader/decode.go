package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var errReplacement = errors.New("decoder produced replacement characters")

// decodeAs decodes data with the named encoding. It fails instead of
// substituting U+FFFD for bytes the encoding cannot map.
func decodeAs(name string, data []byte) (string, error) {
	switch normalizeName(name) {
	case "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8")
		}
		return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
	case "ascii", "us-ascii":
		for i, b := range data {
			if b >= 0x80 {
				return "", fmt.Errorf("non-ascii byte 0x%02x at offset %d", b, i)
			}
		}
		return string(data), nil
	case "cp949", "euc-kr", "ks_c_5601-1987", "windows-949":
		return decodeStrict(korean.EUCKR, data)
	case "utf-16le":
		return decodeUTF16(data, unicode.LittleEndian)
	case "utf-16be":
		return decodeUTF16(data, unicode.BigEndian)
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	return decodeStrict(enc, data)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

func decodeStrict(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errReplacement
	}
	return string(out), nil
}

// decodeUTF16 honours a leading BOM and falls back to the given byte order
func decodeUTF16(data []byte, order unicode.Endianness) (string, error) {
	if len(data)%2 != 0 {
		return "", errors.New("odd-length utf-16 data")
	}
	enc := unicode.UTF16(order, unicode.ExpectBOM)
	if !hasUTF16BOM(data) {
		enc = unicode.UTF16(order, unicode.IgnoreBOM)
	}
	return decodeStrict(enc, data)
}

// utf16ByBOM reports the UTF-16 variant named by data's byte order mark
func utf16ByBOM(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF16LE):
		return "utf-16le", true
	case bytes.HasPrefix(data, bomUTF16BE):
		return "utf-16be", true
	}
	return "", false
}

func hasUTF16BOM(data []byte) bool {
	_, ok := utf16ByBOM(data)
	return ok
}
