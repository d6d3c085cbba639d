package hrmerge

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText decodes CSV bytes exported by spreadsheet tooling. It tries
// UTF-8 (with or without BOM), then GBK, and finally replaces invalid
// UTF-8 sequences. It never fails.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}
	if decoded, ok := decodeGBK(data); ok {
		return decoded
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func decodeGBK(data []byte) (string, bool) {
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
