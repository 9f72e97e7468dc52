package render

import (
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Encoding is the character set of a rendered document.
type Encoding string

const (
	EncodingUTF8  Encoding = "UTF-8"
	EncodingASCII Encoding = "ASCII"
)

// Charset is the IANA name declared in the document and content type.
func (e Encoding) Charset() string {
	if e == EncodingASCII {
		return "us-ascii"
	}
	return "utf-8"
}

// apply rewrites every non-ASCII rune as a numeric character reference when
// the encoding is ASCII. Rendered documents keep non-ASCII text only inside
// character data and attribute values, where references are valid.
func (e Encoding) apply(doc []byte) []byte {
	if e != EncodingASCII {
		return doc
	}
	ascii := true
	for _, b := range doc {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return doc
	}
	out := make([]byte, 0, len(doc)+len(doc)/4)
	for len(doc) > 0 {
		r, size := utf8.DecodeRune(doc)
		if r < utf8.RuneSelf {
			out = append(out, doc[0])
		} else {
			out = append(out, "&#"...)
			out = strconv.AppendInt(out, int64(r), 10)
			out = append(out, ';')
		}
		doc = doc[size:]
	}
	return out
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanSize formats a byte count with binary multiples, e.g. "1.5 MB".
func HumanSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	formatted := strconv.FormatFloat(value, 'f', 1, 64)
	formatted = strings.TrimSuffix(formatted, ".0")
	return formatted + " " + sizeUnits[unit]
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PubDate converts a backend date to RFC 1123 form. Unknown formats pass through.
func PubDate(value string) string {
	if t, ok := parseDate(value); ok {
		return t.Format(time.RFC1123Z)
	}
	return strings.TrimSpace(value)
}

// DisplayDate is the short form used on the HTML page.
func DisplayDate(value string) string {
	if t, ok := parseDate(value); ok {
		return t.Format("Jan 2, 2006")
	}
	return strings.TrimSpace(value)
}

// FileExtension returns the extension without a dot, from the title when it
// has one and from the MIME type otherwise.
func FileExtension(title, mimeType string) string {
	if ext := path.Ext(strings.TrimSpace(title)); len(ext) > 1 && !strings.ContainsAny(ext, " \t") {
		return strings.ToLower(ext[1:])
	}
	if mimeType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}
