// Package codec turns raw connection bytes into text and back using a single
// process-wide character set.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "UTF-8"

const decodeBufferSize = 4096

var (
	ErrUnknownCharset = errors.New("unknown charset")
	ErrInvalidASCII   = errors.New("codec: invalid ASCII")
)

// aliases accepted on top of the IANA registry
var aliases = map[string]string{
	"utf8":    "utf-8",
	"latin-1": "iso-8859-1",
}

type strictness int

const (
	lenient strictness = iota
	strictUTF8
	strictASCII
)

// Codec is safe for concurrent use. Per-connection state lives in the
// Decoder returned by NewDecoder.
type Codec struct {
	name   string
	enc    encoding.Encoding
	strict strictness
}

// New resolves a charset by its IANA name or alias. UTF-8 and US-ASCII are
// decoded strictly: invalid input is an error rather than U+FFFD.
func New(charset string) (*Codec, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" {
		name = strings.ToLower(DefaultCharset)
	}
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}

	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		canonical = strings.ToUpper(name)
	}

	strict := lenient
	switch {
	case enc == unicode.UTF8:
		strict = strictUTF8
	case canonical == "US-ASCII":
		strict = strictASCII
	}

	return &Codec{
		name:   canonical,
		enc:    enc,
		strict: strict,
	}, nil
}

// MustNew is New for package-level defaults and tests.
func MustNew(charset string) *Codec {
	c, err := New(charset)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec) Name() string {
	return c.name
}

// Encode converts s to the configured charset. Runes the charset cannot
// represent are an error.
func (c *Codec) Encode(s string) ([]byte, error) {
	if c.strict == strictUTF8 {
		return []byte(s), nil
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode to %s: %w", c.name, err)
	}
	return b, nil
}

// NewDecoder returns a streaming decoder holding its own state.
func (c *Codec) NewDecoder() *Decoder {
	var t transform.Transformer
	switch c.strict {
	case strictUTF8:
		t = encoding.UTF8Validator
	case strictASCII:
		t = asciiValidator{}
	default:
		t = c.enc.NewDecoder()
	}
	t.Reset()
	return &Decoder{
		t:   t,
		dst: make([]byte, decodeBufferSize),
	}
}

// Decoder decodes a byte stream chunk by chunk. A multi-byte sequence split
// across chunks is held back until the rest of it arrives, so every returned
// string consists of whole characters. Not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// Decode returns the text completed by chunk. The result is empty when
// chunk only extends a pending partial sequence.
func (d *Decoder) Decode(chunk []byte) (string, error) {
	return d.transform(chunk, false)
}

// Flush finishes the stream. A sequence still pending is an error.
func (d *Decoder) Flush() (string, error) {
	return d.transform(nil, true)
}

// Pending reports how many bytes are waiting for the rest of a sequence.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) transform(chunk []byte, atEOF bool) (string, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case errors.Is(err, transform.ErrShortSrc) && !atEOF:
			d.pending = append([]byte(nil), src...)
			return out.String(), nil
		default:
			return "", err
		}
	}
}

// asciiValidator copies 7-bit input and fails on the first byte above 0x7F.
type asciiValidator struct{ transform.NopResetter }

func (asciiValidator) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
		err = transform.ErrShortDst
	}
	for i := 0; i < n; i++ {
		if src[i] >= utf8.RuneSelf {
			return i, i, ErrInvalidASCII
		}
		dst[i] = src[i]
	}
	return n, n, err
}
