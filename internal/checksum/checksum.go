// Package checksum computes content digests for manifests and stored files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Writer wraps w so that every byte written is also hashed.
type Writer struct {
	w io.Writer
	h hash.Hash
	n int64
}

// NewWriter returns a hashing writer in front of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, h: sha256.New()}
}

func (c *Writer) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.h.Write(p[:n])
	c.n += int64(n)
	return n, err
}

// Sum returns the hex digest of everything written so far.
func (c *Writer) Sum() string { return hex.EncodeToString(c.h.Sum(nil)) }

// Size returns the number of bytes written so far.
func (c *Writer) Size() int64 { return c.n }

// ETag formats a digest as a quoted HTTP entity tag.
func ETag(sum string) string { return `"` + sum + `"` }

// ParseETag strips quotes and a weak prefix from an If-Match value.
func ParseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
