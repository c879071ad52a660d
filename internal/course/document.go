package course

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MIMETypePDF is the only document type the file picker produces.
const MIMETypePDF = "application/pdf"

// Document is an uploaded file as received from the file picker: base64
// bytes plus a MIME type.
type Document struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Decode returns the raw bytes of the document.
func (d Document) Decode() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(stripDataURL(d.Data))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return raw, nil
}

// Check verifies the document is non-empty, decodable base64 of an accepted
// type.
func (d Document) Check() error {
	if d.MIMEType != MIMETypePDF {
		return fmt.Errorf("unsupported document type %q", d.MIMEType)
	}
	raw, err := d.Decode()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("document is empty")
	}
	return nil
}

// Fingerprint returns the BLAKE2b-256 digest of the decoded bytes, hex
// encoded. Undecodable data is hashed as-is.
func (d Document) Fingerprint() string {
	raw, err := d.Decode()
	if err != nil {
		raw = []byte(d.Data)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// payload is the base64 string sent to the backend, without any data: URL
// prefix a browser FileReader may have left on it.
func (d Document) payload() string {
	return stripDataURL(d.Data)
}

func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
