// Package audiocodec decodes the data-URL audio payloads the browser
// recorder submits, of the form "data:audio/webm;codecs=opus;base64,<data>".
package audiocodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxBytes is the decoded size cap applied when none is configured.
const DefaultMaxBytes = 10 << 20 // 10 MiB

const audioMarker = "data:audio/"

var (
	// ErrMalformedFormat indicates the payload has no "<prefix>,<data>"
	// separator comma.
	ErrMalformedFormat = errors.New("malformed audio payload: missing data separator")

	// ErrNotAudio indicates the data-URL prefix is not an audio type.
	ErrNotAudio = errors.New("uploaded data is not audio")

	// ErrBase64Decode indicates the payload is not valid base64.
	ErrBase64Decode = errors.New("failed to decode base64 audio data")

	// ErrTooLarge indicates the decoded recording exceeds the size cap.
	ErrTooLarge = errors.New("audio exceeds size limit")
)

// Decoded is the result of a successful decode. Base64 keeps the submitted
// payload text because the document backend persists that form directly.
type Decoded struct {
	Bytes  []byte
	Base64 string
}

// Decode validates and decodes a data-URL audio payload. maxBytes <= 0
// selects DefaultMaxBytes. Each failure mode maps to its own sentinel.
func Decode(data string, maxBytes int) (*Decoded, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	prefix, encoded, found := strings.Cut(data, ",")
	if !found {
		return nil, ErrMalformedFormat
	}
	if !strings.HasPrefix(prefix, audioMarker) {
		return nil, ErrNotAudio
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBase64Decode, err)
	}

	if len(raw) > maxBytes {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, maxBytes)
	}

	return &Decoded{Bytes: raw, Base64: encoded}, nil
}
