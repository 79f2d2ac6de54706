package service

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/chatty/chat-server/internal/core/domain"
)

const maxImageBytes = 10 << 20

// decodeImage accepts either a data URL ("data:image/png;base64,....") or a
// bare base64 string and returns the raw bytes with their sniffed content
// type.
func decodeImage(payload string) ([]byte, string, error) {
	encoded := strings.TrimSpace(payload)

	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: image must be a base64 data URL", domain.ErrValidation)
		}
		encoded = data
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("%w: image is not valid base64", domain.ErrValidation)
	}
	contentType, err := imageType(raw)
	if err != nil {
		return nil, "", err
	}
	return raw, contentType, nil
}

// imageType validates raw image bytes and returns their content type. The
// type is always sniffed, never taken from the client.
func imageType(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: image is empty", domain.ErrValidation)
	}
	if len(raw) > maxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrValidation, maxImageBytes)
	}
	ct := http.DetectContentType(raw)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: payload is not an image", domain.ErrValidation)
	}
	return ct, nil
}
