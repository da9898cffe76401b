package recognition

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/oshokin/access-terminal/internal/config"
)

// tokenKeys are the JSON envelope keys holding the identity id, by precedence.
var tokenKeys = []string{"studentId", "rollNo", "id"}

// ParseToken extracts the identity id from decoded QR text according to mode.
// It returns an empty string when mode requires a JSON envelope and none is found.
func ParseToken(text, mode string) string {
	text = strings.TrimSpace(text)

	switch mode {
	case config.QRPayloadRaw:
		return text
	case config.QRPayloadJSON:
		token, _ := envelopeToken(text)

		return token
	default:
		if token, ok := envelopeToken(text); ok {
			return token
		}

		return text
	}
}

func envelopeToken(text string) (string, bool) {
	if !strings.HasPrefix(text, "{") {
		return "", false
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()

	var envelope map[string]any
	if err := decoder.Decode(&envelope); err != nil {
		return "", false
	}

	for _, key := range tokenKeys {
		switch value := envelope[key].(type) {
		case string:
			if value = strings.TrimSpace(value); value != "" {
				return value, true
			}
		case json.Number:
			return value.String(), true
		}
	}

	return "", false
}
