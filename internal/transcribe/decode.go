package transcribe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// voskResponse covers both response shapes Vosk emits: {"text": ...} for
// finalized utterances and {"partial": ...} for hypotheses.
type voskResponse struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// decodeFinal extracts the utterance text from a Vosk Result or FinalResult
// response. A well-formed response without a text field decodes to "".
func decodeFinal(raw string) (string, error) {
	r, err := decodeResponse(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.Text), nil
}

// decodePartial extracts the hypothesis from a Vosk PartialResult response.
func decodePartial(raw string) (string, error) {
	r, err := decodeResponse(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(r.Partial), nil
}

func decodeResponse(raw string) (voskResponse, error) {
	var r voskResponse
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return voskResponse{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return r, nil
}
