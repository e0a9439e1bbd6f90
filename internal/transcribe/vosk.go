package transcribe

import (
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

// Vosk wraps a Vosk model and one Kaldi recognizer bound to it.
type Vosk struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

// Compile-time interface satisfaction check.
var _ Recognizer = (*Vosk)(nil)

// NewVosk loads the Vosk model directory at modelPath. The caller must call
// Close() when done.
func NewVosk(modelPath string, sampleRate int) (*Vosk, error) {
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load vosk model %q: %w", modelPath, err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("transcribe: create vosk recognizer: %w", err)
	}

	return &Vosk{model: model, rec: rec}, nil
}

// Accept feeds pcm to the recognizer.
func (v *Vosk) Accept(pcm []byte) (bool, error) {
	switch rc := v.rec.AcceptWaveform(pcm); rc {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("transcribe: vosk accept waveform failed (code %d)", rc)
	}
}

// Result returns the finalized utterance.
func (v *Vosk) Result() (string, error) {
	return decodeFinal(v.rec.Result())
}

// Partial returns the current hypothesis.
func (v *Vosk) Partial() (string, error) {
	return decodePartial(v.rec.PartialResult())
}

// Flush forces the pending utterance to be finalized.
func (v *Vosk) Flush() (string, error) {
	return decodeFinal(v.rec.FinalResult())
}

// Reset drops any pending utterance.
func (v *Vosk) Reset() {
	v.rec.Reset()
}

// Close releases the recognizer and model.
func (v *Vosk) Close() error {
	if v.rec != nil {
		v.rec.Free()
		v.rec = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
