// Package transcript assembles recognizer output into the running
// transcript shown to the user and saves it to disk.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Placeholder is appended while an utterance is still in progress.
const Placeholder = "... "

// DefaultPrefix is the file name prefix of saved transcripts.
const DefaultPrefix = "EaseLaw_Transcript"

// timestampLayout renders YYYYMMDD_HHMMSS.
const timestampLayout = "20060102_150405"

// ErrNothingToSave is returned by Save when the transcript is blank.
var ErrNothingToSave = errors.New("transcript: nothing to save")

// Buffer is the running transcript. It is not safe for concurrent use; the
// UI controller mutates it from its event loop only.
type Buffer struct {
	text string
}

// String returns the transcript as displayed.
func (b *Buffer) String() string {
	return b.text
}

// AppendFinal appends a finalized utterance as a sentence. Trailing periods
// are stripped first so that consecutive sentences never end in "..".
func (b *Buffer) AppendFinal(text string) {
	b.text = strings.TrimRight(b.text, ".") + " " + text + ". "
}

// AppendPartial marks that speech is in progress. The hypothesis itself is
// not shown; at most one placeholder is kept at the end of the buffer.
func (b *Buffer) AppendPartial(string) {
	if !strings.HasSuffix(b.text, Placeholder) {
		b.text += Placeholder
	}
}

// AppendNotice appends a status line separated by a blank line.
func (b *Buffer) AppendNotice(line string) {
	b.text += "\n\n" + line
}

// Saver writes transcripts to Dir as <Prefix>_<YYYYMMDD_HHMMSS>.txt.
type Saver struct {
	Dir    string
	Prefix string
	Now    func() time.Time
}

// Save writes the trimmed transcript to a new file and appends a
// confirmation line to b. A blank transcript appends a warning instead and
// returns ErrNothingToSave. Existing files are never overwritten.
func (s Saver) Save(b *Buffer) (string, error) {
	content := strings.TrimSpace(b.text)
	if content == "" {
		b.AppendNotice("⚠ Nothing to save!")
		return "", ErrNothingToSave
	}

	name := s.FileName()
	path := filepath.Join(s.dir(), name)
	if err := writeNew(path, []byte(content)); err != nil {
		b.AppendNotice(fmt.Sprintf("⚠ Could not save transcript: %v", err))
		return "", err
	}

	b.AppendNotice(fmt.Sprintf("✔ Transcript saved to '%s'", name))
	return path, nil
}

// FileName returns the name the next Save would write.
func (s Saver) FileName() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + now().Format(timestampLayout) + ".txt"
}

func (s Saver) dir() string {
	if s.Dir == "" {
		return "."
	}
	return s.Dir
}

// writeNew creates path exclusively and writes data to it.
func writeNew(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("transcript: creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("transcript: create %s: %w", filepath.Base(path), err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("transcript: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("transcript: sync %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("transcript: close %s: %w", filepath.Base(path), err)
	}
	return nil
}
