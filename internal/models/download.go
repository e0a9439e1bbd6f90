// Package models fetches recognizer models: the Vosk model zip, unpacked
// into a directory, or a single whisper ggml file.
package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaz8081/easelaw/internal/config"
)

// Download fetches the model configured in cfg to cfg.ModelPath, writing
// progress to out.
func Download(ctx context.Context, cfg *config.RecognizerConfig, out io.Writer) error {
	switch cfg.Backend {
	case "vosk":
		return DownloadVosk(ctx, cfg.ModelURL, cfg.ModelPath, out)
	case "whisper":
		return DownloadWhisper(ctx, cfg.ModelURL, cfg.ModelPath, out)
	default:
		return fmt.Errorf("models: unknown backend %q", cfg.Backend)
	}
}

// DownloadVosk downloads the model zip at url and unpacks it as destDir.
// A single top-level directory in the archive is stripped. An existing
// non-empty destDir is left alone.
func DownloadVosk(ctx context.Context, url, destDir string, out io.Writer) error {
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		fmt.Fprintf(out, "  Vosk model already exists: %s\n", destDir)
		return nil
	}

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	fmt.Fprintf(out, "  Downloading Vosk model...\n")
	fmt.Fprintf(out, "  URL: %s\n", url)
	fmt.Fprintf(out, "  Destination: %s\n", destDir)

	zipPath := destDir + ".zip.tmp"
	if err := fetch(ctx, url, zipPath, out); err != nil {
		return err
	}
	defer os.Remove(zipPath)

	staging, err := os.MkdirTemp(parent, ".easelaw-unpack-*")
	if err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	fmt.Fprintf(out, "  Unpacking...\n")
	if err := unzip(zipPath, staging); err != nil {
		return err
	}

	root, err := archiveRoot(staging)
	if err != nil {
		return err
	}

	// An empty directory left by a failed attempt would block the rename.
	_ = os.Remove(destDir)
	if err := os.Rename(root, destDir); err != nil {
		return fmt.Errorf("moving model into place: %w", err)
	}

	fmt.Fprintf(out, "  Vosk model installed.\n")
	return nil
}

// DownloadWhisper downloads the ggml model at url to dest. An existing
// non-empty dest is left alone.
func DownloadWhisper(ctx context.Context, url, dest string, out io.Writer) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		fmt.Fprintf(out, "  Whisper model already exists: %s (%.0f MB)\n", dest, float64(info.Size())/(1024*1024))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	fmt.Fprintf(out, "  Downloading whisper model...\n")
	fmt.Fprintf(out, "  URL: %s\n", url)
	fmt.Fprintf(out, "  Destination: %s\n", dest)

	// Write to temp file first, then rename (atomic)
	tmpPath := dest + ".tmp"
	if err := fetch(ctx, url, tmpPath, out); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}
	return nil
}

// fetch downloads url to path, removing path on failure.
func fetch(ctx context.Context, url, path string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		out:    out,
		total:  resp.ContentLength,
		label:  filepath.Base(url),
	}

	written, err := io.Copy(pr, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("writing model file: %w", err)
	}

	fmt.Fprintf(out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))
	return nil
}

// unzip extracts src into dir. Entries that would land outside dir are
// rejected.
func unzip(src, dir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening model archive: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target, err := safeJoin(dir, zf.Name)
		if err != nil {
			return err
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return fmt.Errorf("extracting %s: %w", zf.Name, err)
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	in, err := zf.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin joins an archive entry name onto dir, refusing names that
// escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("model archive entry %q escapes the destination", name)
	}
	return target, nil
}

// archiveRoot returns the single top-level directory of an unpacked
// archive, or dir itself when there is none.
func archiveRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("model archive is empty")
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
