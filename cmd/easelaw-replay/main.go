// Command easelaw-replay runs a WAV file through the same recognition loop
// as the live app and prints the resulting transcript, optionally scoring it
// against a reference text.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/easelaw/internal/audio"
	"github.com/chaz8081/easelaw/internal/config"
	"github.com/chaz8081/easelaw/internal/session"
	"github.com/chaz8081/easelaw/internal/transcribe"
	"github.com/chaz8081/easelaw/internal/transcript"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: built-in defaults)")
	wavPath := flag.String("wav", "", "16-bit mono WAV file to transcribe (required)")
	ref := flag.String("ref", "", "reference text; prints the word error rate when set")
	save := flag.Bool("save", false, "save the transcript like the Save button does")
	realtime := flag.Bool("realtime", false, "pace chunks at playback speed")
	flag.Parse()

	if *wavPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := replay(ctx, cfg, logger, *wavPath, *ref, *save, *realtime); err != nil {
		stop()
		log.Fatal(err)
	}
}

func replay(ctx context.Context, cfg *config.Config, logger *slog.Logger, wavPath, ref string, save, realtime bool) error {
	src, err := audio.OpenWAV(wavPath, cfg.Audio.SampleRate, cfg.Audio.BlockSize, realtime)
	if err != nil {
		return err
	}

	rec, err := transcribe.New(&cfg.Recognizer, int(cfg.Audio.SampleRate))
	if err != nil {
		return err
	}
	defer rec.Close()

	h := &collector{}
	s := session.New(rec, src, h, session.WithLogger(logger))

	start := time.Now()
	if err := s.Start(ctx); err != nil {
		return err
	}

	select {
	case <-src.Done():
	case <-ctx.Done():
		_ = s.Stop(session.DefaultStopTimeout)
		// rec is closed on return; the loop may still be inside it.
		<-s.Done()
		return ctx.Err()
	}
	if err := s.Drain(ctx); err != nil {
		return err
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	elapsed := time.Since(start)

	audioDur := time.Duration(src.DurationMs()) * time.Millisecond
	st := s.Stats()
	fmt.Printf("Audio:    %s (%d chunks)\n", audioDur, st.Chunks)
	fmt.Printf("Elapsed:  %s", elapsed.Round(time.Millisecond))
	if audioDur > 0 {
		fmt.Printf(" (%.2fx realtime)", elapsed.Seconds()/audioDur.Seconds())
	}
	fmt.Println()
	fmt.Printf("Finals:   %d, partials: %d, skipped: %d\n", st.Finals, st.Partials, st.Skipped)
	fmt.Printf("Transcript:\n%s\n", strings.TrimSpace(h.buf.String()))

	if ref != "" {
		res := transcribe.ComputeWER(ref, strings.Join(h.finals, " "))
		fmt.Printf("WER:      %.1f%% (%d sub, %d ins, %d del over %d words)\n",
			res.WER*100, res.Substitutions, res.Insertions, res.Deletions, res.RefWords)
	}

	if save {
		saver := transcript.Saver{Dir: cfg.Transcript.Dir, Prefix: cfg.Transcript.Prefix}
		path, err := saver.Save(&h.buf)
		if err != nil {
			return fmt.Errorf("saving transcript: %w", err)
		}
		fmt.Printf("Saved:    %s\n", path)
	}
	return nil
}

// collector assembles the transcript the way the window does. Its methods
// run on the session loop only.
type collector struct {
	buf    transcript.Buffer
	finals []string
}

func (c *collector) OnFinal(text string) {
	c.buf.AppendFinal(text)
	c.finals = append(c.finals, text)
}

func (c *collector) OnPartial(text string) {
	c.buf.AppendPartial(text)
}

func (c *collector) OnError(error) {}
