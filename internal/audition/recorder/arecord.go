package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ArecordDevice captures from ALSA through the arecord binary. Each capture is
// written to a temp WAV file so arecord can finalize the header on interrupt.
type ArecordDevice struct {
	// Name is the ALSA PCM name passed with -D; empty uses the default.
	Name       string
	SampleRate int
	Binary     string
	TempDir    string
}

func (d *ArecordDevice) binary() string {
	if d.Binary != "" {
		return d.Binary
	}
	return "arecord"
}

func (d *ArecordDevice) Open(ctx context.Context) (Stream, error) {
	bin, err := exec.LookPath(d.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	out, err := exec.CommandContext(ctx, bin, "-l").CombinedOutput()
	if err := classifyArecord(out, err); err != nil {
		return nil, err
	}

	rate := d.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	return &arecordStream{bin: bin, device: d.Name, rate: rate, dir: d.TempDir}, nil
}

func classifyArecord(out []byte, runErr error) error {
	msg := strings.ToLower(string(out))
	switch {
	case strings.Contains(msg, "permission denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(string(out)))
	case strings.Contains(msg, "no soundcards found"):
		return ErrNoDevice
	case runErr != nil:
		return fmt.Errorf("%w: %v", ErrNoDevice, runErr)
	}
	return nil
}

type arecordStream struct {
	bin    string
	device string
	rate   int
	dir    string

	cmd    *exec.Cmd
	path   string
	stderr bytes.Buffer
}

func (s *arecordStream) Begin() error {
	if s.cmd != nil {
		return errors.New("already recording")
	}
	f, err := os.CreateTemp(s.dir, "audition-*.wav")
	if err != nil {
		return err
	}
	s.path = f.Name()
	_ = f.Close()

	args := []string{"-q", "-f", "S16_LE", "-c", "1", "-r", fmt.Sprint(s.rate), "-t", "wav"}
	if s.device != "" {
		args = append(args, "-D", s.device)
	}
	args = append(args, s.path)

	s.stderr.Reset()
	s.cmd = exec.Command(s.bin, args...)
	s.cmd.Stderr = &s.stderr
	if err := s.cmd.Start(); err != nil {
		s.cmd = nil
		_ = os.Remove(s.path)
		return err
	}
	return nil
}

func (s *arecordStream) End() ([]byte, error) {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil, errors.New("not recording")
	}
	// SIGINT lets arecord flush and rewrite the WAV header.
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = s.cmd.Process.Kill()
	}

	done := make(chan struct{})
	go func() {
		_ = s.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = s.cmd.Process.Kill()
		<-done
	}

	path := s.path
	s.cmd = nil
	s.path = ""
	defer os.Remove(path)

	if err := classifyArecord(s.stderr.Bytes(), nil); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Clean(path))
}

func (s *arecordStream) ContentType() string { return "audio/wav" }

func (s *arecordStream) Close() error {
	if s.cmd != nil {
		_, err := s.End()
		return err
	}
	return nil
}
