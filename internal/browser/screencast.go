package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/automation"
)

// errNoFrames is returned by Stop when the page never produced a frame.
var errNoFrames = errors.New("no frames captured")

// screencast pipes CDP screencast frames (JPEG) into ffmpeg, which encodes the mp4.
type screencast struct {
	page        *rod.Page
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	cancel      context.CancelFunc
	done        chan struct{}
	stopTimeout time.Duration
	output      string
	logger      *zap.Logger

	mu       sync.Mutex
	frames   int
	writeErr error

	stopOnce sync.Once
	stopErr  error
}

func ffmpegArgs(output string, fps int) []string {
	rate := strconv.Itoa(fps)
	return []string{
		"-y",
		"-f", "image2pipe",
		"-use_wallclock_as_timestamps", "1",
		"-c:v", "mjpeg",
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-r", rate,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		output,
	}
}

func startScreencast(ctx context.Context, p *rod.Page, output string, vp automation.Viewport, cfg Config, logger *zap.Logger) (*screencast, error) {
	// Not bound to ctx: the encoder must be allowed to finalize the file on Stop.
	cmd := exec.Command(cfg.FFmpegPath, ffmpegArgs(output, cfg.FrameRate)...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	evCtx, cancel := context.WithCancel(ctx)
	s := &screencast{
		page:        p,
		cmd:         cmd,
		stdin:       stdin,
		cancel:      cancel,
		done:        make(chan struct{}),
		stopTimeout: cfg.StopTimeout,
		output:      output,
		logger:      logger,
	}

	ep := p.Context(evCtx)
	wait := ep.EachEvent(func(e *proto.PageScreencastFrame) {
		s.write(e.Data)
		_ = proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(ep)
	})
	go func() {
		defer close(s.done)
		wait()
	}()

	quality, width, height, every := cfg.Quality, vp.Width, vp.Height, 1
	if err := (proto.PageStartScreencast{
		Format:        proto.PageStartScreencastFormatJpeg,
		Quality:       &quality,
		MaxWidth:      &width,
		MaxHeight:     &height,
		EveryNthFrame: &every,
	}).Call(p); err != nil {
		s.shutdown()
		_ = os.Remove(output)
		return nil, fmt.Errorf("start screencast: %w", err)
	}
	return s, nil
}

func (s *screencast) write(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return
	}
	if _, err := s.stdin.Write(frame); err != nil {
		s.writeErr = err
		return
	}
	s.frames++
}

// Stop ends the screencast and waits for ffmpeg to finalize the file.
func (s *screencast) Stop() error {
	s.stopOnce.Do(func() {
		_ = proto.PageStopScreencast{}.Call(s.page)
		waitErr := s.shutdown()

		s.mu.Lock()
		frames, writeErr := s.frames, s.writeErr
		s.mu.Unlock()

		switch {
		case writeErr != nil:
			s.stopErr = fmt.Errorf("write frame: %w", writeErr)
		case waitErr != nil:
			s.stopErr = fmt.Errorf("ffmpeg: %w", waitErr)
		case frames == 0:
			s.stopErr = errNoFrames
		}
		s.logger.Debug("screencast stopped", zap.String("output", s.output), zap.Int("frames", frames), zap.Error(s.stopErr))
	})
	return s.stopErr
}

// shutdown stops frame delivery, closes ffmpeg's input and waits for it, killing it after the stop timeout.
func (s *screencast) shutdown() error {
	s.cancel()
	<-s.done

	s.mu.Lock()
	_ = s.stdin.Close()
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(s.stopTimeout):
		_ = s.cmd.Process.Kill()
		<-done
		return fmt.Errorf("timed out after %s", s.stopTimeout)
	}
}
