package automation

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultTypingDelay       = 100 * time.Millisecond
	DefaultPublicPath        = "/api/recordings"
	// DefaultFallbackVideoURL is the demonstration video reported when a recording fails.
	DefaultFallbackVideoURL = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"
)

// Config controls where recordings go and how the browser is driven.
type Config struct {
	OutputDir         string
	PublicPath        string
	FallbackVideoURL  string
	NavigationTimeout time.Duration
	TypingDelay       time.Duration
	Viewport          Viewport
	Timings           Timings
}

func (c *Config) setDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = os.TempDir()
	}
	if c.PublicPath == "" {
		c.PublicPath = DefaultPublicPath
	}
	if c.FallbackVideoURL == "" {
		c.FallbackVideoURL = DefaultFallbackVideoURL
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.TypingDelay <= 0 {
		c.TypingDelay = DefaultTypingDelay
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = Viewport{Width: 1280, Height: 720}
	}
}

// Job is one recording to perform.
type Job struct {
	SessionID  string
	TargetURL  string
	Username   string
	Password   string
	UserPrompt string
}

// Result describes a recording. On failure only VideoURL is set, to the fallback video.
type Result struct {
	FilePath string
	VideoURL string
}

// Recorder records walkthroughs with a browser from the launcher.
type Recorder struct {
	launcher     Launcher
	cfg          Config
	login        Login
	interactions []Interaction
	logger       *zap.Logger
}

// NewRecorder creates a recorder. Zero config fields take the package defaults; Timings are used as given.
func NewRecorder(launcher Launcher, cfg Config, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.setDefaults()
	return &Recorder{
		launcher:     launcher,
		cfg:          cfg,
		login:        DefaultLogin(),
		interactions: DefaultInteractions(),
		logger:       logger,
	}
}

// RecordingPath returns the file a session is captured to.
func (r *Recorder) RecordingPath(sessionID string) string {
	return filepath.Join(r.cfg.OutputDir, "recordings", sessionID+".mp4")
}

// VideoURL returns the servable URL of a session's recording.
func (r *Recorder) VideoURL(sessionID string) string {
	return path.Join(r.cfg.PublicPath, sessionID+".mp4")
}

// Record runs the whole recording. The browser, page and capture are always released. On error the
// capture is stopped best-effort and the result carries the fallback video URL.
func (r *Recorder) Record(ctx context.Context, job Job) (res Result, err error) {
	log := r.logger.With(zap.String("session_id", job.SessionID))
	outPath := r.RecordingPath(job.SessionID)

	defer func() {
		if err != nil {
			log.Warn("recording failed, reporting fallback video", zap.Error(err))
			res = Result{VideoURL: r.cfg.FallbackVideoURL}
		}
	}()

	if err := os.MkdirAll(filepath.Dir(outPath), 0750); err != nil {
		return Result{}, fmt.Errorf("create recordings dir: %w", err)
	}

	browser, err := r.launcher.Launch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			log.Debug("browser close", zap.Error(cerr))
		}
	}()

	page, err := browser.NewPage(ctx, r.cfg.Viewport)
	if err != nil {
		return Result{}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Debug("page close", zap.Error(cerr))
		}
	}()

	capture, err := page.StartCapture(ctx, outPath)
	if err != nil {
		return Result{}, fmt.Errorf("start capture: %w", err)
	}
	defer func() {
		if err != nil && capture != nil {
			if stopErr := capture.Stop(); stopErr != nil {
				log.Debug("capture stop after failure", zap.Error(stopErr))
			}
		}
	}()
	log.Info("recording started", zap.String("output", outPath))

	if err := r.drive(ctx, log, page, job); err != nil {
		return Result{}, err
	}

	c := capture
	capture = nil
	if err := c.Stop(); err != nil {
		return Result{}, fmt.Errorf("stop capture: %w", err)
	}
	log.Info("recording completed", zap.String("output", outPath))
	return Result{FilePath: outPath, VideoURL: r.VideoURL(job.SessionID)}, nil
}

func (r *Recorder) drive(ctx context.Context, log *zap.Logger, page Page, job Job) error {
	t := r.cfg.Timings
	log.Info("navigating", zap.String("target_url", job.TargetURL))
	if err := page.Navigate(ctx, job.TargetURL, r.cfg.NavigationTimeout); err != nil {
		return fmt.Errorf("navigate to %s: %w", job.TargetURL, err)
	}
	if err := sleep(ctx, t.AfterNavigate); err != nil {
		return err
	}

	if job.Username != "" && job.Password != "" {
		entered, err := r.login.Perform(ctx, page, log, job.Username, job.Password, r.cfg.TypingDelay, t)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if !entered {
			log.Info("no login form found, continuing")
		}
	}

	if err := page.ScrollTo(ctx, 200); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	if err := sleep(ctx, t.AfterInitialScroll); err != nil {
		return err
	}
	for _, in := range r.interactions {
		if !in.Applies(job.UserPrompt) {
			continue
		}
		if err := in.Perform(ctx, page, t); err != nil {
			return fmt.Errorf("%s: %w", in.Name(), err)
		}
	}

	if err := page.ScrollToBottom(ctx); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	if err := sleep(ctx, t.AfterScrollBottom); err != nil {
		return err
	}
	if err := page.ScrollTo(ctx, 0); err != nil {
		return fmt.Errorf("scroll to top: %w", err)
	}
	if err := sleep(ctx, t.AfterScrollTop); err != nil {
		return err
	}
	return sleep(ctx, t.FinalHold)
}
