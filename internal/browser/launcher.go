// Package browser implements the automation capabilities on top of Chrome via go-rod.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/automation"
)

// Config selects the Chrome binary and capture settings.
type Config struct {
	// ControlURL attaches to an already running browser instead of launching one.
	ControlURL string
	Bin        string
	Headless   bool
	NoSandbox  bool
	// Flags are extra Chrome switches, e.g. "--disable-dev-shm-usage" or "--window-size=1280,720".
	Flags      []string
	FFmpegPath string
	FrameRate  int
	// Quality is the JPEG quality of screencast frames (1-100).
	Quality     int
	StopTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 25
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = 80
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 10 * time.Second
	}
}

// Launcher starts a fresh Chrome per recording, or opens an isolated context on a shared one.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewLauncher creates a launcher.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.setDefaults()
	return &Launcher{cfg: cfg, logger: logger}
}

// Launch implements automation.Launcher.
func (l *Launcher) Launch(ctx context.Context) (automation.Browser, error) {
	controlURL := l.cfg.ControlURL
	var proc *launcher.Launcher
	if controlURL == "" {
		proc = l.newProcess(ctx)
		u, err := proc.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if proc != nil {
			proc.Kill()
			proc.Cleanup()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	incognito, err := b.Incognito()
	if err != nil {
		_ = b.Close()
		if proc != nil {
			proc.Cleanup()
		}
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	l.logger.Debug("browser connected", zap.String("control_url", controlURL), zap.Bool("shared", proc == nil))
	return &browserInstance{root: b, ctx: incognito, proc: proc, cfg: l.cfg, logger: l.logger}, nil
}

func (l *Launcher) newProcess(ctx context.Context) *launcher.Launcher {
	proc := launcher.New().Context(ctx).Headless(l.cfg.Headless)
	if l.cfg.Bin != "" {
		proc = proc.Bin(l.cfg.Bin)
	}
	if l.cfg.NoSandbox {
		proc = proc.NoSandbox(true)
	}
	for _, f := range parseFlags(l.cfg.Flags) {
		proc = proc.Set(f.name, f.values...)
	}
	return proc
}

type flag struct {
	name   flags.Flag
	values []string
}

func parseFlags(raw []string) []flag {
	out := make([]flag, 0, len(raw))
	for _, r := range raw {
		s := strings.TrimLeft(strings.TrimSpace(r), "-")
		if s == "" {
			continue
		}
		name, val, hasVal := strings.Cut(s, "=")
		f := flag{name: flags.Flag(name)}
		if hasVal {
			f.values = []string{val}
		}
		out = append(out, f)
	}
	return out
}

type browserInstance struct {
	root   *rod.Browser
	ctx    *rod.Browser
	proc   *launcher.Launcher
	cfg    Config
	logger *zap.Logger
}

func (b *browserInstance) NewPage(ctx context.Context, vp automation.Viewport) (automation.Page, error) {
	p, err := b.ctx.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(p); err != nil {
		b.logger.Warn("set viewport failed", zap.Error(err))
	}
	return &page{rod: p, viewport: vp, cfg: b.cfg, logger: b.logger}, nil
}

// Close disposes the isolated context. A browser launched by us is shut down and its profile removed.
func (b *browserInstance) Close() error {
	if b.proc == nil {
		return b.ctx.Close()
	}
	err := b.root.Close()
	b.proc.Cleanup()
	return err
}
