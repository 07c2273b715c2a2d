package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/shookla/walkthroughs/internal/automation"
)

type page struct {
	rod      *rod.Page
	viewport automation.Viewport
	cfg      Config
	logger   *zap.Logger
}

func (p *page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tp := p.rod.Context(ctx).Timeout(timeout)
	defer tp.CancelTimeout()
	if err := tp.Navigate(url); err != nil {
		return err
	}
	return tp.WaitLoad()
}

func (p *page) Find(ctx context.Context, selector string) (automation.Element, bool) {
	ok, el, err := p.rod.Context(ctx).Has(selector)
	if err != nil || !ok {
		return nil, false
	}
	return &element{rod: el}, true
}

func (p *page) FindAll(ctx context.Context, selector string) ([]automation.Element, error) {
	els, err := p.rod.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]automation.Element, len(els))
	for i, el := range els {
		out[i] = &element{rod: el}
	}
	return out, nil
}

func (p *page) ScrollTo(ctx context.Context, y int) error {
	_, err := p.rod.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (p *page) ScrollToBottom(ctx context.Context) error {
	_, err := p.rod.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *page) StartCapture(ctx context.Context, path string) (automation.Capture, error) {
	return startScreencast(ctx, p.rod, path, p.viewport, p.cfg, p.logger)
}

func (p *page) Close() error {
	return p.rod.Close()
}

type element struct {
	rod *rod.Element
}

// Type enters text one character at a time.
func (e *element) Type(ctx context.Context, text string, delay time.Duration) error {
	el := e.rod.Context(ctx)
	for _, r := range text {
		if err := el.Input(string(r)); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	return e.rod.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.rod.Context(ctx).ScrollIntoView()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.rod.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}
