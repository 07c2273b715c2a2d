package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// trace records calls in order across all fakes.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type fakeLauncher struct {
	tr        *trace
	launchErr error
	page      *fakePage
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.tr.add("launch")
	return &fakeBrowser{tr: l.tr, page: l.page}, nil
}

type fakeBrowser struct {
	tr   *trace
	page *fakePage
}

func (b *fakeBrowser) NewPage(_ context.Context, v Viewport) (Page, error) {
	b.tr.add("page %dx%d", v.Width, v.Height)
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.tr.add("browser.close")
	return nil
}

type fakePage struct {
	tr          *trace
	navigateErr error
	captureErr  error
	stopErr     error
	elements    map[string][]*fakeElement
	navTimeout  time.Duration
}

func newFakePage(tr *trace) *fakePage {
	return &fakePage{tr: tr, elements: map[string][]*fakeElement{}}
}

func (p *fakePage) with(selector string, els ...*fakeElement) *fakePage {
	for _, e := range els {
		e.tr = p.tr
		if e.name == "" {
			e.name = selector
		}
	}
	p.elements[selector] = append(p.elements[selector], els...)
	return p
}

func (p *fakePage) Navigate(_ context.Context, url string, timeout time.Duration) error {
	p.navTimeout = timeout
	p.tr.add("navigate %s", url)
	return p.navigateErr
}

func (p *fakePage) Find(_ context.Context, selector string) (Element, bool) {
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

func (p *fakePage) FindAll(_ context.Context, selector string) ([]Element, error) {
	out := make([]Element, 0, len(p.elements[selector]))
	for _, e := range p.elements[selector] {
		out = append(out, e)
	}
	return out, nil
}

func (p *fakePage) ScrollTo(_ context.Context, y int) error {
	p.tr.add("scroll %d", y)
	return nil
}

func (p *fakePage) ScrollToBottom(context.Context) error {
	p.tr.add("scroll bottom")
	return nil
}

func (p *fakePage) StartCapture(_ context.Context, path string) (Capture, error) {
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	p.tr.add("capture.start")
	return &fakeCapture{tr: p.tr, err: p.stopErr}, nil
}

func (p *fakePage) Close() error {
	p.tr.add("page.close")
	return nil
}

type fakeElement struct {
	tr       *trace
	name     string
	attrs    map[string]string
	clickErr error
}

func (e *fakeElement) Type(_ context.Context, text string, delay time.Duration) error {
	e.tr.add("type %s=%s delay=%s", e.name, text, delay)
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	e.tr.add("click %s", e.name)
	return e.clickErr
}

func (e *fakeElement) ScrollIntoView(context.Context) error {
	e.tr.add("into-view %s", e.name)
	return nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

type fakeCapture struct {
	tr  *trace
	err error
}

func (c *fakeCapture) Stop() error {
	c.tr.add("capture.stop")
	return c.err
}

var errNavTimeout = errors.New("navigation timeout of 30000 ms exceeded")
