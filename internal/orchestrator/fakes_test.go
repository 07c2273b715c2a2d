package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/shookla/walkthroughs/internal/automation"
	"github.com/shookla/walkthroughs/internal/mailer"
	"github.com/shookla/walkthroughs/internal/models"
	"github.com/shookla/walkthroughs/pkg/queue"
)

type recorderFunc func(ctx context.Context, job automation.Job) (automation.Result, error)

func (f recorderFunc) Record(ctx context.Context, job automation.Job) (automation.Result, error) {
	return f(ctx, job)
}

func succeedingRecorder() recorderFunc {
	return func(_ context.Context, job automation.Job) (automation.Result, error) {
		return automation.Result{
			FilePath: "/data/recordings/" + job.SessionID + ".mp4",
			VideoURL: "/api/recordings/" + job.SessionID + ".mp4",
		}, nil
	}
}

var errNavTimeout = errors.New("navigation timeout of 30000ms exceeded")

func navTimeoutRecorder() recorderFunc {
	return func(_ context.Context, job automation.Job) (automation.Result, error) {
		return automation.Result{VideoURL: automation.DefaultFallbackVideoURL},
			errors.New("navigate to " + job.TargetURL + ": " + errNavTimeout.Error())
	}
}

type fakePersistence struct {
	mu         sync.Mutex
	user       *models.User
	userErr    error
	createErr  error
	nextID     int64
	created    []models.Walkthrough
	updates    map[int64][]models.RecordingRequestUpdate
	emailFlags map[int64]bool
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{
		user:       &models.User{ID: 1, Username: "system"},
		nextID:     40,
		updates:    map[int64][]models.RecordingRequestUpdate{},
		emailFlags: map[int64]bool{},
	}
}

func (p *fakePersistence) GetUser(_ context.Context, id int64) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userErr != nil {
		return nil, p.userErr
	}
	if p.user == nil || p.user.ID != id {
		return nil, nil
	}
	u := *p.user
	return &u, nil
}

func (p *fakePersistence) CreateWalkthrough(_ context.Context, w *models.Walkthrough) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return p.createErr
	}
	p.nextID++
	w.ID = p.nextID
	p.created = append(p.created, *w)
	return nil
}

func (p *fakePersistence) UpdateRecordingRequest(_ context.Context, id int64, upd models.RecordingRequestUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[id] = append(p.updates[id], upd)
	return nil
}

func (p *fakePersistence) SetEmailSent(_ context.Context, id int64, sent bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emailFlags[id] = sent
	return nil
}

func (p *fakePersistence) snapshot() ([]models.Walkthrough, map[int64][]models.RecordingRequestUpdate, map[int64]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Walkthrough(nil), p.created...), p.updates, p.emailFlags
}

type fakeMailer struct {
	mu        sync.Mutex
	verifyErr error
	sendErr   error
	sent      []mailer.Message
}

func (m *fakeMailer) Verify(context.Context) error { return m.verifyErr }

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Settings() mailer.Config {
	return mailer.Config{Host: "smtp.example.com", Port: 2525, Username: "bot@example.com", From: "bot@example.com"}
}

func (m *fakeMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

type fakeEmailLogs struct {
	mu   sync.Mutex
	rows []models.EmailLog
}

func (l *fakeEmailLogs) Create(_ context.Context, el *models.EmailLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, *el)
	return nil
}

func (l *fakeEmailLogs) all() []models.EmailLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.EmailLog(nil), l.rows...)
}

type fakeUploads struct {
	mu       sync.Mutex
	payloads []queue.UploadPayload
}

func (u *fakeUploads) EnqueueUpload(_ context.Context, p queue.UploadPayload) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.payloads = append(u.payloads, p)
	return nil
}

// eventLog keeps every published snapshot per session.
type eventLog struct {
	mu        sync.Mutex
	snapshots map[string][]models.RecordingSession
}

func newEventLog() *eventLog {
	return &eventLog{snapshots: map[string][]models.RecordingSession{}}
}

func (e *eventLog) PublishSession(_ context.Context, s models.RecordingSession) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots[s.ID] = append(e.snapshots[s.ID], s)
	return nil
}

func (e *eventLog) of(id string) []models.RecordingSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.RecordingSession(nil), e.snapshots[id]...)
}

// statuses returns the distinct consecutive statuses published for id.
func (e *eventLog) statuses(id string) []models.SessionStatus {
	var out []models.SessionStatus
	for _, s := range e.of(id) {
		if len(out) == 0 || out[len(out)-1] != s.Status {
			out = append(out, s.Status)
		}
	}
	return out
}
