package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/bookshelf-app/bookshelf-service/internal/service/imagegen"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgInputRequired  = "API key and generation prompt are both required."
	msgGenerating     = "[%s] generating cover image..."
	msgGenerated      = "Cover image generated."
	msgRegistering    = "Registering cover image..."
	msgRegistered     = "Cover image registered."
	msgCannotIdentify = "cannot identify the target book; cover registration is disabled"
	msgNoImage        = "no generated image to register"
	msgDownloadFailed = "Failed to download the generated image."
)

// Workflow owns every live generation session. Transitions within one
// session are strictly sequential: a busy session rejects further
// operations until the in-flight one settles.
type Workflow struct {
	log       *zap.Logger
	generator Generator
	registrar Registrar

	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

func NewWorkflow(log *zap.Logger, registrar Registrar, generator Generator, ttl time.Duration) *Workflow {
	return &Workflow{
		log:       log,
		generator: generator,
		registrar: registrar,
		sessions:  make(map[string]*session),
		ttl:       ttl,
	}
}

// Open creates a fresh session for one visit of the cover-generation view.
// A nil bookID opens a preview-only session: generation works, registration
// stays disabled. A pre-seeded image makes registration available without a
// prior generation call.
func (w *Workflow) Open(bookID *int, title, content, image string) View {
	s := &session{
		id:        uuid.NewString(),
		bookID:    bookID,
		title:     title,
		content:   content,
		model:     imagegen.DefaultModel,
		prompt:    content,
		status:    StatusIdle,
		resultURL: image,
		touched:   time.Now(),
	}
	if bookID == nil {
		s.message = msgCannotIdentify
		s.severity = SeverityWarning
	}
	w.mu.Lock()
	w.sessions[s.id] = s

	defer w.mu.Unlock()
	return s.view()
}

func (w *Workflow) Get(id string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return View{}, errs.ErrSessionNotFound
	}
	s.touched = time.Now()
	return s.view(), nil
}

// Input carries edits to the session's form fields. Nil fields stay
// untouched.
type Input struct {
	Credential *string `json:"apiKey"`
	Model      *string `json:"model"`
	Prompt     *string `json:"prompt"`
}

// UpdateInput applies user corrections. Editing in the error state clears
// the error display back to idle without resetting the generated image.
func (w *Workflow) UpdateInput(id string, in Input) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	if !ok {
		return View{}, errs.ErrSessionNotFound
	}
	if s.busy() {
		return View{}, errs.ErrBusy
	}
	if in.Model != nil {
		m, err := imagegen.ParseModel(*in.Model)
		if err != nil {
			return View{}, errors.Wrap(errs.ErrValidation, err.Error())
		}
		s.model = m
	}
	if in.Credential != nil {
		s.credential = *in.Credential
	}
	if in.Prompt != nil {
		s.prompt = *in.Prompt
	}
	if s.status == StatusError {
		s.status = StatusIdle
	}
	s.message = ""
	s.severity = ""
	s.touched = time.Now()
	return s.view(), nil
}

// GenerateInput is the form state posted with a generate action.
type GenerateInput struct {
	Credential string `json:"apiKey"`
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
}

// Generate validates the input, then runs the external generation call and
// applies the resulting transition. The guard failure is a session state
// (warning), not an error: no upstream call happens.
func (w *Workflow) Generate(ctx context.Context, id string, in GenerateInput) (View, error) {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return View{}, errs.ErrSessionNotFound
	}
	if s.busy() {
		w.mu.Unlock()
		return View{}, errs.ErrBusy
	}
	model, err := imagegen.ParseModel(in.Model)
	if err != nil {
		w.mu.Unlock()
		return View{}, errors.Wrap(errs.ErrValidation, err.Error())
	}
	s.credential = in.Credential
	s.model = model
	s.prompt = in.Prompt
	s.touched = time.Now()

	if strings.TrimSpace(s.credential) == "" || strings.TrimSpace(s.prompt) == "" {
		s.status = StatusIdle
		s.message = msgInputRequired
		s.severity = SeverityWarning
		defer w.mu.Unlock()
		return s.view(), nil
	}

	s.status = StatusGenerating
	s.message = fmt.Sprintf(msgGenerating, s.model)
	s.severity = SeverityInfo
	s.epoch++
	epoch := s.epoch
	request := imagegen.Request{
		Credential: s.credential,
		Model:      s.model,
		Prompt:     s.prompt,
	}
	w.mu.Unlock()

	url, genErr := w.generator.Generate(ctx, request)

	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok = w.sessions[id]
	if !ok || s.epoch != epoch {
		// the view backing this call is gone; drop the result
		w.log.Debug("discarding late generation result", zap.String("session", id))
		return View{}, errs.ErrSessionNotFound
	}
	s.touched = time.Now()
	if genErr != nil {
		s.status = StatusError
		s.message = genErr.Error()
		s.severity = SeverityError
		return s.view(), nil
	}
	s.resultURL = url
	s.status = StatusGenerated
	s.message = msgGenerated
	s.severity = SeveritySuccess
	return s.view(), nil
}

// Register commits the generated image to the target book. On success the
// session is discarded and the returned view signals completion; on failure
// the image is kept so registration can be retried without regenerating.
func (w *Workflow) Register(ctx context.Context, id string) (View, error) {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return View{}, errs.ErrSessionNotFound
	}
	if s.busy() {
		w.mu.Unlock()
		return View{}, errs.ErrBusy
	}
	s.touched = time.Now()
	if s.bookID == nil {
		s.message = msgCannotIdentify
		s.severity = SeverityError
		defer w.mu.Unlock()
		return s.view(), nil
	}
	if s.resultURL == "" {
		s.message = msgNoImage
		s.severity = SeverityError
		defer w.mu.Unlock()
		return s.view(), nil
	}

	s.status = StatusRegistering
	s.message = msgRegistering
	s.severity = SeverityInfo
	s.epoch++
	epoch := s.epoch
	bookID := *s.bookID
	resultURL := s.resultURL
	w.mu.Unlock()

	regErr := w.registrar.PatchCover(ctx, bookID, resultURL)

	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok = w.sessions[id]
	if !ok || s.epoch != epoch {
		w.log.Debug("discarding late registration result", zap.String("session", id))
		return View{}, errs.ErrSessionNotFound
	}
	if regErr != nil {
		s.touched = time.Now()
		s.status = StatusError
		s.message = errors.Wrap(regErr, "cover registration failed").Error()
		s.severity = SeverityError
		return s.view(), nil
	}

	final := s.view()
	final.Status = StatusIdle
	final.Message = msgRegistered
	final.Severity = SeveritySuccess
	final.CanRegister = false
	final.Completed = true
	delete(w.sessions, id)
	return final, nil
}

// Download fetches the generated image bytes for a client-side save. It is
// a repeatable side action: failure records a message but never changes the
// session status. The session stays busy for the duration of the fetch so
// no other operation can interleave with it.
func (w *Workflow) Download(ctx context.Context, id string) (Image, error) {
	w.mu.Lock()
	s, ok := w.sessions[id]
	if !ok {
		w.mu.Unlock()
		return Image{}, errs.ErrSessionNotFound
	}
	if s.busy() {
		w.mu.Unlock()
		return Image{}, errs.ErrBusy
	}
	if s.resultURL == "" {
		w.mu.Unlock()
		return Image{}, errors.Wrap(errs.ErrNoImage, "nothing to download")
	}
	s.touched = time.Now()
	s.fetching = true
	resultURL := s.resultURL
	w.mu.Unlock()

	data, contentType, err := w.generator.Fetch(ctx, resultURL)

	w.mu.Lock()
	if s, ok := w.sessions[id]; ok {
		s.fetching = false
		if err != nil {
			s.message = msgDownloadFailed
			s.severity = SeverityError
		}
	}
	w.mu.Unlock()
	if err != nil {
		return Image{}, err
	}
	return Image{
		Data:        data,
		ContentType: contentType,
		Filename:    fmt.Sprintf("book-cover-%d.png", time.Now().Unix()),
	}, nil
}

// Close discards a session (navigation away or explicit cancellation).
func (w *Workflow) Close(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[id]; !ok {
		return errs.ErrSessionNotFound
	}
	delete(w.sessions, id)
	return nil
}

// Sweep evicts abandoned sessions until ctx is done.
func (w *Workflow) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.mu.Lock()
			now := time.Now()
			for id, s := range w.sessions {
				if now.Sub(s.touched) > w.ttl && !s.busy() {
					delete(w.sessions, id)
				}
			}
			w.mu.Unlock()
		}
	}
}
