package session

import (
	"time"

	"github.com/bookshelf-app/bookshelf-service/internal/service/imagegen"
)

// Status is the explicit state tag of a generation session. Keeping it a
// single tag (instead of a bundle of booleans) makes illegal combinations
// such as "registering without an image" unrepresentable.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusGenerating  Status = "generating"
	StatusGenerated   Status = "generated"
	StatusRegistering Status = "registering"
	StatusError       Status = "error"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// session is one ephemeral cover-generation session. The credential lives
// only here, in memory, and dies with the session.
type session struct {
	id         string
	bookID     *int
	title      string
	content    string
	credential string
	model      imagegen.Model
	prompt     string
	status     Status
	message    string
	severity   Severity
	resultURL  string

	// epoch increments on every started operation so a result arriving for
	// a closed or superseded session can be discarded.
	epoch   int
	touched time.Time

	// fetching holds the session busy during a download without moving it
	// off its current status.
	fetching bool
}

func (s *session) busy() bool {
	return s.status == StatusGenerating || s.status == StatusRegistering || s.fetching
}

// View is the snapshot handed to the HTTP layer. The credential itself is
// never exposed, only whether one has been set.
type View struct {
	ID             string   `json:"sessionId"`
	BookID         *int     `json:"bookId"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	CredentialSet  bool     `json:"credentialSet"`
	Status         Status   `json:"status"`
	Message        string   `json:"message,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	ResultImageURL string   `json:"resultImageUrl,omitempty"`
	CanRegister    bool     `json:"canRegister"`
	Completed      bool     `json:"completed,omitempty"`
}

func (s *session) view() View {
	return View{
		ID:             s.id,
		BookID:         s.bookID,
		Title:          s.title,
		Content:        s.content,
		Model:          string(s.model),
		Prompt:         s.prompt,
		CredentialSet:  s.credential != "",
		Status:         s.status,
		Message:        s.message,
		Severity:       s.severity,
		ResultImageURL: s.resultURL,
		CanRegister:    s.resultURL != "" && s.bookID != nil && !s.busy(),
	}
}

// Image is a downloaded cover image ready for a client-side save.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}
