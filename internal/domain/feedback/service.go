package feedback

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"

	"quickshare/internal/domain/identity"
)

const (
	maxEmailLen   = 200
	maxSubjectLen = 200
	maxMessageLen = 2000
)

var (
	ErrEmptyMessage = errors.New("message is required")

	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

type SubmitRequest struct {
	Identity identity.Identity
	Email    string
	Subject  string
	Message  string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit stores a visitor message after stripping markup and truncating each
// field to its column size. Authenticated callers are linked by owner id,
// anonymous ones by IP.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) error {
	message := sanitize(req.Message, maxMessageLen)
	if message == "" {
		return ErrEmptyMessage
	}

	return s.repo.Create(ctx, &Feedback{
		OwnerID:   req.Identity.UserID,
		Email:     sanitize(req.Email, maxEmailLen),
		Subject:   sanitize(req.Subject, maxSubjectLen),
		Message:   message,
		IPAddress: req.Identity.IP,
	})
}

func sanitize(s string, max int) string {
	clean := html.EscapeString(tagPattern.ReplaceAllString(strings.TrimSpace(s), ""))
	runes := []rune(clean)
	if len(runes) > max {
		return string(runes[:max])
	}
	return clean
}
