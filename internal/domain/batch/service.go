package batch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"quickshare/internal/domain/identity"
	"quickshare/internal/domain/quota"
	"quickshare/internal/pkg/cryptox"
	"quickshare/internal/pkg/qr"
	"quickshare/internal/pkg/shortcode"
	"quickshare/internal/queue"
	"quickshare/internal/storage"
)

const maxCommentLen = 300

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Quota is the slice of the quota tracker finalize needs.
type Quota interface {
	Check(ctx context.Context, id identity.Identity) (quota.Status, error)
}

// Enqueuer submits deferred work; satisfied by queue.Queue.
type Enqueuer interface {
	Enqueue(task queue.Task) bool
}

// RetentionPolicy maps the creator identity to an expiry horizon, fixed at
// batch creation and never extended.
type RetentionPolicy struct {
	Admin time.Duration
	User  time.Duration
	Guest time.Duration
}

type FinalizeRequest struct {
	Identity  identity.Identity
	UploadIDs []string
	Password  string
	Comment   string
}

type FinalizeResult struct {
	Batch       *Batch
	DownloadURL string
	QRCode      string
}

type Status struct {
	Expected int  `json:"expected"`
	Stored   int  `json:"stored"`
	Complete bool `json:"complete"`
}

// Service assembles batches out of completed chunk uploads. Metadata is
// committed in one transaction; encryption runs afterwards on the work queue,
// so the share link is returned before the files are sealed.
type Service struct {
	repo        Repository
	quotas      Quota
	enq         Enqueuer
	encryptor   *Encryptor
	store       *storage.Store
	baseURL     string
	retention   RetentionPolicy
	codeRetries int
	log         *logrus.Logger
}

func NewService(
	repo Repository,
	quotas Quota,
	enq Enqueuer,
	encryptor *Encryptor,
	store *storage.Store,
	baseURL string,
	retention RetentionPolicy,
	codeRetries int,
	log *logrus.Logger,
) *Service {
	return &Service{
		repo:        repo,
		quotas:      quotas,
		enq:         enq,
		encryptor:   encryptor,
		store:       store,
		baseURL:     baseURL,
		retention:   retention,
		codeRetries: codeRetries,
		log:         log,
	}
}

// Finalize turns a list of completed uploads into a batch. The batch row,
// its short code and the resolved upload names all commit atomically; any
// failure before commit leaves no trace. Encryption is enqueued after commit
// and the caller gets the share link immediately.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeResult, error) {
	if len(req.UploadIDs) == 0 {
		return nil, ErrNoUploads
	}

	status, err := s.quotas.Check(ctx, req.Identity)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !status.Allowed {
		return nil, quota.ErrQuotaExceeded
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	b := &Batch{
		URLUUID:       uuid.New().String(),
		OwnerID:       req.Identity.UserID,
		IPAddress:     req.Identity.IP,
		Comment:       sanitizeComment(req.Comment),
		EncryptionKey: key,
		ExpectedFiles: len(req.UploadIDs),
		ExpiresAt:     now.Add(s.expiryHorizon(req.Identity)),
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		b.PasswordHash = string(hash)
	}

	// The upload names are resolved inside the same transaction that creates
	// the batch, so the encryption job works on a snapshot that cannot be
	// changed by concurrent chunk traffic. A short code collision rolls the
	// transaction back and retries with a fresh code; the pre-check-free
	// insert makes concurrent finalizes race-safe on the unique index.
	var resolved []ResolvedUpload
	for attempt := 0; ; attempt++ {
		code, err := shortcode.Generate()
		if err != nil {
			return nil, err
		}
		b.ShortCode = code
		b.ID = 0

		resolved = resolved[:0]
		err = s.repo.Transaction(ctx, func(tx Repository) error {
			if err := tx.Create(ctx, b); err != nil {
				return fmt.Errorf("failed to create batch: %w", err)
			}

			for _, uploadID := range req.UploadIDs {
				upload, err := tx.GetChunkedUpload(ctx, uploadID)
				if err != nil {
					return fmt.Errorf("failed to resolve upload %q: %w", uploadID, err)
				}

				name := uploadID
				if upload != nil {
					if !upload.Complete() {
						return ErrIncompleteUpload
					}
					name = upload.Filename
				}
				resolved = append(resolved, newResolvedUpload(uploadID, name))
			}
			return nil
		})
		if errors.Is(err, ErrDuplicate) {
			if attempt+1 >= s.codeRetries {
				return nil, ErrShortCode
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	if !s.enq.Enqueue(s.encryptor.Task(b.ID, resolved)) {
		// The batch is already committed and the response must still
		// succeed; the files stay pending until a retry or the reaper.
		s.log.WithField("batch_id", b.ID).Error("failed to enqueue encryption job")
	}

	downloadURL := s.baseURL + "/d/" + b.URLUUID
	qrCode, err := qr.DataURL(downloadURL)
	if err != nil {
		s.log.WithError(err).Warn("failed to generate QR code")
	}

	return &FinalizeResult{Batch: b, DownloadURL: downloadURL, QRCode: qrCode}, nil
}

// LookupShortCode finds a batch by its human-enterable code. Codes are
// normalized to uppercase.
func (s *Service) LookupShortCode(ctx context.Context, code string) (*Batch, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != shortcode.Length {
		return nil, ErrBatchNotFound
	}
	return s.repo.GetByShortCode(ctx, code)
}

// Status reports how many of the expected files have been encrypted and
// stored. Callers poll this until the batch is complete.
func (s *Service) Status(ctx context.Context, urlUUID string) (Status, error) {
	b, err := s.repo.GetByUUID(ctx, urlUUID)
	if err != nil {
		return Status{}, err
	}
	stored, err := s.repo.CountFiles(ctx, b.ID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Expected: b.ExpectedFiles,
		Stored:   int(stored),
		Complete: int(stored) >= b.ExpectedFiles,
	}, nil
}

// ListByOwner returns all batches created by a user, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]Batch, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Delete removes a batch on demand: blobs first (best effort), then the
// rows. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, urlUUID string, id identity.Identity) error {
	b, err := s.repo.GetByUUID(ctx, urlUUID)
	if err != nil {
		return err
	}
	if !id.IsAdmin {
		if b.OwnerID == nil || id.UserID == nil || *b.OwnerID != *id.UserID {
			return ErrNotOwner
		}
	}

	for _, f := range b.Files {
		if err := s.store.Remove(f.StoragePath); err != nil {
			s.log.WithError(err).WithField("file_id", f.ID).Error("failed to remove blob")
		}
	}
	return s.repo.Delete(ctx, b.ID)
}

func (s *Service) expiryHorizon(id identity.Identity) time.Duration {
	switch {
	case id.IsAdmin:
		return s.retention.Admin
	case id.Authenticated():
		return s.retention.User
	default:
		return s.retention.Guest
	}
}

// sanitizeComment strips markup, escapes what remains and truncates to the
// column size.
func sanitizeComment(comment string) string {
	clean := html.EscapeString(tagPattern.ReplaceAllString(comment, ""))
	runes := []rune(clean)
	if len(runes) > maxCommentLen {
		return string(runes[:maxCommentLen])
	}
	return clean
}

// newResolvedUpload splits directory-structured names ("docs/readme.txt")
// into a relative path plus basename for the stored file.
func newResolvedUpload(uploadID, name string) ResolvedUpload {
	r := ResolvedUpload{UploadID: uploadID, Name: name}
	if strings.Contains(name, "/") {
		r.RelativePath = name
		r.Name = path.Base(name)
	}
	return r
}
