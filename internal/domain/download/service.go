package download

import (
	"archive/zip"
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"quickshare/internal/domain/batch"
	"quickshare/internal/pkg/cryptox"
	"quickshare/internal/storage"
)

// Batches is the read slice of the batch repository the download side needs.
type Batches interface {
	GetByUUID(ctx context.Context, urlUUID string) (*batch.Batch, error)
	GetByID(ctx context.Context, id uint64) (*batch.Batch, error)
	GetFileByID(ctx context.Context, id uint64) (*batch.SharedFile, error)
}

// Gate decides whether a request may read a protected batch.
type Gate interface {
	Authorize(b *batch.Batch, token string) error
}

// Page is the landing metadata for a batch link. For a locked batch the file
// list is withheld until the password gate is passed.
type Page struct {
	ShortCode string      `json:"short_code"`
	Comment   string      `json:"comment,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
	Locked    bool        `json:"locked"`
	Files     []FileEntry `json:"files,omitempty"`
}

// FileEntry is one downloadable file as shown on the landing page.
type FileEntry struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// File is one decrypted artifact ready to be served.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Archive is a zip of every readable file in a batch. Skipped lists the
// display names of files that could not be included.
type Archive struct {
	Name    string
	Data    []byte
	Skipped []string
}

// Service assembles downloads: it fetches encrypted blobs, decrypts them with
// the batch key and verifies the stored content hash before handing anything
// to the client. Every read path goes through the access gate first.
type Service struct {
	batches Batches
	gate    Gate
	store   *storage.Store
	log     *logrus.Logger
}

func NewService(batches Batches, gate Gate, store *storage.Store, log *logrus.Logger) *Service {
	return &Service{batches: batches, gate: gate, store: store, log: log}
}

// Meta returns the landing page data for a batch link. Locked batches reveal
// only the short code, comment and expiry until a valid unlock token arrives.
func (s *Service) Meta(ctx context.Context, urlUUID, token string) (*Page, error) {
	b, err := s.batches.GetByUUID(ctx, urlUUID)
	if err != nil {
		return nil, err
	}
	if b.Expired(time.Now()) {
		return nil, batch.ErrBatchExpired
	}

	page := &Page{
		ShortCode: b.ShortCode,
		Comment:   b.Comment,
		ExpiresAt: b.ExpiresAt,
	}
	if err := s.gate.Authorize(b, token); err != nil {
		page.Locked = true
		return page, nil
	}

	page.Files = fileSummaries(b)
	return page, nil
}

// FetchOne decrypts and verifies a single file. The caller must hold an
// unlock token when the owning batch is password protected.
func (s *Service) FetchOne(ctx context.Context, fileID uint64, token string) (*File, error) {
	f, err := s.batches.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	b, err := s.batches.GetByID(ctx, f.BatchID)
	if err != nil {
		return nil, err
	}
	if b.Expired(time.Now()) {
		return nil, batch.ErrBatchExpired
	}
	if err := s.gate.Authorize(b, token); err != nil {
		return nil, err
	}

	plaintext, err := s.open(b, f)
	if err != nil {
		return nil, err
	}

	return &File{
		Name: f.DisplayName(),
		MIME: contentType(f.OriginalName),
		Data: plaintext,
	}, nil
}

// FetchZip bundles every file of a batch into one archive. Files that cannot
// be read, decrypted or verified are skipped and reported in the manifest
// instead of failing the whole download.
func (s *Service) FetchZip(ctx context.Context, urlUUID, token string) (*Archive, error) {
	b, err := s.batches.GetByUUID(ctx, urlUUID)
	if err != nil {
		return nil, err
	}
	if b.Expired(time.Now()) {
		return nil, batch.ErrBatchExpired
	}
	if err := s.gate.Authorize(b, token); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var skipped []string

	for i := range b.Files {
		f := &b.Files[i]
		plaintext, err := s.open(b, f)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"batch_id": b.ID,
				"file_id":  f.ID,
			}).Warn("skipping file in archive")
			skipped = append(skipped, f.DisplayName())
			continue
		}

		w, err := zw.Create(f.DisplayName())
		if err != nil {
			zw.Close()
			return nil, err
		}
		if _, err := w.Write(plaintext); err != nil {
			zw.Close()
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return &Archive{
		Name:    "quickshare_" + b.ShortCode + ".zip",
		Data:    buf.Bytes(),
		Skipped: skipped,
	}, nil
}

// open reads, decrypts and hash-verifies one stored file.
func (s *Service) open(b *batch.Batch, f *batch.SharedFile) ([]byte, error) {
	ciphertext, err := s.store.Read(f.StoragePath)
	if err != nil {
		return nil, err
	}
	plaintext, err := cryptox.Decrypt(b.EncryptionKey, ciphertext)
	if err != nil {
		return nil, ErrDecryption
	}
	if f.ContentHash != "" && cryptox.HashHex(plaintext) != f.ContentHash {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

func fileSummaries(b *batch.Batch) []FileEntry {
	entries := make([]FileEntry, 0, len(b.Files))
	for i := range b.Files {
		f := &b.Files[i]
		entries = append(entries, FileEntry{ID: f.ID, Name: f.DisplayName(), Size: f.FileSize})
	}
	return entries
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
