package web

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/validation"
)

// Containers that commonly carry an audio track but sniff as video.
var audioContainers = map[string]bool{
	"video/mp4":        true,
	"video/webm":       true,
	"video/quicktime":  true,
	"video/x-matroska": true,
	"video/3gpp":       true,
	"application/ogg":  true,
}

// IsAudio reports whether mt or one of its parents is an accepted audio type.
func IsAudio(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || audioContainers[m.String()] {
			return true
		}
	}
	return false
}

// spooledAudio is an upload copied to a temporary file. Close removes it.
type spooledAudio struct {
	*os.File
}

func (s *spooledAudio) Close() error {
	err := s.File.Close()
	if rmErr := os.Remove(s.Name()); rmErr != nil && !stderrors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}

// spool copies the uploaded file to disk, enforcing limit and checking that
// the content is audio. It returns the file rewound to its start together
// with the detected content type.
func spool(fh *multipart.FileHeader, dir string, limit int64) (*spooledAudio, string, error) {
	if err := validation.New().NonEmpty("file", fh.Size).Validate(); err != nil {
		return nil, "", err
	}
	if limit > 0 && fh.Size > limit {
		return nil, "", errors.FileTooLarge(limit)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, "", errors.InvalidInput("file", "the upload could not be read").WithCause(err)
	}
	defer func() { _ = src.Close() }()

	f, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return nil, "", errors.Internal(fmt.Errorf("create spool file: %w", err))
	}
	audio := &spooledAudio{File: f}

	var r io.Reader = src
	if limit > 0 {
		r = io.LimitReader(src, limit+1)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = audio.Close()
		return nil, "", errors.InvalidInput("file", "the upload could not be read").WithCause(err)
	}
	if limit > 0 && n > limit {
		_ = audio.Close()
		return nil, "", errors.FileTooLarge(limit)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = audio.Close()
		return nil, "", errors.Internal(err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = audio.Close()
		return nil, "", errors.Internal(fmt.Errorf("detect content type: %w", err))
	}
	if !IsAudio(mt) {
		_ = audio.Close()
		return nil, "", errors.UnsupportedMedia(mt.String())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = audio.Close()
		return nil, "", errors.Internal(err)
	}
	return audio, mt.String(), nil
}

// formFileError maps a failed c.FormFile to an AppError.
func formFileError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	switch {
	case stderrors.Is(err, http.ErrMissingFile):
		return errors.NoFileSelected()
	case stderrors.As(err, &maxErr):
		return errors.FileTooLarge(maxErr.Limit)
	case stderrors.Is(err, multipart.ErrMessageTooLarge):
		return errors.FileTooLarge(limit)
	default:
		return errors.InvalidInput("file", "expected a multipart upload with a file field").WithCause(err)
	}
}
