// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync/atomic"

	"github.com/pdiddy/sonifyreads/pkg/types"
)

const contentTypePDF = "application/pdf"

// ErrSizeChanged is returned by the body reader when the file yields more
// or fewer bytes than UploadRequest.FileSize.
var ErrSizeChanged = errors.New("file size changed since it was selected")

// multipartBody is a streamed multipart/form-data body with a known length.
// The file content is never buffered: only the part headers and the
// trailing email field are held in memory.
type multipartBody struct {
	contentType string
	length      int64
	reader      io.Reader
	file        *sizedReader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// newMultipartBody lays out the form as the conversion endpoint expects it:
// the "file" part first, then the "email" field.
func newMultipartBody(req types.UploadRequest) (*multipartBody, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.FileName)))
	h.Set("Content-Type", contentTypePDF)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, fmt.Errorf("writing file part header: %w", err)
	}
	head := bytes.Clone(buf.Bytes())
	buf.Reset()

	if err := mw.WriteField("email", req.Email); err != nil {
		return nil, fmt.Errorf("writing email field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}
	tail := bytes.Clone(buf.Bytes())

	file := &sizedReader{r: req.File, remaining: req.FileSize}
	return &multipartBody{
		contentType: mw.FormDataContentType(),
		length:      int64(len(head)) + req.FileSize + int64(len(tail)),
		reader: io.MultiReader(
			bytes.NewReader(head),
			file,
			bytes.NewReader(tail),
		),
		file: file,
	}, nil
}

// sizedReader yields exactly remaining bytes of r. A source that ends early
// or still has data once remaining is spent fails with ErrSizeChanged.
// changed may be read from another goroutine than the one reading.
type sizedReader struct {
	r         io.Reader
	remaining int64
	done      bool
	changed   atomic.Bool
}

func (s *sizedReader) Read(b []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if s.remaining == 0 {
		return 0, s.checkExhausted()
	}

	if int64(len(b)) > s.remaining {
		b = b[:s.remaining]
	}
	n, err := s.r.Read(b)
	s.remaining -= int64(n)

	if errors.Is(err, io.EOF) {
		if s.remaining > 0 {
			return n, s.fail()
		}
		s.done = true
	}
	return n, err
}

// checkExhausted confirms the source has nothing past the declared size.
func (s *sizedReader) checkExhausted() error {
	var extra [1]byte
	n, err := io.ReadFull(s.r, extra[:])
	switch {
	case n > 0:
		return s.fail()
	case errors.Is(err, io.EOF):
		s.done = true
		return io.EOF
	default:
		return err
	}
}

func (s *sizedReader) fail() error {
	s.changed.Store(true)
	return ErrSizeChanged
}

// sizeChanged reports whether the file did not match its declared size.
func (b *multipartBody) sizeChanged() bool {
	return b.file.changed.Load()
}
