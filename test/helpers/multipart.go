package helpers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"
)

var (
	PDFContent  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n")
	PNGContent  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	JPEGContent = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01")
)

type formFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

// MultipartBuilder собирает тело multipart/form-data для /api/submit
type MultipartBuilder struct {
	fields [][2]string
	files  []formFile
}

func NewMultipart() *MultipartBuilder {
	return &MultipartBuilder{}
}

func (b *MultipartBuilder) Field(name, value string) *MultipartBuilder {
	b.fields = append(b.fields, [2]string{name, value})
	return b
}

// Bill добавляет часть "bills" с заявленным Content-Type
func (b *MultipartBuilder) Bill(name, contentType string, content []byte) *MultipartBuilder {
	b.files = append(b.files, formFile{field: "bills", name: name, contentType: contentType, content: content})
	return b
}

func (b *MultipartBuilder) Build(t *testing.T) (io.Reader, string) {
	t.Helper()

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, f := range b.fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			t.Fatalf("failed to write field %s: %v", f[0], err)
		}
	}
	for _, f := range b.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part %s: %v", f.name, err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("failed to write part %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}
