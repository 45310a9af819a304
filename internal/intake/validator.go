package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// signatureLen - сколько байт читается из начала файла для проверки сигнатуры
const signatureLen = 8

// Stage - этап проверки, на котором файл был отклонен
type Stage string

const (
	StageNotFound     Stage = "not_found"
	StageExtension    Stage = "extension"
	StageDeclaredType Stage = "declared_type"
	StageSignature    Stage = "signature"
)

// FileError - файл не прошел проверку. Reason можно показать участнику.
type FileError struct {
	Stage    Stage
	Filename string
	Reason   string
}

func (e *FileError) Error() string {
	return e.Reason
}

// Format - поддерживаемый формат счета
type Format struct {
	Name       string
	Extensions []string
	MIMEType   string
	Signature  []byte
}

var (
	FormatPDF  = Format{Name: "pdf", Extensions: []string{"pdf"}, MIMEType: "application/pdf", Signature: []byte("%PDF")}
	FormatPNG  = Format{Name: "png", Extensions: []string{"png"}, MIMEType: "image/png", Signature: []byte{0x89, 0x50, 0x4E, 0x47}}
	FormatJPEG = Format{Name: "jpeg", Extensions: []string{"jpg", "jpeg"}, MIMEType: "image/jpeg", Signature: []byte{0xFF, 0xD8}}
)

// KnownFormats - все форматы, для которых известна сигнатура
var KnownFormats = []Format{FormatPDF, FormatPNG, FormatJPEG}

// Candidate - загруженный файл до проверки
type Candidate struct {
	Name        string
	ContentType string
	Content     io.ReadSeeker
}

// FileValidator проверяет расширение, заявленный тип и сигнатуру файла.
type FileValidator struct {
	byExtension map[string]Format
	byMIMEType  map[string]Format
	formats     []Format
}

// NewFileValidator собирает валидатор из разрешенных расширений и MIME-типов.
// Значения, для которых нет известной сигнатуры, считаются ошибкой конфигурации.
func NewFileValidator(allowedExtensions, allowedTypes []string) (*FileValidator, error) {
	v := &FileValidator{
		byExtension: make(map[string]Format),
		byMIMEType:  make(map[string]Format),
	}

	used := make(map[string]bool)
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		f, ok := formatForExtension(ext)
		if !ok {
			return nil, fmt.Errorf("no signature known for extension %q", ext)
		}
		v.byExtension[ext] = f
		used[f.Name] = true
	}

	for _, mt := range allowedTypes {
		mt = normalizeMediaType(mt)
		f, ok := formatForMIMEType(mt)
		if !ok {
			return nil, fmt.Errorf("no signature known for content type %q", mt)
		}
		v.byMIMEType[mt] = f
	}

	for _, f := range KnownFormats {
		if used[f.Name] {
			v.formats = append(v.formats, f)
		}
	}
	return v, nil
}

// Validate выполняет проверки по порядку и останавливается на первой ошибке.
// Позиция потока после проверки сигнатуры восстанавливается.
func (v *FileValidator) Validate(c Candidate) error {
	if c.Content == nil || c.Name == "" {
		return &FileError{Stage: StageNotFound, Filename: c.Name, Reason: "No file provided"}
	}

	extFormat, ok := v.byExtension[extension(c.Name)]
	if !ok {
		return &FileError{Stage: StageExtension, Filename: c.Name, Reason: fmt.Sprintf("File type not allowed: %s", c.Name)}
	}

	declared := normalizeMediaType(c.ContentType)
	declaredFormat, ok := v.byMIMEType[declared]
	if !ok || declaredFormat.Name != extFormat.Name {
		return &FileError{Stage: StageDeclaredType, Filename: c.Name, Reason: fmt.Sprintf("Invalid file type: %s", c.ContentType)}
	}

	header, err := peek(c.Content, signatureLen)
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", c.Name, err)
	}

	sigFormat, ok := v.matchSignature(header)
	if !ok || sigFormat.Name != extFormat.Name {
		return &FileError{Stage: StageSignature, Filename: c.Name, Reason: fmt.Sprintf("File content doesn't match expected type: %s", c.Name)}
	}
	return nil
}

func (v *FileValidator) matchSignature(header []byte) (Format, bool) {
	for _, f := range v.formats {
		if bytes.HasPrefix(header, f.Signature) {
			return f, true
		}
	}
	return Format{}, false
}

// peek читает до n байт и возвращает поток в исходную позицию
func peek(r io.ReadSeeker, n int) ([]byte, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	return buf[:read], nil
}

func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

func normalizeMediaType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func formatForExtension(ext string) (Format, bool) {
	for _, f := range KnownFormats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return Format{}, false
}

func formatForMIMEType(mt string) (Format, bool) {
	for _, f := range KnownFormats {
		if f.MIMEType == mt {
			return f, true
		}
	}
	return Format{}, false
}
