package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Body is a request payload together with its content type.
type Body interface {
	Encode() (io.Reader, string, error)
}

type jsonBody struct {
	v any
}

// JSON encodes v as an application/json body.
func JSON(v any) Body {
	return jsonBody{v: v}
}

func (b jsonBody) Encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// Opener opens the content of a file part.
type Opener func() (io.ReadCloser, error)

type formField struct {
	name  string
	value string
}

type filePart struct {
	field       string
	filename    string
	contentType string
	open        Opener
}

// Multipart is a multipart/form-data body of text fields and file parts.
// Parts are written in the order they were added.
type Multipart struct {
	fields []formField
	files  []filePart
	err    error
}

// NewMultipart returns an empty multipart body.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field appends a text field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, formField{name: name, value: value})
	return m
}

// JSONField appends a text field holding the JSON encoding of v.
func (m *Multipart) JSONField(name string, v any) *Multipart {
	data, err := json.Marshal(v)
	if err != nil {
		if m.err == nil {
			m.err = fmt.Errorf("encoding field %s: %w", name, err)
		}
		return m
	}
	return m.Field(name, string(data))
}

// File appends a file part. open is called when the body is encoded.
func (m *Multipart) File(field, filename, contentType string, open Opener) *Multipart {
	m.files = append(m.files, filePart{
		field:       field,
		filename:    filename,
		contentType: contentType,
		open:        open,
	})
	return m
}

// Value returns the first value of the named text field.
func (m *Multipart) Value(name string) (string, bool) {
	for _, f := range m.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return "", false
}

// FileNames returns the file names attached under field, in order.
func (m *Multipart) FileNames(field string) []string {
	var names []string
	for _, f := range m.files {
		if f.field == field {
			names = append(names, f.filename)
		}
	}
	return names
}

func (m *Multipart) Encode() (io.Reader, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	for _, f := range m.files {
		if err := writeFilePart(w, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, f filePart) error {
	contentType := f.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.field), quoteEscaper.Replace(f.filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating part for %s: %w", f.filename, err)
	}

	rc, err := f.open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.filename, err)
	}
	defer rc.Close()

	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("copying %s: %w", f.filename, err)
	}
	return nil
}
