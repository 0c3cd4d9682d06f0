package eml

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/outreach-inbox/internal/model"
)

func sample() model.Email {
	ts := "2024-03-01T10:00:00Z"
	return model.Email{
		ID:               "e1",
		MessageID:        "<abc@mail.example.com>",
		Subject:          "Quarterly numbers",
		FromAddressEmail: "zed@example.com",
		FromAddresses:    []model.EmailAddress{{Address: "zed@example.com", Name: "Zed"}},
		ToAddresses:      []model.EmailAddress{{Address: "me@example.com"}},
		TimestampCreated: &ts,
		Body:             model.EmailBody{Text: "plain body"},
		Label:            model.LabelInterested,
	}
}

func readParts(t *testing.T, raw []byte) (*mail.Reader, map[string]string) {
	t.Helper()
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	parts := map[string]string{}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if h, ok := p.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			require.NoError(t, err)
			parts[ct] = string(b)
		}
	}
	return mr, parts
}

func TestWrite_TextOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))

	mr, parts := readParts(t, buf.Bytes())
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Quarterly numbers", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "zed@example.com", from[0].Address)
	assert.Equal(t, "Zed", from[0].Name)

	id, err := mr.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, "abc@mail.example.com", id)
	assert.Equal(t, model.LabelInterested, mr.Header.Get("X-Outreach-Label"))

	assert.Equal(t, "plain body", parts["text/plain"])
}

func TestWrite_Alternative(t *testing.T) {
	e := sample()
	e.Body.HTML = "<p>html body</p>"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, e))

	_, parts := readParts(t, buf.Bytes())
	assert.Equal(t, "plain body", parts["text/plain"])
	assert.Equal(t, "<p>html body</p>", parts["text/html"])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Quarterly_numbers-e1.eml", Filename(sample()))
	assert.Equal(t, "e2.eml", Filename(model.Email{ID: "e2", Subject: "  "}))
	assert.Equal(t, "a_b-x_y.eml", Filename(model.Email{ID: "x/y", Subject: "a/b"}))

	long := Filename(model.Email{ID: "e3", Subject: strings.Repeat("x", 200)})
	assert.LessOrEqual(t, len(long), maxStemLen+len("-e3.eml"))
}

func TestExport_WritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := Export(dir, sample())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Quarterly_numbers-e1.eml"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Quarterly numbers")
}
