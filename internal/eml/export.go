// Package eml writes messages as RFC 5322 files so they can be opened in a
// regular mail client.
package eml

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/outreach-inbox/internal/model"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const maxStemLen = 60

func toMailAddresses(list []model.EmailAddress) []*mail.Address {
	out := make([]*mail.Address, 0, len(list))
	for _, a := range list {
		out = append(out, &mail.Address{Name: a.Name, Address: a.Address})
	}
	return out
}

func header(e model.Email) mail.Header {
	var h mail.Header

	if t, ok := e.CreatedAt(); ok {
		h.SetDate(t)
	}

	from := toMailAddresses(e.FromAddresses)
	if len(from) == 0 && e.FromAddressEmail != "" {
		from = []*mail.Address{{Address: e.FromAddressEmail}}
	}
	h.SetAddressList("From", from)
	h.SetAddressList("To", toMailAddresses(e.ToAddresses))
	if len(e.CCAddresses) > 0 {
		h.SetAddressList("Cc", toMailAddresses(e.CCAddresses))
	}
	h.SetSubject(e.Subject)

	if id := strings.Trim(strings.TrimSpace(e.MessageID), "<>"); id != "" {
		h.SetMessageID(id)
	}
	if e.Label != "" {
		h.Set("X-Outreach-Label", e.Label)
	}
	if e.ThreadID != "" {
		h.Set("X-Outreach-Thread-Id", e.ThreadID)
	}
	return h
}

func textParams() map[string]string {
	return map[string]string{"charset": "utf-8"}
}

// Write encodes e as a MIME message. A message with both renderings
// becomes multipart/alternative; otherwise a single inline part is written.
func Write(w io.Writer, e model.Email) error {
	h := header(e)

	switch {
	case e.Body.HTML != "" && e.Body.Text != "":
		mw, err := mail.CreateWriter(w, h)
		if err != nil {
			return fmt.Errorf("creating message writer: %w", err)
		}
		iw, err := mw.CreateInline()
		if err != nil {
			return fmt.Errorf("creating inline writer: %w", err)
		}
		if err := writePart(iw, "text/plain", e.Body.Text); err != nil {
			return err
		}
		if err := writePart(iw, "text/html", e.Body.HTML); err != nil {
			return err
		}
		if err := iw.Close(); err != nil {
			return fmt.Errorf("closing inline writer: %w", err)
		}
		return mw.Close()

	case e.Body.HTML != "":
		h.SetContentType("text/html", textParams())
		return writeSingle(w, h, e.Body.HTML)

	default:
		h.SetContentType("text/plain", textParams())
		return writeSingle(w, h, e.Body.Text)
	}
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, textParams())
	pw, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return pw.Close()
}

func writeSingle(w io.Writer, h mail.Header, body string) error {
	bw, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return bw.Close()
}

// Filename builds a filesystem-safe name from the subject and id.
func Filename(e model.Email) string {
	stem := unsafeFilename.ReplaceAllString(strings.TrimSpace(e.Subject), "_")
	stem = strings.Trim(stem, "._-")
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}
	id := unsafeFilename.ReplaceAllString(e.ID, "_")
	if stem == "" {
		return id + ".eml"
	}
	return stem + "-" + id + ".eml"
}

// Export writes e into dir, creating it if needed, and returns the path.
func Export(dir string, e model.Email) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(dir, Filename(e))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}

	if err := Write(f, e); err != nil {
		f.Close()
		return "", fmt.Errorf("exporting email %s: %w", e.ID, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
