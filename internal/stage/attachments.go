package stage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

const maxNameAttempts = 10000

// Outcome tags the result of writing one attachment.
type Outcome string

const (
	OutcomeWritten Outcome = "written"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ErrNoPayload marks an attachment without inline content.
var ErrNoPayload = errors.New("attachment has no inline data")

// WriteResult is the outcome of WriteAttachment.
type WriteResult struct {
	Outcome Outcome
	Path    string
	Bytes   int
	Err     error
}

// ListAttachments returns the attachments of one resource.
func ListAttachments(ctx context.Context, dir Directory, kind string, id int64) ([]Attachment, error) {
	rows, err := dir.SearchRead(ctx, odoo.ModelAttachment,
		odoo.Domain{
			odoo.Cond("res_model", "=", kind),
			odoo.Cond("res_id", "=", id),
		},
		[]string{"id", "name", "datas", "mimetype", "file_size"})
	if err != nil {
		return nil, err
	}
	out := make([]Attachment, 0, len(rows))
	for _, row := range rows {
		out = append(out, attachmentFromRecord(row))
	}
	return out, nil
}

// WriteAttachment decodes the payload and writes it under folder. An existing
// file is never replaced: name.ext, name_1.ext, name_2.ext, ... are tried in
// turn and the first free one is used.
func WriteAttachment(fs billy.Filesystem, att Attachment, folder string) WriteResult {
	if !att.HasPayload() {
		return WriteResult{Outcome: OutcomeSkipped, Err: ErrNoPayload}
	}
	data, err := decodePayload(att)
	if err != nil {
		return WriteResult{Outcome: OutcomeFailed, Err: fmt.Errorf("decode %q: %w", att.Name, err)}
	}
	name := pathComponent(att.Name, "attachment", att.ID)
	base, ext := splitExt(name)
	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		p := filepath.Join(folder, candidate)
		f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return WriteResult{Outcome: OutcomeFailed, Err: fmt.Errorf("create %q: %w", p, err)}
		}
		if err := writeAndClose(f, data); err != nil {
			_ = fs.Remove(p)
			return WriteResult{Outcome: OutcomeFailed, Err: fmt.Errorf("write %q: %w", p, err)}
		}
		return WriteResult{Outcome: OutcomeWritten, Path: p, Bytes: len(data)}
	}
	return WriteResult{Outcome: OutcomeFailed, Err: fmt.Errorf("no free file name for %q in %q", name, folder)}
}

func writeAndClose(f billy.File, data []byte) error {
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func decodePayload(att Attachment) ([]byte, error) {
	if len(att.Raw) > 0 {
		return att.Raw, nil
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, att.Payload)
	return base64.StdEncoding.DecodeString(clean)
}
