package deploy

import (
	"bytes"
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
)

//go:embed templates/project-context.mdc
var defaultTemplate []byte

// DefaultTemplate returns the body written to a freshly provisioned template.
func DefaultTemplate() []byte {
	return bytes.Clone(defaultTemplate)
}

// TemplateOutcome records what the provisioner did with the template.
type TemplateOutcome string

const (
	TemplateCreated     TemplateOutcome = "created"
	TemplatePreserved   TemplateOutcome = "preserved"
	TemplateWouldCreate TemplateOutcome = "would-create"
	TemplateFailed      TemplateOutcome = "failed"
)

// ProvisionTemplate creates the customizable template in target if, and only
// if, no file exists at its path.
//
// File presence is the only signal separating a fresh install from a
// customized one. The create is exclusive (O_EXCL), so a file appearing
// between check and write is preserved too.
func ProvisionTemplate(fs billy.Filesystem, target string, dryRun bool) (TemplateOutcome, error) {
	path := TemplatePath(target)

	if dryRun {
		_, err := fs.Stat(path)
		switch {
		case err == nil:
			return TemplatePreserved, nil
		case errors.Is(err, os.ErrNotExist):
			return TemplateWouldCreate, nil
		default:
			return TemplateFailed, NewWriteFailedError(path, "stat template", err)
		}
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return TemplateFailed, NewWriteFailedError(filepath.Dir(path), "create template directory", err)
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return TemplatePreserved, nil
	}
	if err != nil {
		return TemplateFailed, NewWriteFailedError(path, "create template", err)
	}

	_, werr := f.Write(defaultTemplate)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		return TemplateFailed, NewWriteFailedError(path, "write template", werr)
	}
	return TemplateCreated, nil
}
