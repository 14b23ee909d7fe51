package provision

import (
	"fmt"
	"os"

	"github.com/nguyenthenguyen/docx"
)

// DocxEditor rewrites placeholder text inside Word templates in place.
type DocxEditor struct{}

func (DocxEditor) ReplaceText(path string, replacements map[string]string) error {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return fmt.Errorf("open docx %s: %w", path, err)
	}
	d := r.Editable()
	for old, repl := range replacements {
		if err := d.Replace(old, repl, -1); err != nil {
			r.Close()
			return fmt.Errorf("replace %q in %s: %w", old, path, err)
		}
	}

	// Write beside the original and swap, so a failed write never leaves a
	// half-edited template.
	tmp := path + ".tmp"
	if err := d.WriteToFile(tmp); err != nil {
		r.Close()
		return fmt.Errorf("write docx %s: %w", path, err)
	}
	if err := r.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
