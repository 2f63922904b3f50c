// Package hosts keeps one marked section per project in a hosts file so
// project domains resolve locally.
package hosts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	startMarker = "# === omd start ==="
	endMarker   = "# === omd end ==="
)

type section struct {
	project string
	domains []string
}

// document is a hosts file split into unmanaged lines and omd sections.
// Sections are re-emitted at the end of the file, sorted by project.
type document struct {
	lines    []string
	sections map[string]*section
}

func parse(content string) *document {
	doc := &document{sections: map[string]*section{}}
	var cur *section
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, startMarker):
			cur = &section{project: strings.TrimSpace(strings.TrimPrefix(trimmed, startMarker))}
			doc.sections[cur.project] = cur
		case strings.HasPrefix(trimmed, endMarker) && cur != nil:
			cur = nil
		case cur != nil:
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 && !strings.HasPrefix(fields[0], "#") {
				cur.domains = append(cur.domains, fields[1:]...)
			}
		default:
			doc.lines = append(doc.lines, line)
		}
	}
	// trailing blank lines come back with the sections
	for len(doc.lines) > 0 && strings.TrimSpace(doc.lines[len(doc.lines)-1]) == "" {
		doc.lines = doc.lines[:len(doc.lines)-1]
	}
	return doc
}

func (d *document) render(address string) string {
	var b strings.Builder
	for _, l := range d.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	names := make([]string, 0, len(d.sections))
	for name := range d.sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := d.sections[name]
		if len(s.domains) == 0 {
			continue
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", startMarker, name)
		for _, domain := range s.domains {
			fmt.Fprintf(&b, "%s %s\n", address, domain)
		}
		fmt.Fprintf(&b, "%s %s\n", endMarker, name)
	}
	return b.String()
}

// taken lists domains resolved outside the given project's section.
func (d *document) taken(project string) map[string]string {
	out := map[string]string{}
	for _, l := range d.lines {
		fields := strings.Fields(l)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		for _, f := range fields[1:] {
			if strings.HasPrefix(f, "#") {
				break
			}
			out[strings.ToLower(f)] = ""
		}
	}
	for name, s := range d.sections {
		if name == project {
			continue
		}
		for _, domain := range s.domains {
			out[strings.ToLower(domain)] = name
		}
	}
	return out
}

// File edits a hosts file in place.
type File struct {
	fs      afero.Fs
	path    string
	address string
}

func NewFile(fsys afero.Fs, path, address string) *File {
	return &File{fs: fsys, path: path, address: address}
}

func (f *File) Path() string { return f.path }

// Apply makes project's section hold exactly domains. Domains that already
// resolve through an unmanaged line or another project's section are left
// alone and returned in skipped.
func (f *File) Apply(project string, domains []string) (skipped []string, err error) {
	doc, mode, err := f.load()
	if err != nil {
		return nil, err
	}

	taken := doc.taken(project)
	var keep []string
	seen := map[string]bool{}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		if _, ok := taken[d]; ok {
			skipped = append(skipped, d)
			continue
		}
		keep = append(keep, d)
	}
	sort.Strings(keep)

	if len(keep) == 0 {
		delete(doc.sections, project)
	} else {
		doc.sections[project] = &section{project: project, domains: keep}
	}
	return skipped, f.save(doc, mode)
}

// Remove drops project's section; it reports whether one existed.
func (f *File) Remove(project string) (bool, error) {
	doc, mode, err := f.load()
	if err != nil {
		return false, err
	}
	if _, ok := doc.sections[project]; !ok {
		return false, nil
	}
	delete(doc.sections, project)
	return true, f.save(doc, mode)
}

// Domains returns the managed domains per project.
func (f *File) Domains() (map[string][]string, error) {
	doc, _, err := f.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(doc.sections))
	for name, s := range doc.sections {
		out[name] = append([]string(nil), s.domains...)
	}
	return out, nil
}

// Cleanup drops every omd section and returns the projects they belonged
// to, sorted. Unmanaged lines are kept as they are.
func (f *File) Cleanup() ([]string, error) {
	doc, mode, err := f.load()
	if err != nil {
		return nil, err
	}
	if len(doc.sections) == 0 {
		return nil, nil
	}
	removed := make([]string, 0, len(doc.sections))
	for name := range doc.sections {
		removed = append(removed, name)
	}
	sort.Strings(removed)
	doc.sections = map[string]*section{}
	return removed, f.save(doc, mode)
}

func (f *File) load() (*document, os.FileMode, error) {
	mode := os.FileMode(0o644)
	if fi, err := f.fs.Stat(f.path); err == nil {
		mode = fi.Mode().Perm()
	}
	content, err := afero.ReadFile(f.fs, f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("read hosts file %s: %w", f.path, err)
	}
	return parse(string(content)), mode, nil
}

// save writes in place; hosts files are often bind mounts that cannot be
// replaced by rename.
func (f *File) save(doc *document, mode os.FileMode) error {
	if err := afero.WriteFile(f.fs, f.path, []byte(doc.render(f.address)), mode); err != nil {
		return fmt.Errorf("write hosts file %s: %w", f.path, err)
	}
	return nil
}
