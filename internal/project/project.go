// Package project loads the per-project declaration file, omd.toml.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/utils"
)

const (
	DeclarationFile    = "omd.toml"
	DefaultComposeFile = "docker-compose.yml"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Declaration mirrors omd.toml.
//
//	[project]
//	name = "shop"
//	domain = "shop.local"
//	compose_file = "docker-compose.yml"
//
//	[network]
//	name = "shop-net"
//
//	[caddy.routes]
//	admin = "admin-panel:8080"
type Declaration struct {
	Project struct {
		Name        string `toml:"name"`
		Domain      string `toml:"domain"`
		ComposeFile string `toml:"compose_file"`
	} `toml:"project"`
	Network struct {
		Name string `toml:"name"`
	} `toml:"network"`
	Caddy struct {
		Routes map[string]string `toml:"routes"`
	} `toml:"caddy"`
}

// Project is a loaded declaration plus the locations it resolves to.
type Project struct {
	Name        string
	Domain      string
	Network     string
	Routes      map[string]string
	Dir         string
	Declaration string
	ComposeFile string
}

// Locate resolves path (a project directory or its omd.toml) to the project
// directory and declaration file.
func Locate(fsys afero.Fs, path string) (dir, declaration string, err error) {
	if path == "" {
		path = "."
	}
	dir, file, err := utils.ResolveFolderStrict(fsys, path)
	if err != nil {
		if errors.Is(err, utils.ErrNonexistentPath) {
			return "", "", fmt.Errorf("%w: %s", apperr.ErrConfigNotFound, path)
		}
		return "", "", err
	}
	if file == "" {
		file = filepath.Join(dir, DeclarationFile)
	}
	return dir, file, nil
}

// Load reads and validates the declaration found at path.
func Load(fsys afero.Fs, path string) (*Project, error) {
	dir, declPath, err := Locate(fsys, path)
	if err != nil {
		return nil, err
	}

	f, err := fsys.Open(declPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s", apperr.ErrConfigNotFound, DeclarationFile, dir)
		}
		return nil, fmt.Errorf("open %s: %w", declPath, err)
	}
	defer f.Close()

	var decl Declaration
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&decl); err != nil {
		return nil, decodeError(declPath, err)
	}

	if err := decl.validate(); err != nil {
		return nil, err
	}

	composeRel := decl.Project.ComposeFile
	if strings.TrimSpace(composeRel) == "" {
		composeRel = DefaultComposeFile
	}
	composePath, err := utils.JoinRelative(dir, composeRel)
	if err != nil {
		return nil, apperr.Invalid("project.compose_file", composeRel, err.Error())
	}

	return &Project{
		Name:        decl.Project.Name,
		Domain:      strings.TrimSuffix(strings.ToLower(decl.Project.Domain), "."),
		Network:     decl.Network.Name,
		Routes:      decl.Caddy.Routes,
		Dir:         dir,
		Declaration: declPath,
		ComposeFile: composePath,
	}, nil
}

func (d *Declaration) validate() error {
	d.Project.Name = strings.TrimSpace(d.Project.Name)
	d.Project.Domain = strings.TrimSpace(d.Project.Domain)
	d.Network.Name = strings.TrimSpace(d.Network.Name)

	switch {
	case d.Project.Name == "":
		return apperr.Invalid("project.name", "", "is required")
	case !validName.MatchString(d.Project.Name):
		return apperr.Invalid("project.name", d.Project.Name, "must be lower case letters, digits, '.', '_' or '-'")
	case d.Project.Domain == "":
		return apperr.Invalid("project.domain", "", "is required")
	case strings.ContainsAny(d.Project.Domain, " /:"):
		return apperr.Invalid("project.domain", d.Project.Domain, "is not a domain name")
	case d.Network.Name == "":
		return apperr.Invalid("network.name", "", "is required")
	}
	return nil
}

func decodeError(file string, err error) error {
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		fields := make([]string, 0, len(strict.Errors))
		for _, e := range strict.Errors {
			fields = append(fields, strings.Join(e.Key(), "."))
		}
		return apperr.Parse(file, strings.Join(fields, ", "), "unknown field(s)")
	}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		row, col := de.Position()
		return apperr.Parse(file, fmt.Sprintf("line %d, column %d", row, col), de.Error())
	}
	return apperr.Parse(file, "", err.Error())
}
