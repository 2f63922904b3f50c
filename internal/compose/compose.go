// Package compose extracts services, container names and port mappings from
// a docker compose file. Everything else in the file is ignored.
package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/0xa1bed0/omd/internal/apperr"
)

const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// ServiceEntry is one (service, host port) fact discovered in a compose file.
// A service publishing several ports yields one entry per host port; a
// service publishing nothing yields a single entry with HostPort == 0.
type ServiceEntry struct {
	ServiceName   string
	ContainerName string
	HostPort      int
	ContainerPort int
	Protocol      string
	HostIP        string
}

// Published reports whether the entry binds a port on the host.
func (e ServiceEntry) Published() bool { return e.HostPort != 0 }

// DeriveContainerName returns the name compose gives the first replica of a
// service when no container_name is declared.
func DeriveContainerName(project, service string) string {
	return fmt.Sprintf("%s-%s-1", project, service)
}

// ParseFile reads path from fsys and parses it.
func ParseFile(fsys afero.Fs, path, project string) ([]ServiceEntry, error) {
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrComposeNotFound, path)
		}
		return nil, fmt.Errorf("read compose file %s: %w", path, err)
	}
	return parse(content, project, path)
}

// Parse turns compose content into service entries, in file order.
func Parse(content []byte, project string) ([]ServiceEntry, error) {
	return parse(content, project, "")
}

func parse(content []byte, project, file string) ([]ServiceEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, apperr.Parse(file, firstLine(content), err.Error())
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []ServiceEntry{}, nil
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, apperr.Parse(file, fragment(root), "top level must be a mapping")
	}

	services := lookup(root, "services")
	if services == nil || isNull(services) {
		return []ServiceEntry{}, nil
	}
	if services.Kind != yaml.MappingNode {
		return nil, apperr.Parse(file, fragment(services), "services must be a mapping")
	}

	p := parser{file: file, project: project}
	seen := map[string]struct{}{}
	entries := []ServiceEntry{}
	for i := 0; i+1 < len(services.Content); i += 2 {
		keyNode, body := services.Content[i], resolve(services.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, apperr.Parse(file, fragment(keyNode), "service name must be a non-empty string")
		}
		name := keyNode.Value
		if _, dup := seen[name]; dup {
			return nil, apperr.Parse(file, name, "service declared more than once")
		}
		seen[name] = struct{}{}

		svc, err := p.service(name, body)
		if err != nil {
			return nil, err
		}
		entries = append(entries, svc...)
	}
	return entries, nil
}

type parser struct {
	file    string
	project string
}

func (p parser) service(name string, body *yaml.Node) ([]ServiceEntry, error) {
	if isNull(body) {
		return []ServiceEntry{{ServiceName: name, ContainerName: DeriveContainerName(p.project, name), Protocol: ProtocolTCP}}, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, apperr.Parse(p.file, fragment(body), fmt.Sprintf("service %q must be a mapping", name))
	}

	containerName := DeriveContainerName(p.project, name)
	if n := lookup(body, "container_name"); n != nil && !isNull(n) {
		if n.Kind != yaml.ScalarNode || n.Value == "" {
			return nil, apperr.Parse(p.file, fragment(n), fmt.Sprintf("service %q: container_name must be a string", name))
		}
		containerName = n.Value
	}

	var mappings []portMapping
	if ports := lookup(body, "ports"); ports != nil && !isNull(ports) {
		var err error
		if mappings, err = p.ports(ports); err != nil {
			return nil, err
		}
	}

	if len(mappings) == 0 {
		return []ServiceEntry{{ServiceName: name, ContainerName: containerName, Protocol: ProtocolTCP}}, nil
	}

	entries := make([]ServiceEntry, 0, len(mappings))
	for _, m := range mappings {
		entries = append(entries, ServiceEntry{
			ServiceName:   name,
			ContainerName: containerName,
			HostPort:      m.host,
			ContainerPort: m.container,
			Protocol:      m.protocol,
			HostIP:        m.hostIP,
		})
	}
	return entries, nil
}

func (p parser) ports(node *yaml.Node) ([]portMapping, error) {
	items := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		items = node.Content
	}

	var out []portMapping
	for _, item := range items {
		item = resolve(item)
		var (
			got []portMapping
			err error
		)
		switch item.Kind {
		case yaml.ScalarNode:
			got, err = parseShortSyntax(item.Value)
		case yaml.MappingNode:
			got, err = parseLongSyntax(item)
		default:
			err = apperr.Parse("", fragment(item), "port mapping must be a string or a mapping")
		}
		if err != nil {
			return nil, withFile(err, p.file)
		}
		out = append(out, got...)
	}
	return out, nil
}

// HostPorts returns the sorted, de-duplicated published host ports.
func HostPorts(entries []ServiceEntry) []int {
	ports := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.Published() {
			ports = append(ports, e.HostPort)
		}
	}
	slices.Sort(ports)
	return slices.Compact(ports)
}

// ContainerNames returns container names in first-seen order.
func ContainerNames(entries []ServiceEntry) []string {
	names := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ContainerName]; ok {
			continue
		}
		seen[e.ContainerName] = struct{}{}
		names = append(names, e.ContainerName)
	}
	return names
}

func withFile(err error, file string) error {
	var pe *apperr.ParseError
	if errors.As(err, &pe) && pe.File == "" {
		pe.File = file
	}
	return err
}
