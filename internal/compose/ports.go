package compose

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"

	"github.com/0xa1bed0/omd/internal/apperr"
)

type portMapping struct {
	hostIP    string
	host      int
	container int
	protocol  string
}

// parseShortSyntax handles "PORT", "HOST:CONTAINER", "IP:HOST:CONTAINER",
// "IP::CONTAINER", ranges on either side and an optional "/proto" suffix.
// A bare port binds the same number on the host; an empty host part means
// an ephemeral host port and is reported unpublished.
func parseShortSyntax(raw string) ([]portMapping, error) {
	spec := strings.TrimSpace(raw)
	if spec == "" {
		return nil, apperr.Parse("", raw, "empty port mapping")
	}

	body, proto := spec, ProtocolTCP
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		body, proto = spec[:i], strings.ToLower(spec[i+1:])
	}
	if proto != ProtocolTCP && proto != ProtocolUDP {
		return nil, apperr.Invalid("protocol", proto, "must be tcp or udp")
	}

	containerPart, hostPart, bare := body, "", true
	if i := strings.LastIndex(body, ":"); i >= 0 {
		bare = false
		containerPart, hostPart = body[i+1:], body[:i]
		if j := strings.LastIndex(hostPart, ":"); j >= 0 {
			hostPart = hostPart[j+1:]
		}
	}

	cStart, cEnd, err := portRange(raw, "container port", containerPart)
	if err != nil {
		return nil, err
	}
	hStart, hEnd := 0, 0
	if bare {
		hStart, hEnd = cStart, cEnd
	} else if hostPart != "" {
		if hStart, hEnd, err = portRange(raw, "host port", hostPart); err != nil {
			return nil, err
		}
	}

	// nat validates the host address and the range shapes, and expands the
	// container side.
	specs, err := nat.ParsePortSpec(spec)
	if err != nil {
		return nil, apperr.Parse("", raw, err.Error())
	}

	var out []portMapping
	for i, s := range specs {
		m := portMapping{
			hostIP:    s.Binding.HostIP,
			container: s.Port.Int(),
			protocol:  s.Port.Proto(),
		}
		switch {
		case hStart == 0:
			out = append(out, m)
		case hEnd-hStart == cEnd-cStart:
			m.host = hStart + i
			out = append(out, m)
		default:
			// single container port published on every port of a host range
			for h := hStart; h <= hEnd; h++ {
				m.host = h
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// parseLongSyntax handles the mapping form:
//
//	- target: 80
//	  published: "8080"
//	  protocol: tcp
//	  host_ip: 127.0.0.1
func parseLongSyntax(node *yaml.Node) ([]portMapping, error) {
	frag := fragment(node)

	target := lookup(node, "target")
	if target == nil || isNull(target) || target.Kind != yaml.ScalarNode {
		return nil, apperr.Parse("", frag, "port mapping requires a target")
	}
	containerPart := strings.TrimSpace(target.Value)

	proto := ProtocolTCP
	if n := lookup(node, "protocol"); n != nil && n.Kind == yaml.ScalarNode && n.Value != "" {
		proto = strings.ToLower(n.Value)
	}

	var published, hostIP string
	if n := lookup(node, "published"); n != nil && n.Kind == yaml.ScalarNode && !isNull(n) {
		published = strings.TrimSpace(n.Value)
	}
	if n := lookup(node, "host_ip"); n != nil && n.Kind == yaml.ScalarNode && !isNull(n) {
		hostIP = strings.TrimSpace(n.Value)
	}

	if published == "" {
		if proto != ProtocolTCP && proto != ProtocolUDP {
			return nil, apperr.Invalid("protocol", proto, "must be tcp or udp")
		}
		start, end, err := portRange(frag, "container port", containerPart)
		if err != nil {
			return nil, err
		}
		if start != end {
			return nil, apperr.Parse("", frag, "target must be a single port")
		}
		return []portMapping{{hostIP: hostIP, container: start, protocol: proto}}, nil
	}

	if strings.Contains(hostIP, ":") && !strings.HasPrefix(hostIP, "[") {
		hostIP = "[" + hostIP + "]"
	}
	spec := published + ":" + containerPart + "/" + proto
	if hostIP != "" {
		spec = hostIP + ":" + spec
	}
	mappings, err := parseShortSyntax(spec)
	if err != nil {
		return nil, reframe(err, frag)
	}
	return mappings, nil
}

// portRange parses "N" or "N-M". Non-numeric text is a parse error; numbers
// outside 1..65535, negative ones included, are validation errors.
func portRange(raw, field, part string) (int, int, error) {
	if rest, neg := strings.CutPrefix(part, "-"); neg && rest != "" && strings.Trim(rest, "0123456789") == "" {
		return 0, 0, apperr.Invalid(field, part, "must be between 1 and 65535")
	}
	lo, hi, isRange := strings.Cut(part, "-")
	start, err := portNumber(raw, field, lo)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return start, start, nil
	}
	end, err := portNumber(raw, field, hi)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, apperr.Invalid(field, part, "range end is below range start")
	}
	return start, end, nil
}

func portNumber(raw, field, s string) (int, error) {
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return 0, apperr.Parse("", raw, field+" is not a number")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, apperr.Invalid(field, s, "must be between 1 and 65535")
	}
	return n, nil
}

func reframe(err error, frag string) error {
	if pe, ok := err.(*apperr.ParseError); ok {
		pe.Fragment = frag
	}
	return err
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// lookup finds key in a mapping node, following "<<" merge keys.
func lookup(m *yaml.Node, key string) *yaml.Node {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var merges []*yaml.Node
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if k.Value == key {
			return resolve(m.Content[i+1])
		}
		if k.Value == "<<" {
			merges = append(merges, resolve(m.Content[i+1]))
		}
	}
	for _, merge := range merges {
		if merge.Kind == yaml.SequenceNode {
			for _, src := range merge.Content {
				if v := lookup(src, key); v != nil {
					return v
				}
			}
			continue
		}
		if v := lookup(merge, key); v != nil {
			return v
		}
	}
	return nil
}

func fragment(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Sprintf("line %d", n.Line)
	}
	return strings.TrimSpace(string(out))
}

func firstLine(content []byte) string {
	line, _, _ := bytes.Cut(bytes.TrimSpace(content), []byte("\n"))
	return string(line)
}
