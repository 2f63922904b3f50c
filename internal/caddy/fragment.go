// Package caddy renders and manages the per-project Caddyfile fragments the
// proxy imports.
package caddy

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/0xa1bed0/omd/internal/routes"
)

const indent = "    "

// RenderOptions control the site blocks of a fragment.
type RenderOptions struct {
	// Domain is the project's base domain; it picks the certificate name.
	Domain string
	HTTPS  bool
	// CertsMount is the certificate directory inside the proxy container.
	CertsMount string
}

// Render produces the fragment for one project. Identical input gives
// byte-identical output.
func Render(project string, rules []routes.Rule, opts RenderOptions) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Managed by omd for project %s. Changes are overwritten on activate.\n", project)
	fmt.Fprintf(&b, "# Domain: %s\n", opts.Domain)

	for _, r := range rules {
		b.WriteString("\n")
		writeSite(&b, r, opts)
	}
	return b.Bytes()
}

// RenderRule produces the fragment of a standalone rule added with
// `omd proxy add`. Its certificate is named after the rule's own domain.
func RenderRule(rule routes.Rule, opts RenderOptions) []byte {
	opts.Domain = ""
	var b bytes.Buffer
	b.WriteString("# Managed by omd: standalone proxy rule.\n")
	fmt.Fprintf(&b, "# Domain: %s\n# Target: %s\n\n", rule.Domain, rule.Target)
	writeSite(&b, rule, opts)
	return b.Bytes()
}

func writeSite(b *bytes.Buffer, r routes.Rule, opts RenderOptions) {
	if opts.HTTPS {
		cert := CertName(r.Domain, opts.Domain)
		mount := opts.CertsMount
		if mount == "" {
			mount = "/certs"
		}
		fmt.Fprintf(b, "%s {\n", r.Domain)
		fmt.Fprintf(b, "%stls %s %s\n", indent, path.Join(mount, cert+".crt"), path.Join(mount, cert+".key"))
	} else {
		fmt.Fprintf(b, "http://%s {\n", r.Domain)
	}
	fmt.Fprintf(b, "%sreverse_proxy %s\n", indent, r.Target)
	b.WriteString("}\n")
}

// CertName is the certificate basename for a site: the project domain with
// dots replaced by underscores when the site lies under it, otherwise the
// site's own domain treated the same way.
func CertName(site, projectDomain string) string {
	base := site
	if projectDomain != "" && routes.Under(site, projectDomain) {
		base = projectDomain
	}
	return strings.ReplaceAll(strings.ToLower(base), ".", "_")
}

// ParseRules reads the site blocks of a fragment back into rules. Only the
// shape Render writes is understood.
func ParseRules(content []byte) []routes.Rule {
	var (
		rules   []routes.Rule
		current *routes.Rule
	)
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasSuffix(line, "{") && current == nil:
			addr := strings.TrimSpace(strings.TrimSuffix(line, "{"))
			addr = strings.TrimPrefix(strings.TrimPrefix(addr, "https://"), "http://")
			current = &routes.Rule{Domain: addr}
		case line == "}" && current != nil:
			rules = append(rules, *current)
			current = nil
		case current != nil && strings.HasPrefix(line, "reverse_proxy "):
			current.Target = strings.TrimSpace(strings.TrimPrefix(line, "reverse_proxy "))
		}
	}
	return rules
}
