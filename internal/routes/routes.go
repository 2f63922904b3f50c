// Package routes turns parsed compose services into proxy routing rules.
package routes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/compose"
)

// Rule maps a fully-qualified domain to a "container:port" target.
type Rule struct {
	Domain string
	Target string
}

func (r Rule) String() string { return r.Domain + " -> " + r.Target }

// Derive builds the routes for one project.
//
// Without overrides, every service that publishes a host port gets
// "<service>.<base>" pointing at its container port. The first published
// mapping of a service wins. A non-empty overrides map replaces that set
// entirely: keys without a dot are subdomains of base, keys with a dot are
// used as-is, and targets are taken verbatim.
//
// Rules come back sorted by domain. Two rules on one domain is an error.
func Derive(entries []compose.ServiceEntry, base string, overrides map[string]string) ([]Rule, error) {
	base = normalizeDomain(base)
	if base == "" {
		return nil, apperr.Invalid("domain", "", "base domain is empty")
	}

	var rules []Rule
	if len(overrides) > 0 {
		for key, target := range overrides {
			key = normalizeDomain(key)
			if key == "" {
				return nil, apperr.Invalid("caddy.routes", "", "route key is empty")
			}
			target = strings.TrimSpace(target)
			if target == "" {
				return nil, apperr.Invalid("caddy.routes."+key, "", "route target is empty")
			}
			domain := key
			if !strings.Contains(key, ".") {
				domain = key + "." + base
			}
			rules = append(rules, Rule{Domain: domain, Target: target})
		}
	} else {
		seen := map[string]bool{}
		for _, e := range entries {
			if !e.Published() || seen[e.ServiceName] {
				continue
			}
			seen[e.ServiceName] = true
			rules = append(rules, Rule{
				Domain: normalizeDomain(e.ServiceName) + "." + base,
				Target: fmt.Sprintf("%s:%d", e.ContainerName, e.ContainerPort),
			})
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Domain != rules[j].Domain {
			return rules[i].Domain < rules[j].Domain
		}
		return rules[i].Target < rules[j].Target
	})
	for i := 1; i < len(rules); i++ {
		if rules[i].Domain == rules[i-1].Domain {
			return nil, apperr.Invalid("domain", rules[i].Domain,
				fmt.Sprintf("claimed by both %s and %s", rules[i-1].Target, rules[i].Target))
		}
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

// Under reports whether domain is base or one of its subdomains.
func Under(domain, base string) bool {
	domain, base = normalizeDomain(domain), normalizeDomain(base)
	return domain == base || strings.HasSuffix(domain, "."+base)
}

func normalizeDomain(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
