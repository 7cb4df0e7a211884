package search

import (
	"net/url"
	"strings"
)

// DomainPolicy restricts which hosts may be cited. An empty allowlist accepts
// every host and relies on the engine's own site restrictions.
type DomainPolicy struct {
	allowed []string
}

// NewDomainPolicy normalizes an allowlist of bare domains ("cdc.gov").
func NewDomainPolicy(domains []string) DomainPolicy {
	allowed := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "*.")
		d = strings.Trim(d, ".")
		if d != "" {
			allowed = append(allowed, d)
		}
	}
	return DomainPolicy{allowed: allowed}
}

// Allows reports whether rawURL's host is allowlisted, by exact or subdomain
// match.
func (p DomainPolicy) Allows(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return false
	}
	if len(p.allowed) == 0 {
		return true
	}
	for _, domain := range p.allowed {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Filter drops results without a title or URL and those outside the policy,
// preserving rank order.
func (p DomainPolicy) Filter(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
			continue
		}
		if !p.Allows(r.URL) {
			continue
		}
		out = append(out, r)
	}
	return out
}
