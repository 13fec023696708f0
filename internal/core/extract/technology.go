package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Signature is a named technology with its alternative patterns.
type Signature struct {
	Name     string
	Patterns []*regexp.Regexp
}

func sig(name string, patterns ...string) Signature {
	s := Signature{Name: name}
	for _, p := range patterns {
		s.Patterns = append(s.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return s
}

// Signatures is the fixed technology table. Matching is case-insensitive
// against headers followed by body.
var Signatures = []Signature{
	sig("WordPress", `/wp-content/`, `/wp-includes/`, `wp-json`, `wordpress`, `wp-admin`),
	sig("Drupal", `/sites/default/`, `drupal`),
	sig("Joomla", `/templates/`, `joomla`, `com_content`),
	sig("Apache", `apache/`, `server:\s*apache`),
	sig("Nginx", `nginx/`, `server:\s*nginx`),
	sig("IIS", `iis/`, `server:\s*microsoft-iis`),
	sig("PHP", `x-powered-by:\s*php`, `\.php\b`, `php/`),
	sig("ASP.NET", `x-aspnet-version`, `x-powered-by:\s*asp\.net`, `\.aspx\b`, `\.ashx\b`),
	sig("Node.js", `x-powered-by:\s*express`, `node\.js`),
	sig("React", `__react_devtools`, `data-reactroot`, `react(?:\.production)?(?:\.min)?\.js`),
	sig("Angular", `ng-version`, `angular(?:\.min)?\.js`),
	sig("Vue.js", `__vue__`, `vue(?:\.min)?\.js`, `data-v-[0-9a-f]{6,}`),
	sig("jQuery", `jquery`),
	sig("Cloudflare", `cf-ray`, `server:\s*cloudflare`),
	sig("Tomcat", `apache-coyote`, `tomcat`),
}

// DetectTechnologies returns every technology with at least one matching
// signature, sorted by name. Signatures of one technology stop at the
// first hit; all technologies are still evaluated.
func DetectTechnologies(headers, body string) []string {
	return detectWith(Signatures, headers+"\n"+body)
}

func detectWith(table []Signature, haystack string) []string {
	if strings.TrimSpace(haystack) == "" {
		return nil
	}
	var found []string
	for _, s := range table {
		for _, p := range s.Patterns {
			if p.MatchString(haystack) {
				found = append(found, s.Name)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

// SecurityHeaders lists the response headers audited by the web stage.
var SecurityHeaders = []string{
	"X-Frame-Options",
	"X-Content-Type-Options",
	"X-XSS-Protection",
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"Referrer-Policy",
	"Permissions-Policy",
	"Cross-Origin-Embedder-Policy",
}
