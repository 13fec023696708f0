// internal/core/usecases/wordlists.go
package usecases

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	perrors "reconmcp/internal/platform/errors"
)

// CommonSubdomains es la wordlist integrada para enumeración DNS.
var CommonSubdomains = []string{
	"www", "mail", "ftp", "admin", "api", "dev", "test", "staging",
	"blog", "shop", "store", "app", "mobile", "beta", "alpha",
	"secure", "portal", "support", "help", "docs", "cdn", "img",
	"static", "assets", "media", "download", "vpn", "remote",
}

// CommonDirs son directorios probados por el directory scan.
var CommonDirs = []string{
	"admin", "administrator", "login", "panel", "control", "dashboard",
	"wp-admin", "phpmyadmin", "cpanel", "webmail", "mail",
	"api", "rest", "v1", "v2", "graphql",
	"backup", "backups", "bak", "old", "tmp", "temp",
	"test", "dev", "staging", "beta", "demo",
	"uploads", "upload", "files", "images", "img", "assets", "js", "css", "static", "public", "private",
	"config", "conf", "settings", "env",
}

// CommonFiles son ficheros probados por el directory scan.
var CommonFiles = []string{
	"robots.txt", "sitemap.xml", "crossdomain.xml", "clientaccesspolicy.xml", "favicon.ico",
	".htaccess", ".htpasswd", "web.config",
	"config.php", "config.inc.php", "configuration.php", "settings.php", "wp-config.php", "database.php",
	"readme.txt", "readme.html", "changelog.txt",
	"phpinfo.php", "info.php", "test.php",
	".env", ".env.local", ".env.production", "env.js",
	"backup.sql", "database.sql", "dump.sql",
}

// maxWordlistEntries limita las wordlists cargadas desde disco.
const maxWordlistEntries = 100000

// WebWordlist resuelve el nombre de una wordlist web: "common" (dirs +
// files), "dirs" o "files".
func WebWordlist(name string) ([]string, error) {
	switch name {
	case "", "common":
		out := make([]string, 0, len(CommonDirs)+len(CommonFiles))
		out = append(out, CommonDirs...)
		return append(out, CommonFiles...), nil
	case "dirs":
		return append([]string(nil), CommonDirs...), nil
	case "files":
		return append([]string(nil), CommonFiles...), nil
	default:
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "unknown web wordlist %q", name)
	}
}

// DNSWordlist resuelve el nombre de una wordlist de subdominios. Solo
// "common" está integrada.
func DNSWordlist(name string) ([]string, error) {
	switch name {
	case "", "common":
		return append([]string(nil), CommonSubdomains...), nil
	default:
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "unknown dns wordlist %q", name)
	}
}

// LoadWordlist lee una palabra por línea. Líneas vacías y comentarios (#)
// se ignoran.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perrors.Wrap(err, "open wordlist")
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
		if len(words) >= maxWordlistEntries {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, perrors.Wrap(err, "read wordlist")
	}
	if len(words) == 0 {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "wordlist %s is empty", path)
	}
	return words, nil
}

// WordlistsText describe las wordlists integradas.
func WordlistsText() string {
	var sb strings.Builder
	sb.WriteString("=== AVAILABLE WORDLISTS ===\n\n")
	sb.WriteString("DNS Subdomain Enumeration:\n")
	fmt.Fprintf(&sb, "  common: %d entries\n", len(CommonSubdomains))
	fmt.Fprintf(&sb, "    Examples: %s...\n\n", strings.Join(CommonSubdomains[:10], ", "))
	sb.WriteString("Web Directory/File Scanning:\n")
	fmt.Fprintf(&sb, "  common: %d entries total\n", len(CommonDirs)+len(CommonFiles))
	fmt.Fprintf(&sb, "  dirs: %d directories\n", len(CommonDirs))
	fmt.Fprintf(&sb, "    Examples: %s...\n", strings.Join(CommonDirs[:10], ", "))
	fmt.Fprintf(&sb, "  files: %d files\n", len(CommonFiles))
	fmt.Fprintf(&sb, "    Examples: %s...\n\n", strings.Join(CommonFiles[:10], ", "))
	sb.WriteString("Usage:\n")
	sb.WriteString("  dns_subdomain_enum domain=example.com wordlist=common\n")
	sb.WriteString("  web_directory_scan url=https://example.com wordlist=dirs\n")
	sb.WriteString("  web_directory_scan url=https://example.com wordlist=files\n")
	return sb.String()
}
