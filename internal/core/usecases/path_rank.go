package usecases

import (
	"net/http"
	"path"
	"sort"
	"strings"

	"reconmcp/internal/core/ports"
)

// PathCategory agrupa los hallazgos del directory scan por interés.
type PathCategory string

const (
	PathCritical PathCategory = "critical"
	PathHigh     PathCategory = "high"
	PathMedium   PathCategory = "medium"
	PathLow      PathCategory = "low"
)

// RankedPath es un PathHit con su puntuación.
type RankedPath struct {
	ports.PathHit
	Score    int
	Category PathCategory
	Reasons  []string
}

// pathRule suma weight cuando algún patrón aparece en la ruta.
type pathRule struct {
	reason   string
	weight   int
	category PathCategory
	match    func(p string) bool
}

func anyOf(patterns ...string) func(string) bool {
	return func(p string) bool {
		for _, pat := range patterns {
			if strings.Contains(p, pat) {
				return true
			}
		}
		return false
	}
}

func endsWith(suffixes ...string) func(string) bool {
	return func(p string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(p, s) {
				return true
			}
		}
		return false
	}
}

// Orden de mayor a menor peso; la categoría final es la de la primera
// regla que coincide.
var pathRules = []pathRule{
	{reason: "sensitive_file", weight: 1000, category: PathCritical, match: anyOf(
		".env", "config.php", "wp-config", "config.yml", "config.json", "database.yml",
		"credentials", "secrets", "web.config", ".htpasswd", "id_rsa", "id_ed25519",
		"authorized_keys", "settings.py", "application.properties", "private.key",
	)},
	{reason: "repository", weight: 800, category: PathCritical, match: anyOf(
		"/.git", "/.svn", "/.hg", "/.bzr", "/cvs/",
	)},
	{reason: "backup_file", weight: 600, category: PathHigh, match: endsWith(
		".bak", ".old", ".backup", ".orig", ".save", ".swp", ".sql", ".sql.gz",
		".tar.gz", ".zip", ".7z", ".dump", "~",
	)},
	{reason: "database_admin", weight: 450, category: PathHigh, match: anyOf(
		"/phpmyadmin", "/pma", "/adminer", "/mysql", "/db",
	)},
	{reason: "admin_path", weight: 400, category: PathHigh, match: anyOf(
		"/admin", "/administrator", "/dashboard", "/panel", "/console", "/cpanel",
		"/wp-admin", "/manager", "/server-status", "/jenkins",
	)},
	{reason: "auth_path", weight: 350, category: PathMedium, match: anyOf(
		"/login", "/signin", "/auth", "/oauth", "/sso", "/register", "/reset",
	)},
	{reason: "api_endpoint", weight: 300, category: PathMedium, match: anyOf(
		"/api", "/rest", "/graphql", "/swagger", "/v1", "/v2",
	)},
	{reason: "config_path", weight: 300, category: PathMedium, match: anyOf(
		"/config", "/settings", "/setup", "/install",
	)},
	{reason: "upload_path", weight: 250, category: PathMedium, match: anyOf(
		"/upload", "/files", "/documents", "/attachments", "/backup",
	)},
	{reason: "static_asset", weight: -200, category: PathLow, match: func(p string) bool {
		return staticExts[path.Ext(p)]
	}},
	{reason: "asset_dir", weight: -100, category: PathLow, match: anyOf(
		"/assets", "/static", "/images", "/img", "/css", "/js/", "/fonts",
	)},
}

var staticExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".ico": true,
	".webp": true, ".css": true, ".woff": true, ".woff2": true, ".ttf": true,
	".mp4": true, ".mp3": true, ".pdf": true,
}

// RankPath puntúa una ruta encontrada. Un 200 pesa más que un 401/403 y
// éste más que una redirección.
func RankPath(hit ports.PathHit) RankedPath {
	r := RankedPath{PathHit: hit, Category: PathLow}
	p := strings.ToLower(hit.Path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	matched := false
	for _, rule := range pathRules {
		if !rule.match(p) {
			continue
		}
		r.Score += rule.weight
		r.Reasons = append(r.Reasons, rule.reason)
		if !matched && rule.weight > 0 {
			r.Category = rule.category
			matched = true
		}
	}

	switch {
	case hit.StatusCode == http.StatusOK:
		r.Score += 100
	case hit.StatusCode == http.StatusUnauthorized || hit.StatusCode == http.StatusForbidden:
		r.Score += 50
	}
	return r
}

// RankPaths ordena los hallazgos por puntuación descendente; a igualdad,
// por ruta.
func RankPaths(hits []ports.PathHit) []RankedPath {
	out := make([]RankedPath, 0, len(hits))
	for _, h := range hits {
		out = append(out, RankPath(h))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out
}
