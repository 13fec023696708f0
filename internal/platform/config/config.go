// internal/platform/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/platform/ui"
)

// EnvPrefix es el prefijo de todas las variables de entorno.
const EnvPrefix = "RECONMCP_"

type Config struct {
	Server   Server   `yaml:"server"`
	Recon    Recon    `yaml:"recon"`
	Adapters Adapters `yaml:"adapters"`
	Brute    Brute    `yaml:"brute"`
	Report   Report   `yaml:"report"`
	Log      Log      `yaml:"log"`
	Metrics  Metrics  `yaml:"metrics"`

	// UIMode solo aplica al modo scan de una sola ejecución
	UIMode string `yaml:"ui"`

	// Solo CLI
	ConfigPath   string   `yaml:"-"`
	Target       string   `yaml:"-"`
	PrintVersion bool     `yaml:"-"`
	Args         []string `yaml:"-"`
}

type Server struct {
	Name string `yaml:"name"`
	// Transport: solo "stdio" por ahora
	Transport string `yaml:"transport"`
	// ThrottleCalls llamadas de scan permitidas por ThrottleWindowS (0 = sin límite)
	ThrottleCalls   int `yaml:"throttle_calls"`
	ThrottleWindowS int `yaml:"throttle_window"`
}

type Recon struct {
	SessionTimeoutS int    `yaml:"session_timeout"`
	QuickTimeoutS   int    `yaml:"quick_timeout"`
	ScanTimeoutS    int    `yaml:"scan_timeout"`
	WebTimeoutS     int    `yaml:"web_timeout"`
	DNSTimeoutS     int    `yaml:"dns_timeout"`
	PortProfile     string `yaml:"port_profile"`
	Deep            bool   `yaml:"deep"`
	// Workers acota el directory scan; DNSWorkers la enumeración de subdominios
	Workers     int    `yaml:"workers"`
	DNSWorkers  int    `yaml:"dns_workers"`
	WebWordlist string `yaml:"web_wordlist"`
}

type Adapters struct {
	// PortScanner: "nmap" | "connect"
	PortScanner  string `yaml:"portscan"`
	NmapPath     string `yaml:"nmap_path"`
	HydraPath    string `yaml:"hydra_path"`
	DNSServer    string `yaml:"dns_server"`
	HTTPTimeoutS int    `yaml:"http_timeout"`
	UserAgent    string `yaml:"user_agent"`
	Screenshots  bool   `yaml:"screenshots"`
	ChromePath   string `yaml:"chrome_path"`
	NVDURL       string `yaml:"nvd_url"`
	NVDAPIKey    string `yaml:"nvd_api_key"`
	VulnCacheTTL int    `yaml:"vuln_cache_ttl"`
	// IPInfoURL es la base de la API de geolocalización (<url>/<ip>/json)
	IPInfoURL   string `yaml:"ipinfo_url"`
	IPInfoToken string `yaml:"ipinfo_token"`
}

type Brute struct {
	AttemptTimeoutS int `yaml:"attempt_timeout"`
	// RatePerSecond espacia los intentos (0 = sin límite)
	RatePerSecond float64 `yaml:"rate"`
}

type Report struct {
	Dir string `yaml:"dir"`
	// DownloadDir recibe los ficheros de ftp_download_file
	DownloadDir string `yaml:"download_dir"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Metrics struct {
	// Addr expone /metrics de Prometheus cuando no está vacío (ej: ":9464")
	Addr string `yaml:"addr"`
}

// DefaultConfig retorna una configuración por defecto.
func DefaultConfig() Config {
	return Config{
		Server: Server{
			Name:            "reconmcp",
			Transport:       "stdio",
			ThrottleCalls:   5,
			ThrottleWindowS: 60,
		},
		Recon: Recon{
			SessionTimeoutS: 900,
			QuickTimeoutS:   60,
			ScanTimeoutS:    300,
			WebTimeoutS:     120,
			DNSTimeoutS:     120,
			PortProfile:     domain.DefaultPortProfile,
			Workers:         20,
			DNSWorkers:      10,
			WebWordlist:     "common",
		},
		Adapters: Adapters{
			PortScanner:  "nmap",
			NmapPath:     "nmap",
			HydraPath:    "hydra",
			DNSServer:    "8.8.8.8:53",
			HTTPTimeoutS: 10,
			UserAgent:    "Mozilla/5.0 (compatible; reconmcp/1.0)",
			Screenshots:  true,
			NVDURL:       "https://services.nvd.nist.gov/rest/json/cves/2.0",
			VulnCacheTTL: 3600,
			IPInfoURL:    "https://ipinfo.io",
		},
		Brute: Brute{
			AttemptTimeoutS: 5,
		},
		Report: Report{Dir: "reports", DownloadDir: "downloads"},
		Log:    Log{Level: "info"},
		UIMode: string(ui.UIModePretty),
	}
}

// Load aplica en orden: defaults, fichero YAML (--config o
// RECONMCP_CONFIG), variables de entorno, flags y normalización.
// Los flags tienen prioridad sobre todo lo demás.
func Load(args []string) (Config, error) {
	cfg := DefaultConfig()

	cfg.ConfigPath = getenv(EnvPrefix+"CONFIG", "")
	if p := findConfigFlag(args); p != "" {
		cfg.ConfigPath = p
	}
	if cfg.ConfigPath != "" {
		if err := loadFromFile(&cfg, cfg.ConfigPath); err != nil {
			return cfg, err
		}
	}

	loadFromEnv(&cfg)

	fs := newFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Args = fs.Args()

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// findConfigFlag extrae --config/-c antes del parseo completo, para que
// el YAML se cargue con menor prioridad que el resto de flags.
func findConfigFlag(args []string) string {
	fs := pflag.NewFlagSet("config-probe", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	path := fs.StringP("config", "c", "", "")
	_ = fs.Parse(args)
	return *path
}

// loadFromFile carga un fichero YAML sobre cfg. Claves desconocidas son error.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadFromEnv carga configuración desde variables de entorno.
func loadFromEnv(cfg *Config) {
	envString := func(key string, dst *string) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = parseInt(v, *dst)
		}
	}
	envBool := func(key string, dst *bool) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = parseBool(v)
		}
	}

	envString("TARGET", &cfg.Target)
	envString("UI", &cfg.UIMode)

	// Server
	envString("SERVER_NAME", &cfg.Server.Name)
	envInt("THROTTLE_CALLS", &cfg.Server.ThrottleCalls)
	envInt("THROTTLE_WINDOW", &cfg.Server.ThrottleWindowS)

	// Recon
	envInt("SESSION_TIMEOUT", &cfg.Recon.SessionTimeoutS)
	envInt("QUICK_TIMEOUT", &cfg.Recon.QuickTimeoutS)
	envInt("SCAN_TIMEOUT", &cfg.Recon.ScanTimeoutS)
	envInt("WEB_TIMEOUT", &cfg.Recon.WebTimeoutS)
	envInt("DNS_TIMEOUT", &cfg.Recon.DNSTimeoutS)
	envString("PORT_PROFILE", &cfg.Recon.PortProfile)
	envBool("DEEP", &cfg.Recon.Deep)
	envInt("WORKERS", &cfg.Recon.Workers)
	envInt("DNS_WORKERS", &cfg.Recon.DNSWorkers)
	envString("WEB_WORDLIST", &cfg.Recon.WebWordlist)

	// Adapters
	envString("PORTSCAN", &cfg.Adapters.PortScanner)
	envString("NMAP_PATH", &cfg.Adapters.NmapPath)
	envString("HYDRA_PATH", &cfg.Adapters.HydraPath)
	envString("DNS_SERVER", &cfg.Adapters.DNSServer)
	envInt("HTTP_TIMEOUT", &cfg.Adapters.HTTPTimeoutS)
	envString("USER_AGENT", &cfg.Adapters.UserAgent)
	envBool("SCREENSHOTS", &cfg.Adapters.Screenshots)
	envString("CHROME_PATH", &cfg.Adapters.ChromePath)
	envString("NVD_URL", &cfg.Adapters.NVDURL)
	envString("NVD_API_KEY", &cfg.Adapters.NVDAPIKey)
	envInt("VULN_CACHE_TTL", &cfg.Adapters.VulnCacheTTL)
	envString("IPINFO_URL", &cfg.Adapters.IPInfoURL)
	envString("IPINFO_TOKEN", &cfg.Adapters.IPInfoToken)

	// Brute
	envInt("BRUTE_TIMEOUT", &cfg.Brute.AttemptTimeoutS)
	if v := getenv(EnvPrefix+"BRUTE_RATE", ""); v != "" {
		cfg.Brute.RatePerSecond = parseFloat(v, cfg.Brute.RatePerSecond)
	}

	// Report, Log, Metrics
	envString("REPORT_DIR", &cfg.Report.Dir)
	envString("DOWNLOAD_DIR", &cfg.Report.DownloadDir)
	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FILE", &cfg.Log.File)
	envString("METRICS_ADDR", &cfg.Metrics.Addr)
}

// newFlagSet registra los flags sobre cfg; los valores actuales son los
// defaults, de modo que un flag ausente no pisa YAML ni entorno.
func newFlagSet(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("reconmcp", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.Usage = func() { fmt.Fprint(fs.Output(), helpText) }

	fs.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "YAML configuration file")
	fs.StringVarP(&cfg.Target, "target", "t", cfg.Target, "Target for scan mode (IP, CIDR, domain or URL)")
	fs.StringVarP(&cfg.Recon.PortProfile, "profile", "p", cfg.Recon.PortProfile, "Port profile")
	fs.BoolVar(&cfg.Recon.Deep, "deep", cfg.Recon.Deep, "Directory scan and CVE lookup")
	fs.IntVarP(&cfg.Recon.SessionTimeoutS, "timeout", "T", cfg.Recon.SessionTimeoutS, "Session timeout in seconds")
	fs.IntVar(&cfg.Recon.ScanTimeoutS, "scan-timeout", cfg.Recon.ScanTimeoutS, "Network scan timeout in seconds")
	fs.IntVarP(&cfg.Recon.Workers, "workers", "w", cfg.Recon.Workers, "Directory scan concurrency")

	fs.StringVar(&cfg.Adapters.PortScanner, "portscan", cfg.Adapters.PortScanner, "Port scanner variant (nmap|connect)")
	fs.StringVar(&cfg.Adapters.NmapPath, "nmap-path", cfg.Adapters.NmapPath, "nmap binary")
	fs.StringVar(&cfg.Adapters.HydraPath, "hydra-path", cfg.Adapters.HydraPath, "hydra binary")
	fs.StringVar(&cfg.Adapters.DNSServer, "dns-server", cfg.Adapters.DNSServer, "DNS resolver host:port")
	fs.BoolVar(&cfg.Adapters.Screenshots, "screenshots", cfg.Adapters.Screenshots, "Enable headless Chrome screenshots")

	fs.Float64Var(&cfg.Brute.RatePerSecond, "brute-rate", cfg.Brute.RatePerSecond, "Login attempts per second (0 = unlimited)")
	fs.IntVar(&cfg.Server.ThrottleCalls, "throttle", cfg.Server.ThrottleCalls, "Scan tool calls per throttle window (0 = unlimited)")

	fs.StringVarP(&cfg.Report.Dir, "report-dir", "o", cfg.Report.Dir, "Report output directory")
	fs.StringVar(&cfg.Report.DownloadDir, "download-dir", cfg.Report.DownloadDir, "Destination of FTP downloads")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Rotating log file (default stderr)")
	fs.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Prometheus listen address")
	fs.StringVar(&cfg.UIMode, "ui", cfg.UIMode, "Scan mode output (pretty|raw|quiet)")
	fs.BoolVarP(&cfg.PrintVersion, "version", "v", false, "Print version and exit")

	return fs
}

func normalize(c *Config) {
	c.Target = strings.TrimSpace(c.Target)
	c.Recon.PortProfile = strings.ToLower(strings.TrimSpace(c.Recon.PortProfile))
	c.Adapters.PortScanner = strings.ToLower(strings.TrimSpace(c.Adapters.PortScanner))
	c.UIMode = strings.ToLower(strings.TrimSpace(c.UIMode))

	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.ThrottleCalls < 0 {
		c.Server.ThrottleCalls = 0
	}
	if c.Server.ThrottleWindowS <= 0 {
		c.Server.ThrottleWindowS = 60
	}
	if c.Recon.SessionTimeoutS <= 0 {
		c.Recon.SessionTimeoutS = 900
	}
	if c.Recon.Workers < 1 {
		c.Recon.Workers = 1
	}
	if c.Recon.DNSWorkers < 1 {
		c.Recon.DNSWorkers = 1
	}
	if c.Recon.PortProfile == "" {
		c.Recon.PortProfile = domain.DefaultPortProfile
	}
	if c.Adapters.HTTPTimeoutS <= 0 {
		c.Adapters.HTTPTimeoutS = 10
	}
	if c.Brute.AttemptTimeoutS <= 0 {
		c.Brute.AttemptTimeoutS = 5
	}
	if c.Brute.RatePerSecond < 0 {
		c.Brute.RatePerSecond = 0
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Report.DownloadDir == "" {
		c.Report.DownloadDir = "downloads"
	}
	if c.UIMode == "" {
		c.UIMode = string(ui.UIModePretty)
	}
}

// Validate rechaza valores que no tienen un default razonable.
func (c Config) Validate() error {
	if _, ok := domain.LookupPortProfile(c.Recon.PortProfile); !ok {
		return fmt.Errorf("unknown port profile %q (valid: %s)", c.Recon.PortProfile, strings.Join(domain.PortProfileNames(), ", "))
	}
	switch c.Adapters.PortScanner {
	case "nmap", "connect":
	default:
		return fmt.Errorf("unknown port scanner %q (valid: nmap, connect)", c.Adapters.PortScanner)
	}
	if c.Server.Transport != "stdio" {
		return fmt.Errorf("unsupported transport %q", c.Server.Transport)
	}
	if _, ok := ui.ParseUIMode(c.UIMode); !ok {
		return fmt.Errorf("unknown ui mode %q (valid: pretty, raw, quiet)", c.UIMode)
	}
	return nil
}

// ToYAML serializa la configuración efectiva (útil para debugging).
// Las credenciales de NVD e ipinfo se ocultan.
func (c Config) ToYAML() (string, error) {
	if c.Adapters.NVDAPIKey != "" {
		c.Adapters.NVDAPIKey = "***"
	}
	if c.Adapters.IPInfoToken != "" {
		c.Adapters.IPInfoToken = "***"
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Duraciones derivadas.

func (c Config) SessionTimeout() time.Duration { return seconds(c.Recon.SessionTimeoutS) }
func (c Config) QuickTimeout() time.Duration   { return seconds(c.Recon.QuickTimeoutS) }
func (c Config) ScanTimeout() time.Duration    { return seconds(c.Recon.ScanTimeoutS) }
func (c Config) WebTimeout() time.Duration     { return seconds(c.Recon.WebTimeoutS) }
func (c Config) DNSTimeout() time.Duration     { return seconds(c.Recon.DNSTimeoutS) }
func (c Config) HTTPTimeout() time.Duration    { return seconds(c.Adapters.HTTPTimeoutS) }
func (c Config) AttemptTimeout() time.Duration { return seconds(c.Brute.AttemptTimeoutS) }
func (c Config) ThrottleWindow() time.Duration { return seconds(c.Server.ThrottleWindowS) }
func (c Config) VulnCacheTTL() time.Duration   { return seconds(c.Adapters.VulnCacheTTL) }

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}
