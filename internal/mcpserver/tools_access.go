package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	"reconmcp/internal/platform/validator"
)

// maxPasswords acota la lista de candidatos de una llamada.
const maxPasswords = 1000

func (s *Server) registerAccessTools() {
	credentialProps := func(extra map[string]any) map[string]any {
		props := map[string]any{
			"host":     stringProp("Host name or IP"),
			"port":     intProp("Service port", 1, 65535),
			"username": stringProp("Account name"),
			"password": stringProp("Account password"),
		}
		for k, v := range extra {
			props[k] = v
		}
		return props
	}

	s.addTool(
		&mcp.Tool{
			Name:  "ftp_anonymous_check",
			Title: "FTP Anonymous Login",
			Description: `Try anonymous FTP login. Reports the banner, server product and version, a root listing,
security issues (anonymous access, known backdoored versions) and recommendations.`,
			InputSchema: objectSchema(map[string]any{
				"host": stringProp("Host name or IP"),
				"port": intProp("FTP port (default 21)", 1, 65535),
			}, "host"),
			Annotations: readOnly("FTP Anonymous Login", true),
		},
		false,
		s.handleFTPAnonymous,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "ftp_read_file",
			Title:       "FTP Read File",
			Description: `Read a remote file over FTP (at most 64 KiB). Leave username empty for anonymous login.`,
			InputSchema: objectSchema(credentialProps(map[string]any{
				"path": stringProp("Remote file path"),
			}), "host", "path"),
			Annotations: readOnly("FTP Read File", true),
		},
		false,
		s.handleFTPRead,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "ftp_download_file",
			Title:       "FTP Download File",
			Description: `Download a remote file over FTP into the server's download directory. Returns the local path.`,
			InputSchema: objectSchema(credentialProps(map[string]any{
				"path": stringProp("Remote file path"),
			}), "host", "path"),
			Annotations: &mcp.ToolAnnotations{
				Title:           "FTP Download File",
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(true),
			},
		},
		false,
		s.handleFTPDownload,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "ssh_exec",
			Title: "SSH Command",
			Description: `Run one command on a host over SSH. The command is an argument vector; every element is
quoted before it reaches the remote shell, so pipes and redirections are passed literally.`,
			InputSchema: objectSchema(credentialProps(map[string]any{
				"command": stringArrayProp(`Argument vector, e.g. ["cat", "/etc/passwd"]`),
			}), "host", "username", "password", "command"),
			Annotations: &mcp.ToolAnnotations{
				Title:           "SSH Command",
				DestructiveHint: boolPtr(true),
				OpenWorldHint:   boolPtr(true),
			},
		},
		false,
		s.handleSSHExec,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "ssh_find_flags",
			Title: "SSH Flag Search",
			Description: `Search for flag*.txt and root.txt files over SSH and read their contents.
Default search paths: . /home /var /tmp /opt /usr /etc /root /`,
			InputSchema: objectSchema(credentialProps(map[string]any{
				"paths": stringArrayProp("Directories to search"),
			}), "host", "username", "password"),
			Annotations: readOnly("SSH Flag Search", true),
		},
		false,
		s.handleSSHFindFlags,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "ssh_explore",
			Title: "SSH Explore",
			Description: `Explore a host over SSH. mode=current lists the working directory and reads small text
files; mode=hidden lists dot files of "dir"; mode=system lists the usual system directories.`,
			InputSchema: objectSchema(credentialProps(map[string]any{
				"mode": enumProp("What to explore (default current)", "current", "hidden", "system"),
				"dir":  stringProp("Directory for mode=hidden (default current directory)"),
			}), "host", "username", "password"),
			Annotations: readOnly("SSH Explore", true),
		},
		false,
		s.handleSSHExplore,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "credential_brute_force",
			Title: "Credential Brute Force",
			Description: `Try a list of passwords for one account, sequentially, stopping at the first success.
cracker=auto picks ftp for port 21, ssh for port 22 and hydra otherwise.`,
			InputSchema: objectSchema(map[string]any{
				"target":    stringProp("Host name or IP"),
				"port":      intProp("Service port", 1, 65535),
				"username":  stringProp("Account name"),
				"passwords": stringArrayProp("Password candidates, tried in order"),
				"cracker":   enumProp("Cracker variant (default auto)", "auto", "ssh", "ftp", "hydra"),
			}, "target", "port", "username", "passwords"),
			Annotations: &mcp.ToolAnnotations{
				Title:          "Credential Brute Force",
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(true),
			},
		},
		true,
		s.handleBruteForce,
	)
}

type accessArgs struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Path     string   `json:"path"`
	Command  []string `json:"command"`
	Paths    []string `json:"paths"`
	Mode     string   `json:"mode"`
	Dir      string   `json:"dir"`
}

// endpoint valida host y puerto de una tool post-explotación. Estas tools
// operan con credenciales sobre hosts ya comprometidos y no aplican la
// denylist.
func endpoint(args accessArgs, defaultPort int) (ports.Endpoint, *mcp.CallToolResult) {
	if r := nonEmpty("host", args.Host); r != nil {
		return ports.Endpoint{}, r
	}
	t, err := domain.Classify(args.Host)
	if err != nil {
		return ports.Endpoint{}, errorResult("invalid host: " + err.Error())
	}
	if t.Kind != domain.TargetKindIP && t.Kind != domain.TargetKindDomain {
		return ports.Endpoint{}, errorResult(fmt.Sprintf("%q is not a single host", args.Host))
	}
	port := args.Port
	if port == 0 {
		port = defaultPort
	}
	if port < 1 || port > 65535 {
		return ports.Endpoint{}, errorResult(fmt.Sprintf("invalid port %d", args.Port))
	}
	if args.Username != "" && !validator.IsUsername(args.Username) {
		return ports.Endpoint{}, errorResult(fmt.Sprintf("invalid username %q", args.Username))
	}
	return ports.Endpoint{Host: t.Value, Port: port, Username: args.Username, Password: args.Password}, nil
}

func (s *Server) handleFTPAnonymous(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if r := nonEmpty("host", args.Host); r != nil {
		return r, nil
	}
	t, bad := scanTarget(args.Host)
	if bad != nil {
		return bad, nil
	}
	ep, bad := endpoint(accessArgs{Host: t.Value, Port: args.Port}, 21)
	if bad != nil {
		return bad, nil
	}
	if s.deps.FTP == nil {
		return failure("ftp_anonymous_check", domain.ErrAdapterMissing), nil
	}

	report, err := s.deps.FTP.CheckAnonymous(ctx, ep.Host, ep.Port)
	if err != nil {
		return failure("ftp_anonymous_check", err), nil
	}
	return textResult(ftpAnonText(report)), nil
}

func ftpAnonText(r ports.FTPAnonReport) string {
	var sb strings.Builder
	sb.WriteString("=== FTP ANONYMOUS CHECK ===\n")
	fmt.Fprintf(&sb, "Target: %s:%d\n", r.Host, r.Port)
	if r.Banner != "" {
		fmt.Fprintf(&sb, "Banner: %s\n", r.Banner)
	}
	if r.Server != "" {
		fmt.Fprintf(&sb, "Server: %s %s\n", r.Server, r.Version)
	}
	if r.AnonymousLogin {
		sb.WriteString("Anonymous login: ALLOWED\n")
	} else {
		sb.WriteString("Anonymous login: denied\n")
	}
	if len(r.Listing) > 0 {
		sb.WriteString("\nRoot listing:\n")
		for _, e := range r.Listing {
			sb.WriteString("  " + e + "\n")
		}
	}
	if len(r.Issues) > 0 {
		sb.WriteString("\nSecurity issues:\n")
		for _, i := range r.Issues {
			sb.WriteString("  - " + i + "\n")
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			sb.WriteString("  - " + rec + "\n")
		}
	}
	return sb.String()
}

func (s *Server) handleFTPRead(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	ep, bad := endpoint(args, 21)
	if bad != nil {
		return bad, nil
	}
	if r := nonEmpty("path", args.Path); r != nil {
		return r, nil
	}
	if s.deps.FTP == nil {
		return failure("ftp_read_file", domain.ErrAdapterMissing), nil
	}

	content, err := s.deps.FTP.ReadFile(ctx, ep, args.Path, usecases.DefaultReadLimit)
	if err != nil {
		return failure("ftp_read_file", err), nil
	}
	return textResult(fmt.Sprintf("=== FTP FILE: %s ===\n%s", args.Path, content)), nil
}

func (s *Server) handleFTPDownload(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	ep, bad := endpoint(args, 21)
	if bad != nil {
		return bad, nil
	}
	if r := nonEmpty("path", args.Path); r != nil {
		return r, nil
	}
	if s.deps.FTP == nil {
		return failure("ftp_download_file", domain.ErrAdapterMissing), nil
	}

	local, err := s.deps.FTP.Download(ctx, ep, args.Path, s.cfg.DownloadDir)
	if err != nil {
		return failure("ftp_download_file", err), nil
	}
	return textResult(fmt.Sprintf("Downloaded %s to %s\n", args.Path, local)), nil
}

// sshEndpoint exige credenciales completas.
func (s *Server) sshEndpoint(req *mcp.CallToolRequest, args *accessArgs) (ports.Endpoint, *mcp.CallToolResult) {
	if err := parseArgs(req, args); err != nil {
		return ports.Endpoint{}, errorResult(err.Error())
	}
	if r := nonEmpty("username", args.Username, "password", args.Password); r != nil {
		return ports.Endpoint{}, r
	}
	ep, bad := endpoint(*args, 22)
	if bad != nil {
		return ports.Endpoint{}, bad
	}
	if s.deps.SSH == nil {
		return ports.Endpoint{}, failure("ssh", domain.ErrAdapterMissing)
	}
	return ep, nil
}

func (s *Server) handleSSHExec(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	ep, bad := s.sshEndpoint(req, &args)
	if bad != nil {
		return bad, nil
	}
	res, err := s.deps.SSH.Exec(ctx, ep, args.Command)
	if err != nil {
		return failure("ssh_exec", err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", res.Command)
	sb.WriteString(res.Stdout)
	if res.Stderr != "" {
		sb.WriteString("\n[stderr]\n" + res.Stderr)
	}
	fmt.Fprintf(&sb, "\n[exit code %d]\n", res.ExitCode)
	return textResult(sb.String()), nil
}

func (s *Server) handleSSHFindFlags(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	ep, bad := s.sshEndpoint(req, &args)
	if bad != nil {
		return bad, nil
	}
	found, err := s.deps.SSH.FindFlags(ctx, ep, args.Paths)
	if err != nil {
		return failure("ssh_find_flags", err), nil
	}
	return textResult(usecases.FlagsText(found)), nil
}

func (s *Server) handleSSHExplore(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args accessArgs
	ep, bad := s.sshEndpoint(req, &args)
	if bad != nil {
		return bad, nil
	}

	var (
		text string
		err  error
	)
	switch args.Mode {
	case "", "current":
		text, err = s.deps.SSH.ExploreCurrent(ctx, ep)
	case "hidden":
		text, err = s.deps.SSH.ExploreHidden(ctx, ep, args.Dir)
	case "system":
		text, err = s.deps.SSH.ExploreSystem(ctx, ep)
	default:
		return errorResult(fmt.Sprintf("unknown mode %q (valid: current, hidden, system)", args.Mode)), nil
	}
	if err != nil {
		return failure("ssh_explore", err), nil
	}
	return textResult(text), nil
}

type bruteArgs struct {
	Target    string   `json:"target"`
	Port      int      `json:"port"`
	Username  string   `json:"username"`
	Passwords []string `json:"passwords"`
	Cracker   string   `json:"cracker"`
}

// crackerFor resuelve "auto" según el puerto.
func crackerFor(name string, port int) string {
	if name != "" && name != "auto" {
		return name
	}
	switch port {
	case 21:
		return "ftp"
	case 22:
		return "ssh"
	default:
		return "hydra"
	}
}

func (s *Server) handleBruteForce(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args bruteArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if r := nonEmpty("target", args.Target, "username", args.Username); r != nil {
		return r, nil
	}
	if len(args.Passwords) > maxPasswords {
		return errorResult(fmt.Sprintf("too many passwords: %d (max %d)", len(args.Passwords), maxPasswords)), nil
	}
	target, bad := scanTarget(args.Target)
	if bad != nil {
		return bad, nil
	}
	if target.Kind != domain.TargetKindIP && target.Kind != domain.TargetKindDomain {
		return errorResult(fmt.Sprintf("%q is not a single host", args.Target)), nil
	}

	name := crackerFor(args.Cracker, args.Port)
	bf, ok := s.deps.BruteForcers[name]
	if !ok {
		available := make([]string, 0, len(s.deps.BruteForcers))
		for n := range s.deps.BruteForcers {
			available = append(available, n)
		}
		sort.Strings(available)
		return errorResult(fmt.Sprintf("cracker %q is not available (configured: %s)", name, strings.Join(available, ", "))), nil
	}

	res, err := bf.Attempt(ctx, target, args.Port, args.Username, args.Passwords)
	if err != nil {
		return failure("credential_brute_force", err), nil
	}
	return textResult(res.Text()), nil
}
