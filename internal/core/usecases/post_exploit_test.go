// internal/core/usecases/post_exploit_test.go
package usecases

import (
	"context"
	"strings"
	"testing"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/testutil"
)

var testEndpoint = ports.Endpoint{Host: "10.10.10.5", Port: 22, Username: "user", Password: "pass"}

func TestSSHExplorer_FindFlags(t *testing.T) {
	ssh := &mockSSH{outputs: map[string]ports.CommandResult{
		"find /home /root ( -name flag*.txt -o -name root.txt ) -type f": {
			Stdout:   "/home/user/flag1.txt\n/root/root.txt\n/home/user/flag1.txt\n",
			Stderr:   "find: '/root': Permission denied",
			ExitCode: 1,
		},
		"head -c 65536 -- /home/user/flag1.txt": {Stdout: "HTB{first}\n"},
	}}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	found, err := e.FindFlags(context.Background(), testEndpoint, []string{"/home", "/root"})

	testutil.AssertNoError(t, err, "find should succeed despite permission errors")
	testutil.AssertLen(t, found, 2, "deduplicated results")
	testutil.AssertEqual(t, found[0].Content, "HTB{first}", "flag content")
	testutil.AssertContains(t, found[1].Note, "No such file", "unreadable file noted")

	text := FlagsText(found)
	testutil.AssertContains(t, text, "Found: /home/user/flag1.txt", "path")
	testutil.AssertContains(t, text, "Content: HTB{first}", "content")
}

func TestSSHExplorer_FindFlagsDefaultPaths(t *testing.T) {
	ssh := &mockSSH{}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	found, err := e.FindFlags(context.Background(), testEndpoint, nil)

	testutil.AssertNoError(t, err, "find should succeed")
	testutil.AssertLen(t, found, 0, "nothing found")
	argv := ssh.calls[0]
	testutil.AssertDeepEqual(t, argv[1:1+len(DefaultFlagSearchPaths)], DefaultFlagSearchPaths, "default paths")
	testutil.AssertContains(t, FlagsText(found), "No flag", "empty text")
}

func TestSSHExplorer_RejectsUnsafePaths(t *testing.T) {
	ssh := &mockSSH{}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	for _, p := range []string{"/tmp; rm -rf /", "$(id)", "/home/`whoami`", "a b"} {
		_, err := e.FindFlags(context.Background(), testEndpoint, []string{p})
		testutil.AssertTrue(t, perrors.Is(err, perrors.ErrInvalidInput), p)

		_, err = e.ReadFile(context.Background(), testEndpoint, p, 10)
		testutil.AssertTrue(t, perrors.Is(err, perrors.ErrInvalidInput), p)
	}
	testutil.AssertLen(t, ssh.calls, 0, "no command sent")
}

func TestSSHExplorer_ReadFileCapsLimit(t *testing.T) {
	ssh := &mockSSH{outputs: map[string]ports.CommandResult{
		"head -c 65536 -- /etc/hostname": {Stdout: "box\n"},
	}}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	out, err := e.ReadFile(context.Background(), testEndpoint, "/etc/hostname", 10_000_000)

	testutil.AssertNoError(t, err, "read should succeed")
	testutil.AssertEqual(t, out, "box\n", "content")

	_, err = e.ReadFile(context.Background(), testEndpoint, "/missing", 0)
	testutil.AssertTrue(t, perrors.IsNotFound(err), "missing file")
}

func TestSSHExplorer_ExploreCurrent(t *testing.T) {
	ssh := &mockSSH{outputs: map[string]ports.CommandResult{
		"pwd":    {Stdout: "/home/user\n"},
		"ls -la": {Stdout: "total 8\n-rw-r--r-- 1 user user 5 notes.txt\n"},
		"find . -maxdepth 1 -type f ( -name *.txt -o -name *.log -o -name *.conf -o -name *.cfg -o -name *.ini -o -name *.json -o -name *.xml -o -name *.yaml -o -name *.yml )": {
			Stdout: "./notes.txt\n./big.log\n",
		},
		"stat -c %s -- ./notes.txt":    {Stdout: "5\n"},
		"stat -c %s -- ./big.log":      {Stdout: "5000000\n"},
		"head -c 65536 -- ./notes.txt": {Stdout: "hello\n"},
	}}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	text, err := e.ExploreCurrent(context.Background(), testEndpoint)

	testutil.AssertNoError(t, err, "explore should succeed")
	testutil.AssertContains(t, text, "Current directory: /home/user", "pwd")
	testutil.AssertContains(t, text, "[notes.txt] 5 bytes\nhello", "small file read")
	testutil.AssertContains(t, text, "[big.log] (skipped, 5000000 bytes)", "large file skipped")
	for _, c := range ssh.calls {
		if strings.Join(c, " ") == "head -c 65536 -- ./big.log" {
			t.Fatal("large file must not be read")
		}
	}
}

func TestSSHExplorer_ExploreHiddenAndSystem(t *testing.T) {
	ssh := &mockSSH{outputs: map[string]ports.CommandResult{
		"find /home/user -name .* -type f": {Stdout: "/home/user/.bash_history\n"},
		"ls -la /home":                     {Stdout: "drwxr-xr-x user\n"},
		"ls -la /root":                     {Stderr: "ls: cannot open directory '/root': Permission denied", ExitCode: 2},
	}}
	e := NewSSHExplorer(ssh, logx.NewSilent())

	hidden, err := e.ExploreHidden(context.Background(), testEndpoint, "/home/user")
	testutil.AssertNoError(t, err, "hidden should succeed")
	testutil.AssertContains(t, hidden, ".bash_history", "hidden file")

	sys, err := e.ExploreSystem(context.Background(), testEndpoint)
	testutil.AssertNoError(t, err, "system should succeed")
	testutil.AssertContains(t, sys, "=== /home ===\ndrwxr-xr-x user", "listing")
	testutil.AssertContains(t, sys, "Permission denied", "stderr shown when stdout empty")
}

func TestSSHExplorer_Exec(t *testing.T) {
	_, err := NewSSHExplorer(nil, logx.NewSilent()).Exec(context.Background(), testEndpoint, []string{"id"})
	testutil.AssertErrorIs(t, err, domain.ErrAdapterMissing, "no client")

	_, err = NewSSHExplorer(&mockSSH{}, logx.NewSilent()).Exec(context.Background(), testEndpoint, nil)
	testutil.AssertTrue(t, perrors.IsInvalidInput(err), "empty argv")
}
