package cli_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"taskman/internal/cli"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/exitcode"
	"taskman/internal/service"
	"taskman/internal/testutil"
)

// testFactories returns factories that hand out the given FakeService.
func testFactories(svc *testutil.FakeService) (cli.ServiceFactory, cli.AuthFactory) {
	services := func(ctx context.Context, cfg *config.Config, token string, log *slog.Logger) (service.Service, error) {
		return svc, nil
	}
	auth := func(ctx context.Context, cfg *config.Config, prompt io.Writer, log *slog.Logger) (service.Authenticator, error) {
		return svc, nil
	}
	return services, auth
}

func newDispatcher(svc *testutil.FakeService) *cli.Dispatcher {
	services, auth := testFactories(svc)
	return cli.NewDispatcher(commands.DefaultRegistry, services, auth)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvAPIURL, config.EnvBackend, config.EnvEmail, config.EnvPassword} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	clearEnv(t)
	stdout, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "help", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	clearEnv(t)
	stdout, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskman 0.1.0\n" {
		t.Errorf("expected 'taskman 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "list", "--api")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -api\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_UnknownBackend(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "list", "--config", t.TempDir(), "--backend", "carrier-pigeon")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown backend: carrier-pigeon\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	clearEnv(t)
	svc := testutil.NewFakeService()

	stdout, stderr, code := run(t, newDispatcher(svc), "list", "--config", t.TempDir())
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: not logged in (run: taskman login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if stdout != "" || svc.TotalCalls() != 0 {
		t.Errorf("expected no output and no service calls, got %q and %d calls", stdout, svc.TotalCalls())
	}
}

func TestDispatcher_SessionSharedAcrossRuns(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	svc := testutil.NewFakeService()
	svc.AddUser("user@example.com", "secret")
	svc.AddTask("1", "Buy milk")
	d := newDispatcher(svc)

	_, stderr, code := run(t, d, "login", "--config", dir, "--email", "user@example.com", "--password", "secret")
	if code != exitcode.Success {
		t.Fatalf("login failed: %d %s", code, stderr)
	}

	stdout, stderr, code := run(t, d, "list", "--config", dir)
	if code != exitcode.Success {
		t.Fatalf("list failed: %d %s", code, stderr)
	}
	if stdout != "   1  [ ] Buy milk\n" {
		t.Errorf("unexpected list output %q", stdout)
	}

	if _, _, code = run(t, d, "logout", "--config", dir); code != exitcode.Success {
		t.Fatalf("logout failed: %d", code)
	}
	_, stderr, code = run(t, d, "list", "--config", dir)
	if code != exitcode.AuthError {
		t.Errorf("expected auth error after logout, got %d %q", code, stderr)
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	svc := testutil.NewFakeService()
	svc.AddUser("user@example.com", "secret")
	d := newDispatcher(svc)

	// With no --config, the default directory under XDG_CONFIG_HOME is used.
	if _, stderr, code := run(t, d, "login", "--email", "user@example.com", "--password", "secret"); code != exitcode.Success {
		t.Fatalf("login failed: %d %s", code, stderr)
	}
	if _, err := os.Stat(dir + "/taskman/session.json"); err != nil {
		t.Fatalf("session not stored under XDG_CONFIG_HOME: %v", err)
	}

	stdout, stderr, code := run(t, d)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d %s", code, stderr)
	}
	if stdout != "no tasks\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "version", "--config", t.TempDir(), "--debug")
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d", code)
	}
	if !strings.Contains(stderr, "level=DEBUG") || !strings.Contains(stderr, "command=version") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
}

// loggedInDispatcher logs user@example.com in under dir.
func loggedInDispatcher(t *testing.T, svc *testutil.FakeService, dir string) *cli.Dispatcher {
	t.Helper()
	svc.AddUser("user@example.com", "secret")
	d := newDispatcher(svc)
	if _, stderr, code := run(t, d, "login", "--config", dir, "--email", "user@example.com", "--password", "secret"); code != exitcode.Success {
		t.Fatalf("login failed: %d %s", code, stderr)
	}
	return d
}

func TestDispatcher_FlagsAfterPositionals(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	svc := testutil.NewFakeService()
	d := loggedInDispatcher(t, svc, dir)

	_, stderr, code := run(t, d, "add", "Buy", "milk", "--due", "2024-05-01", "--config", dir, "--category", "home")
	if code != exitcode.Success {
		t.Fatalf("add failed: %d %s", code, stderr)
	}
	tasks := svc.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %+v", tasks)
	}
	if tasks[0].Title != "Buy milk" || tasks[0].DueDate != "2024-05-01" || tasks[0].Category != "home" {
		t.Errorf("flags were not applied: %+v", tasks[0])
	}
}

func TestDispatcher_DoubleDashEndsFlags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	svc := testutil.NewFakeService()
	d := loggedInDispatcher(t, svc, dir)

	_, stderr, code := run(t, d, "add", "--config", dir, "--", "--not-a-flag", "title")
	if code != exitcode.Success {
		t.Fatalf("add failed: %d %s", code, stderr)
	}
	tasks := svc.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "--not-a-flag title" {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func TestDispatcher_UnknownFlagAfterPositional(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, newDispatcher(testutil.NewFakeService()), "add", "Buy", "--bogus", "--config", t.TempDir())
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown flag: -bogus\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_CorruptSessionFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := dir + "/session.json"
	if err := os.WriteFile(path, []byte("{garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	svc.AddUser("user@example.com", "secret")
	d := newDispatcher(svc)

	if stdout, stderr, code := run(t, d, "version", "--config", dir); code != exitcode.Success || stdout != "taskman 0.1.0\n" {
		t.Errorf("version: got %d %q %q", code, stdout, stderr)
	}
	if _, stderr, code := run(t, d, "list", "--config", dir); code != exitcode.AuthError || stderr != "error: not logged in (run: taskman login)\n" {
		t.Errorf("list: got %d %q", code, stderr)
	}

	stdout, stderr, code := run(t, d, "logout", "--config", dir)
	if code != exitcode.Success || stdout != "not logged in\n" {
		t.Errorf("logout: got %d %q %q", code, stdout, stderr)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected logout to remove the unreadable session file, stat err = %v", err)
	}

	if err := os.WriteFile(path, []byte("{garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, stderr, code := run(t, d, "login", "--config", dir, "--email", "user@example.com", "--password", "secret"); code != exitcode.Success {
		t.Fatalf("login over unreadable session failed: %d %s", code, stderr)
	}
	if _, stderr, code := run(t, d, "list", "--config", dir); code != exitcode.Success {
		t.Errorf("list after login failed: %d %s", code, stderr)
	}
}
