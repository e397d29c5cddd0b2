package imagebuild

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backuprestore/internal/executil"
)

// fakeRunner records invocations and can be told to fail on a matching
// subcommand.
type fakeRunner struct {
	calls  []string
	failOn string
}

var _ executil.Runner = (*fakeRunner)(nil)

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if f.failOn != "" && len(args) > 0 && args[0] == f.failOn {
		return errors.New("exit status 1")
	}
	return nil
}

func newDriver(runner *fakeRunner) *Driver {
	return &Driver{
		Config: Config{
			ImageName:  "myapp",
			ImageTag:   "v1",
			Registry:   "registry.example.com",
			Dockerfile: "Dockerfile",
			UserNo:     "1000",
		},
		Runner:       runner,
		SkipFSChecks: true,
	}
}

func TestEmptyRegistryIssuesNoCommands(t *testing.T) {
	runner := &fakeRunner{}
	d := newDriver(runner)
	d.Config.Registry = ""

	ops := map[string]func(context.Context) error{
		"build":   d.Build,
		"tag":     d.Tag,
		"push":    d.Push,
		"run":     d.Run,
		"clean":   d.Clean,
		"release": d.Release,
	}
	for name, op := range ops {
		err := op(context.Background())
		if err == nil {
			t.Errorf("%s: expected configuration error", name)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected *ConfigError, got %v", name, err)
		}
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected zero docker invocations, got %v", runner.calls)
	}
}

func TestTagTargetsFullRef(t *testing.T) {
	runner := &fakeRunner{}
	d := newDriver(runner)

	if err := d.Tag(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "docker tag myapp:v1 registry.example.com/myapp:v1"
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("calls = %v; want [%s]", runner.calls, want)
	}
}

func TestBuildPassesUserNoBuildArg(t *testing.T) {
	runner := &fakeRunner{}
	d := newDriver(runner)
	d.Config.UserNo = "1234"

	if err := d.Build(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one call, got %v", runner.calls)
	}
	if !strings.Contains(runner.calls[0], "--build-arg user_no=1234") {
		t.Errorf("build call missing user_no arg: %s", runner.calls[0])
	}
	if !strings.Contains(runner.calls[0], "-t myapp:v1") {
		t.Errorf("build call missing local tag: %s", runner.calls[0])
	}
}

func TestReleaseSequence(t *testing.T) {
	runner := &fakeRunner{}
	d := newDriver(runner)

	if err := d.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 calls, got %v", runner.calls)
	}
	for i, prefix := range []string{"docker build", "docker tag", "docker push"} {
		if !strings.HasPrefix(runner.calls[i], prefix) {
			t.Errorf("call %d = %q; want prefix %q", i, runner.calls[i], prefix)
		}
	}
}

func TestReleaseAbortsOnBuildFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "build"}
	d := newDriver(runner)

	if err := d.Release(context.Background()); err == nil {
		t.Fatal("expected release to fail")
	}
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "docker tag") || strings.HasPrefix(call, "docker push") {
			t.Errorf("tag/push must not run after build failure, got %v", runner.calls)
		}
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	runner := &fakeRunner{failOn: "rmi"} // images absent
	d := newDriver(runner)

	if err := d.Clean(context.Background()); err != nil {
		t.Fatalf("clean must suppress removal failures, got %v", err)
	}
	if len(runner.calls) != 2 {
		t.Errorf("expected rmi for local and full refs, got %v", runner.calls)
	}
}

func TestBuildRejectsUppercaseRef(t *testing.T) {
	runner := &fakeRunner{}
	d := newDriver(runner)
	d.Config.ImageName = "MyApp"

	if err := d.Build(context.Background()); err == nil {
		t.Fatal("expected invalid ref error")
	}
	if len(runner.calls) != 0 {
		t.Errorf("no docker call expected for invalid ref, got %v", runner.calls)
	}
}
