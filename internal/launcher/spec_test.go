package launcher

import (
	"strings"
	"testing"
)

func TestBuildCommandDirectExec(t *testing.T) {
	s := Spec{Command: "sleep 30"}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "sleep") {
		t.Fatalf("expected direct exec of sleep, got path %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != "30" {
		t.Fatalf("unexpected args %v", cmd.Args)
	}
}

func TestBuildCommandShellMetachars(t *testing.T) {
	s := Spec{Command: "echo hi | wc -l"}
	cmd := s.BuildCommand()
	if cmd.Path != "/bin/sh" {
		t.Fatalf("expected shell wrap, got path %q", cmd.Path)
	}
	if cmd.Args[1] != "-c" || cmd.Args[2] != "echo hi | wc -l" {
		t.Fatalf("unexpected args %v", cmd.Args)
	}
}

func TestBuildCommandExplicitShellNotDoubleWrapped(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`sh -c 'echo hi'`, "echo hi"},
		{`/bin/sh -c "exit 3"`, "exit 3"},
		{`sh -c echo`, "echo"},
	}
	for _, tc := range cases {
		s := Spec{Command: tc.in}
		cmd := s.BuildCommand()
		if cmd.Path != "/bin/sh" {
			t.Fatalf("%q: expected /bin/sh, got %q", tc.in, cmd.Path)
		}
		if cmd.Args[2] != tc.want {
			t.Fatalf("%q: expected inner command %q, got %q", tc.in, tc.want, cmd.Args[2])
		}
	}
}

func TestBuildCommandEmpty(t *testing.T) {
	s := Spec{Command: "   "}
	cmd := s.BuildCommand()
	if !strings.HasSuffix(cmd.Path, "true") {
		t.Fatalf("expected /bin/true for empty command, got %q", cmd.Path)
	}
}
