package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var update = flag.Bool("update", false, "update script files")

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"githooks": func() int {
			main()
			return 0
		},
	}))
}

func TestScript(t *testing.T) {
	flag.Parse()
	testscript.Run(t, testscript.Params{
		Dir:           "./testdata/",
		UpdateScripts: *update,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"mkfile": cmdMkfile,
		},
		Setup: func(e *testscript.Env) error {
			// Hooks and fixture repositories need a stable identity
			// and branch name regardless of the host's git setup.
			home := filepath.Join(e.WorkDir, "home")
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			gitconfig := "[user]\n" +
				"\tname = Test User\n" +
				"\temail = test@example.com\n" +
				"[init]\n" +
				"\tdefaultBranch = master\n"
			if err := os.WriteFile(filepath.Join(home, ".gitconfig"), []byte(gitconfig), 0o600); err != nil {
				return err
			}
			e.Setenv("HOME", home)
			e.Setenv("GIT_CONFIG_NOSYSTEM", "1")
			return nil
		},
	})
}

func cmdMkfile(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! mkfile")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: mkfile path content")
	}
	filename := ts.MkAbs(args[0])
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		ts.Fatalf("%s: %v", filename, err)
	}
	if err := os.WriteFile(filename, []byte(args[1]+"\n"), 0o644); err != nil {
		ts.Fatalf("%s: %v", filename, err)
	}
}
