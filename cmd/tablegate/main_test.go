package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/checksum"
	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/internal/defload"
	"github.com/hlop3z/tablegate/internal/kinds"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

const usersYAML = `tables:
  - id: 1
    name: users
    fields:
      - {id: 1, name: email, kind: email, required: true, unique: true}
      - {id: 2, name: age, kind: integer}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestChecksumCommand(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "users.yaml")
	write(t, path, usersYAML)

	out, err := run(t, "checksum", "-f", path, "--tables")
	if err != nil {
		t.Fatalf("checksum error = %v", err)
	}

	set, err := defload.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := checksum.Compute(set.Tables)
	if first := strings.SplitN(out, "\n", 2)[0]; first != want {
		t.Errorf("first line = %q, want %q", first, want)
	}
	if !strings.Contains(out, "users") {
		t.Errorf("per-table hashes missing:\n%s", out)
	}
}

func TestChecksumCommandPointsAtFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "users.yaml")
	write(t, path, strings.Replace(usersYAML, "kind: integer", "kind: integr", 1))

	_, err := run(t, "checksum", "-f", path)
	if !alerr.Is(err, alerr.ErrUnknownKind) {
		t.Fatalf("checksum error = %v, want unknown kind", err)
	}
	ctx := err.(*alerr.Error).GetContext()
	if ctx["file"] != path || ctx["line"] != 6 {
		t.Errorf("location = %v:%v, want %s:6", ctx["file"], ctx["line"], path)
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "users.yaml")
	write(t, path, usersYAML)

	_, err := run(t, "migrate", "-f", path)
	if !alerr.Is(err, alerr.ErrConfigInvalid) {
		t.Errorf("migrate error = %v, want missing database URL", err)
	}
}

func TestKindsCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "kinds")
	if err != nil {
		t.Fatalf("kinds error = %v", err)
	}
	for _, want := range []string{"KIND", "linked_record", "NUMERIC(18, 2)", "formula"} {
		if !strings.Contains(out, want) {
			t.Errorf("kinds output missing %q", want)
		}
	}

	out, err = run(t, "kinds", "--json")
	if err != nil {
		t.Fatalf("kinds --json error = %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != len(kinds.All()) {
		t.Errorf("got %d kinds, want %d", len(decoded), len(kinds.All()))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestFormatResult(t *testing.T) {
	cli.SetDefault(&cli.Config{Mode: cli.ModePlain})

	skipped := formatResult(&tablegate.Result{Skipped: true}, true)
	if !strings.Contains(skipped, MsgUpToDate) {
		t.Errorf("skipped = %q", skipped)
	}

	res := &tablegate.Result{
		Checksum:   "0123456789abcdef",
		Statements: []string{`ALTER TABLE "users" RENAME COLUMN "mail" TO "email"`},
		Summary:    "1 RenameColumn",
		Warnings:   []string{`table "legacy" is no longer defined and was kept`},
		Outcome:    "applied",
		RunID:      "run-1",
		Duration:   1500 * time.Microsecond,
	}
	planned := formatResult(res, false)
	if !strings.Contains(planned, `RENAME COLUMN "mail" TO "email";`) {
		t.Errorf("plan output missing statement:\n%s", planned)
	}
	if !strings.Contains(planned, "legacy") {
		t.Errorf("plan output missing warning:\n%s", planned)
	}

	applied := formatResult(res, true)
	for _, want := range []string{"0123456789ab", "1 RenameColumn", "statements: 1", "run: run-1", "duration: 2ms"} {
		if !strings.Contains(applied, want) {
			t.Errorf("applied output missing %q:\n%s", want, applied)
		}
	}
}
