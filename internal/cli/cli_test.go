package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/vase/pkg/errors"
	vaseio "github.com/matzehuels/vase/pkg/io"
	"github.com/matzehuels/vase/pkg/server"
)

// captureStdout redirects status output into a buffer until the test ends.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// isolate points the cache and every VASE_* override at test-local values.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", home)
	for _, name := range []string{
		"VASE_CACHE_DRIVER", "VASE_CACHE_DIR", "VASE_REDIS_ADDR", "VASE_MONGO_URI",
		"VASE_S3_BUCKET", "VASE_SQLITE_PATH", "VASE_POSTGRES_DSN", "VASE_SERVER_ADDR",
		"VASE_SOURCES_DIR", "VASE_JOBS_THREADS",
	} {
		t.Setenv(name, "")
	}
	return home
}

// run executes the CLI with args and returns what commands wrote to their
// output stream.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeSources writes a small source set and returns the encode flags for it.
func writeSources(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"1crn.fasta": ">1crn_A\nTTCCPSIVARSN\n>P01542\nTTCCP-IVARS-\n",
		"1crn.pdb":   "HEADER    PLANT PROTEIN\nATOM      1  N   THR A   1\n",
		"1crn.csv":   "residue_number,pdb_residue,conservation\n1,A10,0.5\n2,A11,0.9\n",
		"1crn.toml":  "[columns.conservation]\ntitle = \"Conservation\"\nmouseover = true\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return []string{
		"--fasta", filepath.Join(dir, "1crn.fasta"),
		"--pdb", filepath.Join(dir, "1crn.pdb"),
		"--table", filepath.Join(dir, "1crn.csv"),
		"--columns", filepath.Join(dir, "1crn.toml"),
	}
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"cache", "completion", "encode", "serve", "show", "validate"}
	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	for _, name := range want {
		if !strings.Contains(strings.Join(got, " "), name) {
			t.Errorf("root command is missing %q (have %v)", name, got)
		}
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version error: %v", err)
	}
	if !strings.Contains(out, "commit:") {
		t.Errorf("version output = %q", out)
	}
}

func TestEncodeValidateShow(t *testing.T) {
	isolate(t)
	status := captureStdout(t)
	path := filepath.Join(t.TempDir(), "1crn_a.xml.gz")

	args := append([]string{"encode"}, writeSources(t)...)
	args = append(args,
		"--plot", "Cons vs Pos:residue_number:conservation",
		"--seq-url", "P01542=https://www.uniprot.org/uniprot/P01542",
		"-o", path)
	if _, err := run(t, args...); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if !strings.Contains(status.String(), "Encoded document") {
		t.Errorf("encode status = %q", status.String())
	}

	doc, err := vaseio.ImportXML(path)
	if err != nil {
		t.Fatalf("encoded file does not validate: %v", err)
	}
	if len(doc.Plots()) != 1 || len(doc.SequenceURLIDs()) != 1 {
		t.Errorf("plots = %v, urls = %v", doc.Plots(), doc.SequenceURLIDs())
	}

	if _, err := run(t, "validate", path); err != nil {
		t.Errorf("validate error: %v", err)
	}

	status.Reset()
	if _, err := run(t, "show", path); err != nil {
		t.Fatalf("show error: %v", err)
	}
	for _, want := range []string{"2 sequences", "Conservation", "mouseover", "Cons vs Pos"} {
		if !strings.Contains(status.String(), want) {
			t.Errorf("show output missing %q:\n%s", want, status.String())
		}
	}

	out, err := run(t, "show", path, "--json")
	if err != nil {
		t.Fatalf("show --json error: %v", err)
	}
	var view server.DocumentView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("show --json output is not JSON: %v", err)
	}
	if len(view.Columns) != 3 || view.Columns[2].Title != "Conservation" {
		t.Errorf("columns = %+v", view.Columns)
	}
}

func TestEncodeToStdout(t *testing.T) {
	isolate(t)
	out, err := run(t, append([]string{"encode"}, writeSources(t)...)...)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if _, err := vaseio.Unmarshal([]byte(out)); err != nil {
		t.Errorf("stdout is not a valid document: %v", err)
	}
}

func TestEncodeErrors(t *testing.T) {
	isolate(t)
	captureStdout(t)
	tests := []struct {
		name  string
		extra []string
		code  errors.Code
	}{
		{"bad plot spec", []string{"--plot", "nocolons"}, errors.ErrCodeInvalidInput},
		{"plot on text column", []string{"--plot", "T:pdb_residue:conservation"}, errors.ErrCodeTypeMismatch},
		{"bad seq url", []string{"--seq-url", "P01542"}, errors.ErrCodeInvalidInput},
		{"url for unknown sequence", []string{"--seq-url", "X=https://a.b"}, errors.ErrCodeDanglingReference},
		{"bad save ref", []string{"--save", "../etc"}, errors.ErrCodeInvalidStructureID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{"encode"}, writeSources(t)...), tt.extra...)
			if _, err := run(t, args...); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := run(t, "encode", "--fasta", "x.fasta"); err == nil {
		t.Error("encode without --pdb and --table should fail")
	}
}

func TestValidateReportsErrors(t *testing.T) {
	isolate(t)
	status := captureStdout(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xml")
	bad := filepath.Join(dir, "bad.xml")

	if _, err := run(t, append(append([]string{"encode"}, writeSources(t)...), "-o", good)...); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("<xml><fasta>&gt;a\nA</fasta></xml>"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "validate", good, bad, filepath.Join(dir, "missing.xml"))
	if err == nil || !strings.Contains(err.Error(), "2 of 3") {
		t.Fatalf("validate error = %v, want 2 of 3 invalid", err)
	}
	out := status.String()
	for _, want := range []string{"MISSING_BLOCK", "[pdb]", "FILE_NOT_FOUND"} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q:\n%s", want, out)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	home := isolate(t)
	status := captureStdout(t)
	path := filepath.Join(t.TempDir(), "1crn_a.xml")
	if _, err := run(t, append(append([]string{"encode"}, writeSources(t)...), "-o", path)...); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(home, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	if _, err := run(t, "cache", "put", "1CRN/A", path); err != nil {
		t.Fatalf("cache put error: %v", err)
	}
	if !strings.Contains(status.String(), "Stored document:1crn_a") {
		t.Errorf("put status = %q", status.String())
	}

	out, err = run(t, "cache", "get", "1crn/a")
	if err != nil {
		t.Fatalf("cache get error: %v", err)
	}
	want, _ := os.ReadFile(path)
	if out != string(want) {
		t.Error("cache get should return the stored document")
	}

	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if !strings.Contains(status.String(), "Cleared 1 cached documents") {
		t.Errorf("clear status = %q", status.String())
	}
	if _, err := run(t, "cache", "get", "1crn/a"); err == nil {
		t.Error("cache get after clear should fail")
	}

	if _, err := run(t, "cache", "put", "1crn", path); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "cache", "delete", "1crn"); err != nil {
		t.Fatalf("cache delete error: %v", err)
	}
	if _, err := run(t, "cache", "get", "1crn"); err == nil {
		t.Error("cache get after delete should fail")
	}
}

func TestEncodeSave(t *testing.T) {
	isolate(t)
	captureStdout(t)
	if _, err := run(t, append(append([]string{"encode"}, writeSources(t)...), "--save", "1crn/B")...); err != nil {
		t.Fatalf("encode --save error: %v", err)
	}
	if _, err := run(t, "cache", "get", "1crn/B"); err != nil {
		t.Errorf("saved document not found: %v", err)
	}
}

func TestEncodeSaveSQLite(t *testing.T) {
	home := isolate(t)
	t.Setenv("VASE_CACHE_DRIVER", "sqlite")
	captureStdout(t)
	if _, err := run(t, append(append([]string{"encode"}, writeSources(t)...), "--save", "1crn/A")...); err != nil {
		t.Fatalf("encode --save error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "vase", "documents.db")); err != nil {
		t.Errorf("sqlite database not created in the cache dir: %v", err)
	}
	out, err := run(t, "cache", "get", "1crn/A", "--raw")
	if err != nil {
		t.Fatalf("cache get error: %v", err)
	}
	if !strings.Contains(out, "<data_table>") {
		t.Errorf("cache get --raw output:\n%s", out)
	}
}

func TestCacheWithoutFileDriver(t *testing.T) {
	isolate(t)
	if _, err := run(t, "--no-cache", "cache", "path"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("cache path with --no-cache error = %v, want UNSUPPORTED", err)
	}
}

func TestServePrintConfig(t *testing.T) {
	isolate(t)
	cfgPath := filepath.Join(t.TempDir(), "vase.toml")
	cfg := "[cache]\ndriver = \"memory\"\n\n[redis]\npassword = \"secret\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "serve", "--config", cfgPath, "--addr", ":9999", "--xml-only", "--print-config")
	if err != nil {
		t.Fatalf("serve --print-config error: %v", err)
	}
	for _, want := range []string{`driver = "memory"`, `addr = ":9999"`, "xml_only = true"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Error("config output must mask the redis password")
	}

	if _, err := run(t, "serve", "--config", filepath.Join(t.TempDir(), "none.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing config error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestCompletion(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := run(t, "completion", shell)
		if err != nil {
			t.Errorf("completion %s error: %v", shell, err)
		}
		if !strings.Contains(out, "vase") {
			t.Errorf("completion %s output does not mention vase", shell)
		}
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("completion for an unknown shell should fail")
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, _ = cacheDir()
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}
