package commands_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/importlog"
	"github.com/cuentas-dev/cuentas/internal/model"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "cuentas-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "cuentas")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/cuentas")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runCuentas runs the binary with stdin and returns stdout and stderr
// separately; logs go to stderr.
func runCuentas(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "DATABASE_PATH=") || strings.HasPrefix(kv, "APP_PORT=") {
			continue
		}
		env = append(env, kv)
	}
	cmd.Env = env
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// initProject runs init in a temp dir and returns the dir and --config flag.
func initProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	_, stderr, err := runCuentas(t, "", "init", dir)
	require.NoError(t, err, stderr)
	return dir, "--config=" + filepath.Join(dir, "cuentas.yaml")
}

func TestVersion(t *testing.T) {
	out, _, err := runCuentas(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestInit_CreatesProject(t *testing.T) {
	dir, cfg := initProject(t)

	data, err := os.ReadFile(filepath.Join(dir, "cuentas.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "path: movimientos.db")

	_, err = os.Stat(filepath.Join(dir, "movimientos.db"))
	require.NoError(t, err, "database should exist")
	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	out, _, err := runCuentas(t, "", "categories", "export", cfg)
	require.NoError(t, err)
	cats, err := categories.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, cats, len(categories.Defaults()))
}

func TestInit_RefusesExistingConfig(t *testing.T) {
	dir, _ := initProject(t)
	_, stderr, err := runCuentas(t, "", "init", dir)
	require.Error(t, err)
	assert.Contains(t, stderr, "already exists")
}

func TestImport_TemplateTwice(t *testing.T) {
	dir, cfg := initProject(t)
	tmpl := filepath.Join(dir, "plantilla.xlsx")

	_, _, err := runCuentas(t, "", "template", tmpl)
	require.NoError(t, err)

	out, stderr, err := runCuentas(t, "", "import", tmpl, cfg)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "3 inserted, 0 duplicates, 0 errors")

	out, _, err = runCuentas(t, "", "import", tmpl, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "0 inserted, 3 duplicates, 0 errors")

	entries, err := importlog.Read(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "plantilla.xlsx", entries[0].File)
	assert.Equal(t, "euskera", entries[0].Variant)
}

func TestImport_RejectsUnsupportedFile(t *testing.T) {
	dir, cfg := initProject(t)
	path := filepath.Join(dir, "movimientos.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	_, stderr, err := runCuentas(t, "", "import", path, cfg)
	require.Error(t, err)
	assert.Contains(t, stderr, "movimientos.csv")
}

func TestImport_Dir(t *testing.T) {
	dir, cfg := initProject(t)
	inbox := filepath.Join(dir, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	_, _, err := runCuentas(t, "", "template", filepath.Join(inbox, "junio.xlsx"))
	require.NoError(t, err)

	out, stderr, err := runCuentas(t, "", "import", "--dir", inbox, cfg)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "junio.xlsx: 3 inserted")

	_, err = os.Stat(filepath.Join(inbox, "processed", "junio.xlsx"))
	require.NoError(t, err, "file should be moved to processed/")
	_, err = os.Stat(filepath.Join(inbox, "junio.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestImport_NoArgs(t *testing.T) {
	_, cfg := initProject(t)
	_, stderr, err := runCuentas(t, "", "import", cfg)
	require.Error(t, err)
	assert.Contains(t, stderr, "no files given")
}

func importTemplate(t *testing.T, dir, cfg string) {
	t.Helper()
	tmpl := filepath.Join(dir, "plantilla.xlsx")
	_, _, err := runCuentas(t, "", "template", tmpl)
	require.NoError(t, err)
	_, stderr, err := runCuentas(t, "", "import", tmpl, cfg)
	require.NoError(t, err, stderr)
}

func TestTransactions_JSON(t *testing.T) {
	dir, cfg := initProject(t)
	importTemplate(t, dir, cfg)

	out, stderr, err := runCuentas(t, "", "transactions", "--json", "--month", "2025-06", cfg)
	require.NoError(t, err, stderr)

	var txs []model.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &txs))
	require.Len(t, txs, 3)
	assert.Equal(t, "2025-06-10", txs[0].PostingDate)
	assert.Equal(t, "RECIBO IBERDROLA", txs[0].Description)

	out, _, err = runCuentas(t, "", "transactions", "--json", "--month", "2025-05", cfg)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, _, err = runCuentas(t, "", "transactions", "--month", "junio", cfg)
	assert.Error(t, err)
}

func TestTransactions_Table(t *testing.T) {
	dir, cfg := initProject(t)
	importTemplate(t, dir, cfg)

	out, _, err := runCuentas(t, "", "transactions", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "MERCADONA BILBAO")
	assert.Contains(t, out, "-62.40")
}

func TestExport(t *testing.T) {
	dir, cfg := initProject(t)
	importTemplate(t, dir, cfg)

	out, _, err := runCuentas(t, "", "export", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,posting_date,value_date,description,amount,balance,categories", lines[0])

	path := filepath.Join(dir, "junio.csv")
	out, _, err = runCuentas(t, "", "export", "--month", "2025-06", "-o", path, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 transactions")
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSimilar(t *testing.T) {
	dir, cfg := initProject(t)
	importTemplate(t, dir, cfg)

	out, stderr, err := runCuentas(t, "", "similar", "--json",
		"--description", "MERCADONA BILBAO", "--amount", "-62,40", "--date", "2025-06-05", "--top-k", "1", cfg)
	require.NoError(t, err, stderr)

	var cands []model.SimilarityCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &cands))
	require.Len(t, cands, 1)
	assert.Equal(t, "MERCADONA BILBAO", cands[0].Description)

	_, _, err = runCuentas(t, "", "similar", "--description", "x", "--amount", "1", "--date", "05/06/2025", cfg)
	assert.Error(t, err)
}

func TestCategories_CRUD(t *testing.T) {
	dir, cfg := initProject(t)

	out, stderr, err := runCuentas(t, "", "categories", "add", "Mascotas", "--description", "Veterinario", cfg)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Created category")

	_, stderr, err = runCuentas(t, "", "categories", "add", "Mascotas", cfg)
	require.Error(t, err)
	assert.Contains(t, stderr, "Mascotas")

	out, _, err = runCuentas(t, "", "categories", "list", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(categories.Defaults())+1)
	assert.Contains(t, lines[0], "Alimentación")

	var id string
	for _, line := range lines {
		if strings.Contains(line, "Mascotas") {
			id = strings.Split(line, "\t")[0]
		}
	}
	require.NotEmpty(t, id)

	_, _, err = runCuentas(t, "", "categories", "update", id, "Animales", cfg)
	require.NoError(t, err)
	_, _, err = runCuentas(t, "", "categories", "delete", id, cfg)
	require.NoError(t, err)
	_, _, err = runCuentas(t, "", "categories", "delete", id, cfg)
	assert.Error(t, err)
	_, _, err = runCuentas(t, "", "categories", "delete", "abc", cfg)
	assert.Error(t, err)

	csvPath := filepath.Join(dir, "extra.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name,description\n,Viajes,Vuelos\n,ocio,\n"), 0o644))
	out, stderr, err = runCuentas(t, "", "categories", "import", csvPath, cfg)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "Imported 1 categories, skipped 1")
}

func TestMCP(t *testing.T) {
	_, cfg := initProject(t)
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_categories","arguments":{}}}`,
	}, "\n") + "\n"

	out, stderr, err := runCuentas(t, input, "mcp", cfg)
	require.NoError(t, err, stderr)

	var replies []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var r map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r), "stdout must carry only protocol messages: %s", sc.Text())
		replies = append(replies, r)
	}
	require.Len(t, replies, 3)

	tools := replies[1]["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 8)

	content := replies[2]["result"].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	var cats []model.Category
	require.NoError(t, json.Unmarshal([]byte(text), &cats))
	assert.Len(t, cats, len(categories.Defaults()))
}
