package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chateval/infrastructure/persistence"
	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range buildRootCmd().Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"run", "check", "convert", "generate", "runs"} {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "qa_pairs.csv"))
	require.NoError(t, err)
	dsPath := filepath.Join(dir, "qa.csv")
	require.NoError(t, os.WriteFile(dsPath, data, 0o600))

	storePath := filepath.Join(dir, "runs.db")
	metricsPath := filepath.Join(dir, "metrics", "eval.prom")
	cfg := strings.Join([]string{
		"chatbot_type: dummy",
		"dataset_path: ./does-not-exist.csv",
		"scorers: [dummy, fuzzy]",
		"results_store: " + storePath,
		"metrics_file: " + metricsPath,
		"log_file: " + filepath.Join(dir, "eval.log"),
		"pass_expression: dummy_similarity >= 0",
	}, "\n")
	cfgPath := filepath.Join(dir, "config_eval.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	outDir := filepath.Join(dir, "results")
	out, err := execute(t, "run", "-c", cfgPath, "-d", dsPath, "-o", outDir, "-f", "run.csv")
	require.NoError(t, err)

	csvPath := filepath.Join(outDir, "run.csv")
	assert.Contains(t, out, "results: "+csvPath)
	assert.Contains(t, out, "records: 3")
	assert.Contains(t, out, "passed (dummy_similarity >= 0): 3/3")

	written, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	header := strings.SplitN(string(written), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "index,question,reference_answer,predicted_answer,duration,dummy_similarity,fuzzy_levenshtein"))
	assert.Contains(t, string(written), dsPath, "the dataset override is recorded")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "chateval_records_evaluated_total")

	store, err := persistence.OpenStore(context.Background(), storePath)
	require.NoError(t, err)
	defer store.Close()
	ids, err := store.RunIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	stored, err := store.Results(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	listed, err := execute(t, "runs", storePath)
	require.NoError(t, err)
	assert.Equal(t, ids[0]+"\n", listed)

	summary, err := execute(t, "runs", storePath, ids[0], "--pass", "fuzzy_levenshtein >= 0")
	require.NoError(t, err)
	assert.Contains(t, summary, "run: "+ids[0])
	assert.Contains(t, summary, "records: 3")
	assert.Contains(t, summary, "passed (fuzzy_levenshtein >= 0): 3/3")

	_, err = execute(t, "runs", storePath, "no-such-run")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "runs", filepath.Join(dir, "missing.db"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	logged, err := os.ReadFile(filepath.Join(dir, "eval.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "evaluation finished")
}

func TestRunCommandMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", filepath.Join("testdata", "qa_pairs.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok (type single, 3 records, 2 reference answers)")

	_, err = execute(t, "check", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestGenerateAndConvertCommands(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "chat.csv")

	out, err := execute(t, "generate", "-n", "3", "-o", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 chat sessions")

	ds, err := dataset.Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	out, err = execute(t, "convert", csvPath)
	require.NoError(t, err)
	jsonlPath := filepath.Join(dir, "chat.jsonl")
	assert.Contains(t, out, jsonlPath)
	_, err = os.Stat(jsonlPath)
	require.NoError(t, err)

	_, err = execute(t, "generate", "-n", "0", "-o", csvPath)
	assert.Error(t, err)
}
