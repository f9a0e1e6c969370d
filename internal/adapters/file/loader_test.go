package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor/internal/adapters/file"
	contract "github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/require"
)

func TestFileLoader_Contract(t *testing.T) {
	dir := t.TempDir()
	data := map[string][]byte{
		"intake":   []byte("identifier: intake\ntype: assessment\n"),
		"followup": []byte(`{"identifier": "followup", "type": "assessment"}`),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intake.yaml"), data["intake"], 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "followup.json"), data["followup"], 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	contract.DefinitionLoaderContractTest(t, file.NewLoader(dir), data)
}
