package deploy

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruledeploy/internal/testutil"
)

func TestProvisionTemplate_CreatesWhenAbsent(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/proj", 0o755))

	outcome, err := ProvisionTemplate(fs, "/proj", false)

	require.NoError(t, err)
	assert.Equal(t, TemplateCreated, outcome)
	data, err := util.ReadFile(fs, "/proj/.cursor/rules/manual/project-context.mdc")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate(), data)
}

func TestProvisionTemplate_PreservesCustomization(t *testing.T) {
	fs := memfs.New()
	custom := "---\ndescription: mine\n---\n\n# My project\n"
	testutil.WriteTree(t, fs, "/proj/.cursor/rules", map[string]string{"manual/project-context.mdc": custom})

	outcome, err := ProvisionTemplate(fs, "/proj", false)

	require.NoError(t, err)
	assert.Equal(t, TemplatePreserved, outcome)
	data, err := util.ReadFile(fs, TemplatePath("/proj"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestProvisionTemplate_EmptyFileCountsAsCustomized(t *testing.T) {
	fs := memfs.New()
	testutil.WriteTree(t, fs, "/proj/.cursor/rules", map[string]string{"manual/project-context.mdc": ""})

	outcome, err := ProvisionTemplate(fs, "/proj", false)

	require.NoError(t, err)
	assert.Equal(t, TemplatePreserved, outcome)
	data, err := util.ReadFile(fs, TemplatePath("/proj"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestProvisionTemplate_DryRun(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/proj", 0o755))

	outcome, err := ProvisionTemplate(fs, "/proj", true)

	require.NoError(t, err)
	assert.Equal(t, TemplateWouldCreate, outcome)
	_, err = fs.Stat(TemplatePath("/proj"))
	assert.Error(t, err)
}

func TestProvisionTemplate_ManualDirBlocked(t *testing.T) {
	fs := memfs.New()
	testutil.WriteTree(t, fs, "/proj/.cursor/rules", map[string]string{"manual": "not a directory"})

	outcome, err := ProvisionTemplate(fs, "/proj", false)

	assert.Equal(t, TemplateFailed, outcome)
	assert.True(t, IsWriteFailed(err))
}

func TestDefaultTemplate_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_template", DefaultTemplate())
}

func TestDefaultTemplate_ReturnsCopy(t *testing.T) {
	a := DefaultTemplate()
	a[0] = 'X'

	assert.NotEqual(t, a[0], DefaultTemplate()[0])
}
