package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forjar/forjar/internal/core"
)

const nginxSiteRecipe = `
recipe:
  name: nginx-site
  version: "1.0"
  inputs:
    domain:
      type: string
      required: true
    port:
      type: integer
      default: 80
      min: 1
      max: 65535
resources:
  conf:
    type: file
    machine: placeholder
    path: /etc/nginx/sites-available/{{params.domain}}.conf
    state: file
    content: "server_name {{params.domain}}; listen {{params.port}};"
  svc:
    type: service
    machine: placeholder
    depends_on: [conf]
    name: nginx
    state: running
    restart_on: [conf]
`

func writeRecipe(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExpand_NamespacesAndResolvesInputs(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "nginx-site.yaml", nginxSiteRecipe)

	cfg := &core.Config{
		Version:   "1.0",
		Name:      "test",
		Machines:  core.NewOrderedMap[core.Machine](),
		Resources: core.NewOrderedMap[core.Resource](),
	}
	cfg.Resources.Set("site", core.Resource{
		ID:           "site",
		Kind:         core.KindRecipe,
		Machine:      core.MachineRef{"web1"},
		RecipeSource: "nginx-site.yaml",
		Inputs:       map[string]interface{}{"domain": "example.com"},
	})

	require.NoError(t, Expand(cfg, dir))

	conf, ok := cfg.Resources.Get("site/conf")
	require.True(t, ok)
	require.Equal(t, "/etc/nginx/sites-available/example.com.conf", conf.Path)
	require.Contains(t, conf.Content, "listen 80")
	require.Equal(t, core.MachineRef{"web1"}, conf.Machine)

	svc, ok := cfg.Resources.Get("site/svc")
	require.True(t, ok)
	require.Equal(t, []string{"site/conf"}, svc.DependsOn)
	require.Equal(t, []string{"site/conf"}, svc.RestartOn)

	_, stillPresent := cfg.Resources.Get("site")
	require.False(t, stillPresent)
}

const recipeWithExternalRefs = `
recipe:
  name: watched
resources:
  conf:
    type: file
    machine: placeholder
    path: /etc/watched.conf
    state: file
    content: "x"
  svc:
    type: service
    machine: placeholder
    depends_on: [conf, outside]
    name: watched
    state: running
    restart_on: [conf, outside]
`

func TestExpand_LeavesExternalDependsOnAndRestartOnUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "watched.yaml", recipeWithExternalRefs)

	cfg := &core.Config{
		Resources: core.NewOrderedMap[core.Resource](),
	}
	cfg.Resources.Set("outside", core.Resource{ID: "outside", Kind: core.KindFile, Machine: core.MachineRef{"web1"}, Path: "/tmp/outside", State: "file", Content: "o"})
	cfg.Resources.Set("w", core.Resource{
		ID: "w", Kind: core.KindRecipe, Machine: core.MachineRef{"web1"},
		RecipeSource: "watched.yaml",
	})

	require.NoError(t, Expand(cfg, dir))

	svc, ok := cfg.Resources.Get("w/svc")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"w/conf", "outside"}, svc.DependsOn)
	require.ElementsMatch(t, []string{"w/conf", "outside"}, svc.RestartOn)
}

func TestExpand_MissingRequiredInputErrors(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "nginx-site.yaml", nginxSiteRecipe)

	cfg := &core.Config{
		Resources: core.NewOrderedMap[core.Resource](),
	}
	cfg.Resources.Set("site", core.Resource{
		ID: "site", Kind: core.KindRecipe, Machine: core.MachineRef{"web1"},
		RecipeSource: "nginx-site.yaml",
	})

	err := Expand(cfg, dir)
	require.ErrorContains(t, err, "is required")
}

func TestValidateInputs_EnumRejectsUnknownChoice(t *testing.T) {
	meta := core.RecipeMetadata{
		Inputs: map[string]core.RecipeInput{
			"mode": {Type: core.InputEnum, Choices: []string{"a", "b"}},
		},
	}
	_, err := ValidateInputs(meta, map[string]interface{}{"mode": "c"})
	require.ErrorContains(t, err, "is not one of")
}

func TestValidateInputs_IntegerEnforcesRange(t *testing.T) {
	meta := core.RecipeMetadata{
		Inputs: map[string]core.RecipeInput{
			"port": {Type: core.InputInteger, Min: floatPtr(1), Max: floatPtr(100)},
		},
	}
	_, err := ValidateInputs(meta, map[string]interface{}{"port": 500})
	require.ErrorContains(t, err, "above maximum")
}

func floatPtr(f float64) *float64 { return &f }
