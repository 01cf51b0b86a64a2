package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopoSort_OrdersByDependencyThenAlphabetically(t *testing.T) {
	resources := buildResources(
		Resource{ID: "b", DependsOn: []string{"a"}},
		Resource{ID: "a"},
		Resource{ID: "c", DependsOn: []string{"a"}},
	)
	order, err := TopoSort(resources)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTopoSort_DetectsCycle(t *testing.T) {
	resources := buildResources(
		Resource{ID: "a", DependsOn: []string{"b"}},
		Resource{ID: "b", DependsOn: []string{"a"}},
	)
	_, err := TopoSort(resources)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.ElementsMatch(t, []string{"a", "b"}, cycleErr.Residual)
}

func TestTopoSort_UnknownDependencyErrors(t *testing.T) {
	resources := buildResources(Resource{ID: "a", DependsOn: []string{"ghost"}})
	_, err := TopoSort(resources)
	require.ErrorContains(t, err, "unknown resource")
}

func TestResolveTemplates_SubstitutesParams(t *testing.T) {
	resources := buildResources(Resource{
		ID: "f", Kind: KindFile, Path: "/etc/{{params.name}}.conf", Content: "port={{params.port}}",
	})
	err := ResolveTemplates(resources, map[string]interface{}{"name": "app", "port": 8080})
	require.NoError(t, err)
	f, _ := resources.Get("f")
	require.Equal(t, "/etc/app.conf", f.Path)
	require.Equal(t, "port=8080", f.Content)
}

func TestResolveTemplates_UnresolvedKeyErrors(t *testing.T) {
	resources := buildResources(Resource{ID: "f", Kind: KindFile, Path: "/etc/{{params.missing}}.conf"})
	err := ResolveTemplates(resources, map[string]interface{}{})
	require.ErrorContains(t, err, "unresolved template parameter")
}

func TestResolveTemplates_RejectsNonParamsPlaceholder(t *testing.T) {
	resources := buildResources(Resource{ID: "f", Kind: KindFile, Path: "/etc/{{vars.name}}.conf"})
	err := ResolveTemplates(resources, map[string]interface{}{"name": "x"})
	require.ErrorContains(t, err, "unsupported template placeholder")
}
