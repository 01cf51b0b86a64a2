package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildResources(rs ...Resource) *OrderedMap[Resource] {
	m := NewOrderedMap[Resource]()
	for _, r := range rs {
		m.Set(r.ID, r)
	}
	return m
}

func TestComputePlan_NoLockIsCreate(t *testing.T) {
	resources := buildResources(Resource{
		ID: "pkg", Kind: KindPackage, Machine: MachineRef{"web1"},
		Provider: "apt", Packages: []string{"nginx"}, State: "present",
	})
	plan, err := ComputePlan(resources, []string{"pkg"}, map[string]*StateLock{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 1)
	require.Equal(t, ActionCreate, plan.Changes[0].Action)
}

func TestComputePlan_MatchingHashIsNoop(t *testing.T) {
	r := Resource{
		ID: "pkg", Kind: KindPackage, Machine: MachineRef{"web1"},
		Provider: "apt", Packages: []string{"nginx"}, State: "present",
	}
	resources := buildResources(r)
	hashes, err := DesiredHashes(resources)
	require.NoError(t, err)

	lock := NewStateLock("web1", "")
	lock.Resources.Set("pkg", ResourceLock{Kind: KindPackage, Hash: hashes["pkg"]})

	plan, err := ComputePlan(resources, []string{"pkg"}, map[string]*StateLock{"web1": lock})
	require.NoError(t, err)
	require.Equal(t, ActionNoop, plan.Changes[0].Action)
}

func TestComputePlan_DifferentHashIsUpdate(t *testing.T) {
	r := Resource{
		ID: "pkg", Kind: KindPackage, Machine: MachineRef{"web1"},
		Provider: "apt", Packages: []string{"nginx"}, State: "present",
	}
	resources := buildResources(r)
	lock := NewStateLock("web1", "")
	lock.Resources.Set("pkg", ResourceLock{Kind: KindPackage, Hash: "sha256:stale"})

	plan, err := ComputePlan(resources, []string{"pkg"}, map[string]*StateLock{"web1": lock})
	require.NoError(t, err)
	require.Equal(t, ActionUpdate, plan.Changes[0].Action)
}

func TestComputePlan_AbsentWithNoEntryIsNoop(t *testing.T) {
	r := Resource{
		ID: "f", Kind: KindFile, Machine: MachineRef{"web1"},
		Path: "/tmp/x", State: "absent",
	}
	resources := buildResources(r)
	plan, err := ComputePlan(resources, []string{"f"}, map[string]*StateLock{})
	require.NoError(t, err)
	require.Equal(t, ActionNoop, plan.Changes[0].Action)
}

func TestComputePlan_AbsentWithEntryIsDestroy(t *testing.T) {
	r := Resource{
		ID: "f", Kind: KindFile, Machine: MachineRef{"web1"},
		Path: "/tmp/x", State: "absent",
	}
	resources := buildResources(r)
	lock := NewStateLock("web1", "")
	lock.Resources.Set("f", ResourceLock{Kind: KindFile, Hash: "sha256:whatever"})

	plan, err := ComputePlan(resources, []string{"f"}, map[string]*StateLock{"web1": lock})
	require.NoError(t, err)
	require.Equal(t, ActionDestroy, plan.Changes[0].Action)
}

func TestDesiredHashes_ServiceFoldsRestartOnHashes(t *testing.T) {
	conf := Resource{
		ID: "conf", Kind: KindFile, Machine: MachineRef{"web1"},
		Path: "/etc/nginx.conf", State: "file", Content: "v1",
	}
	svc := Resource{
		ID: "svc", Kind: KindService, Machine: MachineRef{"web1"},
		Name: "nginx", State: "running", RestartOn: []string{"conf"},
	}
	resources := buildResources(conf, svc)
	h1, err := DesiredHashes(resources)
	require.NoError(t, err)

	conf.Content = "v2"
	resources2 := buildResources(conf, svc)
	h2, err := DesiredHashes(resources2)
	require.NoError(t, err)

	require.NotEqual(t, h1["svc"], h2["svc"], "changing the watched file must change the service's own hash")
}

func TestComputePlan_MultiMachineResourceFansOut(t *testing.T) {
	r := Resource{
		ID: "pkg", Kind: KindPackage, Machine: MachineRef{"web1", "web2"},
		Provider: "apt", Packages: []string{"curl"}, State: "present",
	}
	resources := buildResources(r)
	plan, err := ComputePlan(resources, []string{"pkg"}, map[string]*StateLock{})
	require.NoError(t, err)
	require.Len(t, plan.Changes, 2)
	require.ElementsMatch(t, []string{"web1", "web2"}, []string{plan.Changes[0].Machine, plan.Changes[1].Machine})
}
