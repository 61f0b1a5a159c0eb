package schema

import "testing"

func TestLoadDefault(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	mods := r.IterateModules()
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(mods))
	}
}

func TestModuleByNamespace(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	m, ok := r.ModuleByNamespace("urn:ncagent:yang:system")
	if !ok {
		t.Fatal("expected to resolve ncagent-system by namespace")
	}
	if m.Name != "ncagent-system" {
		t.Errorf("got module %q, want ncagent-system", m.Name)
	}
}

func TestHasData(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	sysMod, _ := r.ModuleByNamespace("urn:ncagent:yang:system")
	if !r.HasData(sysMod) {
		t.Error("ncagent-system should have data nodes")
	}

	maintMod, _ := r.ModuleByNamespace("urn:ncagent:yang:maintenance")
	if r.HasData(maintMod) {
		t.Error("ncagent-maintenance has no data nodes, HasData should be false")
	}
}

func TestNodeBySchemaPath(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	n, ok := r.NodeBySchemaPath("/ncagent-system:interfaces")
	if !ok {
		t.Fatal("expected to resolve /ncagent-system:interfaces")
	}
	if n.Kind != KindContainer {
		t.Errorf("got kind %v, want KindContainer", n.Kind)
	}

	list, ok := n.Children["interface"]
	if !ok {
		t.Fatal("expected interfaces container to have an interface child")
	}
	if list.Kind != KindList {
		t.Errorf("got kind %v, want KindList", list.Kind)
	}
	if len(list.Keys) != 1 || list.Keys[0] != "name" {
		t.Errorf("got keys %v, want [name]", list.Keys)
	}
}

func TestFractionDigits(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	fd, ok := r.FractionDigits("/ncagent-system:interfaces/interface/statistics/input-power")
	if !ok {
		t.Fatal("expected to resolve input-power's fraction-digits")
	}
	if fd != 2 {
		t.Errorf("got %d fraction digits, want 2", fd)
	}
}

func TestClockIsPresenceContainer(t *testing.T) {
	r, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	n, ok := r.NodeBySchemaPath("/ncagent-system:system")
	if !ok {
		t.Fatal("expected to resolve /ncagent-system:system")
	}
	clock, ok := n.Children["clock"]
	if !ok {
		t.Fatal("expected system to have a clock child")
	}
	if clock.Kind != KindPresenceContainer {
		t.Errorf("got kind %v, want KindPresenceContainer", clock.Kind)
	}
}
