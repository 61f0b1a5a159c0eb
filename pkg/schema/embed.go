package schema

import _ "embed"

//go:embed yangmodels/ncagent-system.yang
var systemYANG string

//go:embed yangmodels/ncagent-maintenance.yang
var maintenanceYANG string

// LoadDefault builds the Registry the agent ships with: the system/interface
// data model plus a data-free maintenance module, so HasData's false branch
// has a real module to exercise.
func LoadDefault() (*Registry, error) {
	return Load(map[string]string{
		"ncagent-system.yang":      systemYANG,
		"ncagent-maintenance.yang": maintenanceYANG,
	}, []string{"ncagent-system", "ncagent-maintenance"})
}
