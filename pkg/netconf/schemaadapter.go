package netconf

import (
	"strings"

	"github.com/ncagentd/ncagentd/pkg/schema"
)

// schemaFilterRegistry adapts *schema.Registry to pkg/filter.Registry: the
// compiler only needs namespace-to-prefix resolution and top-level fan-out,
// both cheaply derivable from the registry's module list.
type schemaFilterRegistry struct {
	reg *schema.Registry
}

func newSchemaFilterRegistry(reg *schema.Registry) *schemaFilterRegistry {
	return &schemaFilterRegistry{reg: reg}
}

func (a *schemaFilterRegistry) ModulePrefix(namespace string) (string, bool) {
	m, ok := a.reg.ModuleByNamespace(namespace)
	if !ok {
		return "", false
	}
	return m.Prefix, true
}

func (a *schemaFilterRegistry) ModulesWithTopLevelNode(name string) []string {
	var out []string
	for _, m := range a.reg.IterateModules() {
		for _, n := range a.reg.IterateTopLevel(m) {
			if n.Name == name {
				out = append(out, m.Prefix)
				break
			}
		}
	}
	return out
}

// prefixToModule resolves a YANG prefix (as found in a compiled data XPath
// step, e.g. "sys" in "/sys:interfaces") back to its *schema.Module, by
// linear scan of the small, fixed module set loaded at startup.
func prefixToModule(reg *schema.Registry, prefix string) (*schema.Module, bool) {
	for _, m := range reg.IterateModules() {
		if m.Prefix == prefix {
			return m, true
		}
	}
	return nil, false
}

// dataPathToSchemaPath converts a data XPath (module-prefix steps, optional
// "[key='val']" list predicates, e.g. "/sys:interfaces/interface[name='eth0']/enabled")
// into the module-NAME-keyed, predicate-free schema path that
// schema.Registry.NodeBySchemaPath and value.FractionDigitsResolver expect
// ("/ncagent-system:interfaces/interface/enabled"). Returns "" if any step's
// prefix cannot be resolved.
func dataPathToSchemaPath(reg *schema.Registry, dataPath string) string {
	steps := splitXPathSteps(dataPath)
	var b strings.Builder
	for i, step := range steps {
		name, _ := splitPredicate(step)
		prefix, local, hasPrefix := strings.Cut(name, ":")
		if !hasPrefix {
			if i == 0 {
				return ""
			}
			local = name
		}
		b.WriteByte('/')
		if hasPrefix {
			mod, ok := prefixToModule(reg, prefix)
			if !ok {
				return ""
			}
			if i == 0 {
				b.WriteString(mod.Name)
				b.WriteByte(':')
			}
		}
		b.WriteString(local)
	}
	return b.String()
}

// splitXPathSteps splits an absolute XPath on '/', respecting "[...]"
// predicates so a predicate value containing '/' (not produced by this
// agent's own compiler output, but defensive regardless) never confuses the
// step boundary.
func splitXPathSteps(xpath string) []string {
	var steps []string
	depth := 0
	start := 0
	for i, c := range xpath {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case '/':
			if depth == 0 {
				if i > start {
					steps = append(steps, xpath[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(xpath) {
		steps = append(steps, xpath[start:])
	}
	return steps
}

// schemaFractionResolver adapts *schema.Registry to value.FractionDigitsResolver
// for Values read back from a datastore backend, whose XPath field is the
// data path (module-prefix steps, list predicates) rather than the
// predicate-free, module-NAME-keyed schema path NodeBySchemaPath expects.
type schemaFractionResolver struct {
	reg *schema.Registry
}

func (r schemaFractionResolver) FractionDigits(dataPath string) (uint8, bool) {
	schemaPath := dataPathToSchemaPath(r.reg, dataPath)
	if schemaPath == "" {
		return 0, false
	}
	return r.reg.FractionDigits(schemaPath)
}

// splitPredicate splits a step like "interface[name='eth0']" into its
// element name and raw predicate text "name='eth0'" (empty if none).
func splitPredicate(step string) (name, predicate string) {
	i := strings.IndexByte(step, '[')
	if i < 0 {
		return step, ""
	}
	return step[:i], strings.TrimSuffix(step[i+1:], "]")
}
