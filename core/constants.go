package core

// Business module identifiers. The gateway allow-list and the rule registry
// both key on these.
const (
	ModuleInventory   = "inventory"
	ModuleSales       = "sales"
	ModuleCRM         = "crm"
	ModuleFinance     = "finance"
	ModuleProduction  = "production"
	ModuleSupplyChain = "supply_chain"
	ModuleAnalytics   = "analytics"
	ModuleEcommerce   = "ecommerce"
)

// KnownModules is the fixed module allow-list, in canonical order.
var KnownModules = []string{
	ModuleInventory,
	ModuleSales,
	ModuleCRM,
	ModuleFinance,
	ModuleProduction,
	ModuleSupplyChain,
	ModuleAnalytics,
	ModuleEcommerce,
}

var knownModuleSet = func() map[string]bool {
	m := make(map[string]bool, len(KnownModules))
	for _, name := range KnownModules {
		m[name] = true
	}
	return m
}()

// IsKnownModule reports whether name is on the module allow-list.
func IsKnownModule(name string) bool {
	return knownModuleSet[name]
}
