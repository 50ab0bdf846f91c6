package core

import "idsearch/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the registry constraint set.
// These rules stand in for the declared constraints of the relational schema
// and run against the final transaction state at commit.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewIdentifierFormatRule())
	engine.Register(NewIdentifierUniquenessRule())
	engine.Register(NewClinicalStateRule())
	engine.Register(NewOwnershipIntegrityRule())
	return engine
}
