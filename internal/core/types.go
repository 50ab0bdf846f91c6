package core

import "idsearch/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Center             = domain.Center
	Participant        = domain.Participant
	Alias              = domain.Alias
	RutgersLCL         = domain.RutgersLCL
	DNASample          = domain.DNASample
	SerumSample        = domain.SerumSample
	LocalDNASample     = domain.LocalDNASample
	PedigreeIndividual = domain.PedigreeIndividual
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityCenter         = domain.EntityCenter
	EntityParticipant    = domain.EntityParticipant
	EntityAlias          = domain.EntityAlias
	EntityLCL            = domain.EntityLCL
	EntityDNASample      = domain.EntityDNASample
	EntitySerumSample    = domain.EntitySerumSample
	EntityLocalDNASample = domain.EntityLocalDNASample
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
