package config

// // NOTE: ONLY PUT STRUCT DEFINITIONS IN THIS FILE

// Simulator is the config of a govsim node.
type Simulator struct {
	Governance Governance
	Accrual    Accrual
	Datastore  Datastore
	Logging    Logging
}

type Governance struct {
	// ProgramID is the base58 address the governance program is deployed at.
	ProgramID string
	// RealmName names the realm seeded by genesis.
	RealmName string
}

// Accrual lists the reward-accrual programs withdrawals may delegate to. Each entry binds
// a known account layout to a program address.
type Accrual struct {
	Programs []AccrualProgram
}

type AccrualProgram struct {
	// Profile is the account layout, "folio" or "rewards".
	Profile   string
	ProgramID string
}

type Datastore struct {
	// Type is one of "memory", "leveldb" or "badger".
	Type string
	Path string
}

// Logging is the logging system config
type Logging struct {
	// SubsystemLevels specify per-subsystem log levels
	SubsystemLevels map[string]string
}
