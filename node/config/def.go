package config

import (
	"github.com/govrealm/govchain/chain/actors/builtin/governance"
)

const (
	DatastoreMemory  = "memory"
	DatastoreLevelDB = "leveldb"
	DatastoreBadger  = "badger"
)

func DefaultSimulator() *Simulator {
	return &Simulator{
		Governance: Governance{
			ProgramID: governance.DefaultProgramID.String(),
			RealmName: "devnet",
		},
		Accrual: Accrual{
			Programs: []AccrualProgram{
				{Profile: "folio", ProgramID: governance.DefaultFolioProgramID.String()},
				{Profile: "rewards", ProgramID: governance.DefaultRewardsProgramID.String()},
			},
		},
		Datastore: Datastore{
			Type: DatastoreLevelDB,
			Path: "~/.govsim/datastore",
		},
		Logging: Logging{
			SubsystemLevels: map[string]string{
				"vm":         "warn",
				"statetree":  "warn",
				"governance": "info",
			},
		},
	}
}
