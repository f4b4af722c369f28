package config

import (
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes environment overrides, e.g. GOVSIM_DATASTORE_TYPE=memory.
const EnvPrefix = "GOVSIM"

// ApplyEnv overrides the scalar sections of cfg from the environment.
func ApplyEnv(cfg *Simulator) error {
	if err := envconfig.Process(EnvPrefix+"_GOVERNANCE", &cfg.Governance); err != nil {
		return xerrors.Errorf("governance env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix+"_DATASTORE", &cfg.Datastore); err != nil {
		return xerrors.Errorf("datastore env: %w", err)
	}
	return nil
}
