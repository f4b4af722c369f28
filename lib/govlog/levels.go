package govlog

import (
	"os"
	"sort"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

// SetupLogLevels applies the default levels and then the configured per-subsystem levels.
// GOLOG_LOG_LEVEL, when set, wins over everything.
func SetupLogLevels(levels map[string]string) error {
	if _, set := os.LookupEnv("GOLOG_LOG_LEVEL"); set {
		return nil
	}

	_ = logging.SetLogLevel("*", "INFO")

	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := logging.SetLogLevel(name, levels[name]); err != nil {
			return xerrors.Errorf("setting log level of %q to %q: %w", name, levels[name], err)
		}
	}
	return nil
}
