// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

const (
	// CurrentConfigVersion tags the on-disk config schema.
	CurrentConfigVersion = "1.0.0"
)

// EffectiveConfigVersion returns the schema version to write when the
// config is serialized. A config that already carries one keeps it.
func EffectiveConfigVersion(cfg AppConfig) string {
	if cfg.ConfigVersion != "" {
		return cfg.ConfigVersion
	}
	return CurrentConfigVersion
}
