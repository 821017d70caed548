// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for routegate.
//
// Precedence is ENV > YAML file > defaults. The file is parsed strictly
// (unknown keys fail the load), durations are Go duration strings, and
// ROUTEGATE_* environment variables override any file value.
package config
