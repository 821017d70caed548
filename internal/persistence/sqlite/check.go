package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// CheckMode selects how thorough an integrity pass is.
type CheckMode string

const (
	// CheckQuick runs PRAGMA quick_check, which skips index validation.
	CheckQuick CheckMode = "quick"
	// CheckFull runs PRAGMA integrity_check over every page.
	CheckFull CheckMode = "full"
)

// Check opens path read-only and runs the integrity pragma for mode.
// A healthy database yields nil issues; anything else comes back as
// the pragma's diagnostic rows.
func Check(path string, mode CheckMode) (issues []string, err error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s for check: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	pragma := "PRAGMA quick_check;"
	if mode == CheckFull {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.Query(pragma)
	if err != nil {
		return nil, fmt.Errorf("sqlite: integrity pragma: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("sqlite: scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: integrity rows: %w", err)
	}

	// The pragma reports health as exactly one row reading "ok".
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"integrity pragma returned no rows"}, nil
	}
	return results, nil
}
