package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks that every migration in dir follows the
// YYYYMMDDHHMMSS_name.sql convention, carries both goose directions, and that
// no two files share a version. An empty set is rejected, since it usually
// means the directory flag points at the wrong place.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		version, err := checkMigrationFile(dir, name)
		if err != nil {
			return err
		}
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name
	}

	if len(seen) == 0 {
		return fmt.Errorf("no SQL migrations found in %q", dir)
	}
	return nil
}

func checkMigrationFile(dir, name string) (string, error) {
	m := sqlFileRe.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}

	body, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read file %q: %w", name, err)
	}
	for _, directive := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), directive) {
			return "", fmt.Errorf("migration %q missing %q", name, directive)
		}
	}
	return m[1], nil
}
