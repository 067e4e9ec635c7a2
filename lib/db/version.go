package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Version struct {
	MajorVersion int
	MinorVersion int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.MajorVersion, v.MinorVersion)
}

// RetrieveVersion works for both PostgreSQL and MySQL since both expose `version()`.
func RetrieveVersion(ctx context.Context, db RowQuerier) (Version, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return Version{}, fmt.Errorf("failed to scan version: %w", err)
	}

	return ParseVersion(version)
}

// ParseVersion accepts `PostgreSQL 15.4 on x86_64...` as well as MySQL's `8.0.33-log`.
func ParseVersion(versionString string) (Version, error) {
	versionNumber := versionString
	if rest, ok := strings.CutPrefix(versionString, "PostgreSQL "); ok {
		versionNumber, _, _ = strings.Cut(rest, " ")
	}

	versionNumber, _, _ = strings.Cut(versionNumber, "-")
	versionParts := strings.Split(versionNumber, ".")
	if len(versionParts) < 2 {
		return Version{}, fmt.Errorf("invalid version string: %s", versionString)
	}

	majorVersion, err := strconv.Atoi(versionParts[0])
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse major version: %w", err)
	}

	minorVersion, err := strconv.Atoi(versionParts[1])
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse minor version: %w", err)
	}

	return Version{MajorVersion: majorVersion, MinorVersion: minorVersion}, nil
}
