package vulnlib

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	version2 "github.com/hashicorp/go-version"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/pkg/component"
)

const schema = `
CREATE TABLE IF NOT EXISTS releases (
	"ReleaseID" TEXT NOT NULL PRIMARY KEY,
	"ComponentID" TEXT NOT NULL,
	"Version" TEXT);
CREATE TABLE IF NOT EXISTS vulns (
	"ID" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	"Hash" TEXT UNIQUE,
	"VulnID" TEXT NOT NULL,
	"ComponentID" TEXT NOT NULL,
	"MinVersion" TEXT,
	"MaxVersion" TEXT,
	"Name" TEXT,
	"Severity" TEXT,
	"Score" REAL,
	"Description" TEXT,
	"PublishDate" TEXT,
	"URL" TEXT,
	"Source" TEXT);
CREATE INDEX IF NOT EXISTS idx_vulns_component ON vulns("ComponentID");`

// DBClient is a knowledge base backed by a local sqlite file.
type DBClient struct {
	DB   *sql.DB
	Path string
}

type DBRow struct {
	Id          int
	Hash        string
	VulnID      string
	ComponentID string
	MinVersion  string
	MaxVersion  string
	Name        string
	Severity    string
	Score       float64
	Description string
	PublishDate string
	URL         string
	Source      string
}

func (r *DBRow) vulnerability() component.Vulnerability {
	return component.Vulnerability{
		ID:          r.VulnID,
		Name:        r.Name,
		Severity:    r.Severity,
		Score:       r.Score,
		Description: r.Description,
		PublishDate: r.PublishDate,
		URL:         r.URL,
		Source:      r.Source,
		Attributes: map[string]string{
			"vulnerableVersion": affectedRange(r.MinVersion, r.MaxVersion),
		},
	}
}

// OpenDB opens (and creates if needed) the sqlite knowledge base at path.
func OpenDB(path string) (*DBClient, error) {
	dir := filepath.Dir(path)
	if !exists(dir) {
		if err := mkFolder(dir); err != nil {
			log.Printf("failed to create folder, error: %v", err)
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	cli := &DBClient{DB: db, Path: path}
	if err = cli.Init(); err != nil {
		db.Close()
		return nil, err
	}

	return cli, nil
}

func (cli *DBClient) Init() error {
	if _, err := cli.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create knowledge base schema: %w", err)
	}
	return nil
}

func (cli *DBClient) Close() error {
	return cli.DB.Close()
}

// Reset drops all stored releases and vulnerabilities.
func (cli *DBClient) Reset() error {
	if _, err := cli.DB.Exec(`DELETE FROM vulns; DELETE FROM releases;`); err != nil {
		return err
	}
	return nil
}

func (cli *DBClient) PutRelease(releaseID, componentID, version string) error {
	sqlRow := `INSERT INTO releases ("ReleaseID", "ComponentID", "Version") VALUES (?, ?, ?)
				ON CONFLICT("ReleaseID") DO UPDATE SET "ComponentID" = excluded."ComponentID", "Version" = excluded."Version"`

	_, err := cli.DB.Exec(sqlRow, releaseID, componentID, version)
	return err
}

// PutVuln stores one affected range of a vulnerability. Duplicate ranges are skipped.
func (cli *DBClient) PutVuln(r *DBRow) error {
	hash := md5.Sum([]byte(fmt.Sprintf("%s%s%s%s", r.ComponentID, r.VulnID, r.MinVersion, r.MaxVersion)))
	sqlRow := `INSERT INTO vulns
				  ("Hash", "VulnID", "ComponentID", "MinVersion", "MaxVersion", "Name",
				   "Severity", "Score", "Description", "PublishDate", "URL", "Source")
				VALUES
				  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := cli.DB.Exec(sqlRow, hex.EncodeToString(hash[:]), r.VulnID, r.ComponentID,
		r.MinVersion, r.MaxVersion, r.Name,
		r.Severity, r.Score, r.Description,
		r.PublishDate, r.URL, r.Source)

	if err != nil {
		if strings.Contains(err.Error(), "vulns.Hash") {
			return nil
		}
		return err
	}

	return nil
}

func (cli *DBClient) queryByComponent(ctx context.Context, componentID string, ascending bool) ([]*DBRow, error) {
	dbRows := []*DBRow{}

	order := "ASC"
	if !ascending {
		order = "DESC"
	}

	sqlRow := fmt.Sprintf(`SELECT "ID", "Hash", "VulnID", "ComponentID", "MinVersion", "MaxVersion", "Name",
				"Severity", "Score", "Description", "PublishDate", "URL", "Source"
				FROM vulns WHERE "ComponentID" = ? ORDER BY "VulnID" %s, "ID" ASC`, order)

	rows, err := cli.DB.QueryContext(ctx, sqlRow, componentID)
	if err != nil {
		return dbRows, err
	}

	defer rows.Close()

	for rows.Next() {
		r := &DBRow{}
		err = rows.Scan(&r.Id, &r.Hash, &r.VulnID, &r.ComponentID,
			&r.MinVersion, &r.MaxVersion, &r.Name,
			&r.Severity, &r.Score, &r.Description,
			&r.PublishDate, &r.URL, &r.Source)

		if err != nil {
			return dbRows, err
		}

		dbRows = append(dbRows, r)
	}

	if err = rows.Err(); err != nil {
		return dbRows, err
	}

	return dbRows, nil
}

func (cli *DBClient) SearchByComponent(ctx context.Context, componentID string, page Page) ([]component.Vulnerability, error) {
	rows, err := cli.queryByComponent(ctx, componentID, page.SortAscending)
	if err != nil {
		return nil, serviceError("search component", componentID, err)
	}

	return page.apply(collapse(rows, nil)), nil
}

func (cli *DBClient) SearchByRelease(ctx context.Context, releaseID string, page Page) ([]component.Vulnerability, error) {
	var componentID, version string

	row := cli.DB.QueryRowContext(ctx, `SELECT "ComponentID", "Version" FROM releases WHERE "ReleaseID" = ?`, releaseID)
	if err := row.Scan(&componentID, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("search release", releaseID)
		}
		return nil, serviceError("search release", releaseID, err)
	}

	rows, err := cli.queryByComponent(ctx, componentID, page.SortAscending)
	if err != nil {
		return nil, serviceError("search release", releaseID, err)
	}

	config.Debugf("release %s resolved to component %s version %s", releaseID, componentID, version)

	return page.apply(collapse(rows, func(r *DBRow) bool {
		return affects(version, r.MinVersion, r.MaxVersion)
	})), nil
}

// collapse keeps the first matching row of every vulnerability id.
func collapse(rows []*DBRow, keep func(*DBRow) bool) []component.Vulnerability {
	seen := map[string]bool{}
	vulns := []component.Vulnerability{}

	for _, r := range rows {
		if seen[r.VulnID] {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}

		seen[r.VulnID] = true
		vulns = append(vulns, r.vulnerability())
	}

	return vulns
}

func unbounded(v string) bool {
	return v == "" || v == "*"
}

// affects reports whether cv lies in the range (min, max). A leading '='
// makes a bound inclusive.
func affects(cv, min, max string) bool {
	if unbounded(min) && unbounded(max) {
		return true
	}

	currentVersion, err := version2.NewVersion(cv)
	if err != nil {
		return false
	}

	if !unbounded(max) {
		inclusive := strings.HasPrefix(max, "=")
		vulnMaxVersion, err := version2.NewVersion(strings.TrimPrefix(max, "="))
		if err != nil {
			return false
		}

		cmp := currentVersion.Compare(vulnMaxVersion)
		if cmp > 0 || (cmp == 0 && !inclusive) {
			return false
		}
	}

	if !unbounded(min) {
		inclusive := strings.HasPrefix(min, "=")
		vulnMinVersion, err := version2.NewVersion(strings.TrimPrefix(min, "="))
		if err != nil {
			return false
		}

		cmp := currentVersion.Compare(vulnMinVersion)
		if cmp < 0 || (cmp == 0 && !inclusive) {
			return false
		}
	}

	return true
}

func affectedRange(min, max string) string {
	var parts []string

	if !unbounded(min) {
		if strings.HasPrefix(min, "=") {
			parts = append(parts, ">="+min[1:])
		} else {
			parts = append(parts, ">"+min)
		}
	}

	if !unbounded(max) {
		if strings.HasPrefix(max, "=") {
			parts = append(parts, "<="+max[1:])
		} else {
			parts = append(parts, "<"+max)
		}
	}

	if len(parts) == 0 {
		return "*"
	}

	return strings.Join(parts, ", ")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mkFolder(path string) error {
	if !exists(path) {
		err := os.MkdirAll(path, os.FileMode(0755))
		if err != nil {
			return err
		}
	}
	return nil
}
