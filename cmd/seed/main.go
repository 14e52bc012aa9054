package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/futaoo/INTERVAL/internal/db"
	"github.com/futaoo/INTERVAL/internal/trees"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

var (
	csvPath     = flag.String("csv", "", "Path to the tree CSV (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to write to the database")
	replace     = flag.Bool("replace", false, "Delete the listed trees (and their records and benefits) before inserting")
	migrate     = flag.Bool("migrate", false, "Create the tree_data schema and tables first")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key. 0 = disabled")
)

// CSV contract
// tree_id,lon,lat,species_code,scientific_name,common_name,is_native,height,trunk,spread,spread_category,is_public,condition,address
// Empty measurement, flag or text cells are stored as NULL.

var requiredColumns = []string{
	"tree_id", "lon", "lat", "species_code", "scientific_name", "common_name", "is_native",
	"height", "trunk", "spread", "spread_category", "is_public", "condition", "address",
}

type TreeCSV struct {
	TreeID         int
	Lon, Lat       float64
	SpeciesCode    string
	ScientificName string
	CommonName     string
	IsNative       *bool
	Height         *float64
	Trunk          *float64
	Spread         *float64
	SpreadCategory *string
	IsPublic       *bool
	Condition      *string
	Address        *string
}

type Counts struct {
	Trees   int64
	Species int64
	Records int64
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}

	rows, err := loadCSV(*csvPath)
	if err != nil {
		fatalf("CSV error: %v", err)
	}
	if err := validateRows(rows); err != nil {
		fatalf("CSV validation failed: %v", err)
	}
	fmt.Printf("Loaded %d trees from %s\n", len(rows), *csvPath)

	if *dryRun {
		printPlan(rows)
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	if *migrate {
		gdb, err := db.Open(*dsn)
		if err != nil {
			fatalf("connect for migrate: %v", err)
		}
		if err := trees.Migrate(gdb); err != nil {
			fatalf("migrate: %v", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		fmt.Println("Schema ready")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	before, err := countAll(ctx, tx)
	if err != nil {
		fatalf("pre-count: %v", err)
	}
	fmt.Printf("Before: trees=%d species=%d records=%d\n", before.Trees, before.Species, before.Records)

	if *replace {
		if err := deleteTrees(ctx, tx, rows); err != nil {
			fatalf("replace: %v", err)
		}
	}

	speciesIDs, err := upsertAllSpecies(ctx, tx, rows)
	if err != nil {
		fatalf("upsert species: %v", err)
	}
	fmt.Printf("Upserted %d distinct species\n", len(speciesIDs))

	if err := insertTrees(ctx, tx, rows, speciesIDs); err != nil {
		fatalf("insert trees: %v", err)
	}

	after, err := countAll(ctx, tx)
	if err != nil {
		fatalf("post-count: %v", err)
	}
	fmt.Printf("After:  trees=%d species=%d records=%d\n", after.Trees, after.Species, after.Records)

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Println("Seed complete")
}

func loadCSV(path string) ([]TreeCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(bufio.NewReader(f))
}

func parseCSV(in io.Reader) ([]TreeCSV, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range requiredColumns {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	var out []TreeCSV
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		line++

		cell := func(name string) string { return strings.TrimSpace(rec[idx[name]]) }
		row := TreeCSV{
			SpeciesCode:    cell("species_code"),
			ScientificName: cell("scientific_name"),
			CommonName:     cell("common_name"),
			SpreadCategory: optString(cell("spread_category")),
			Condition:      optString(cell("condition")),
			Address:        optString(cell("address")),
		}
		if row.TreeID, err = strconv.Atoi(cell("tree_id")); err != nil {
			return nil, fmt.Errorf("row %d: tree_id: %w", line, err)
		}
		if row.Lon, err = strconv.ParseFloat(cell("lon"), 64); err != nil {
			return nil, fmt.Errorf("row %d: lon: %w", line, err)
		}
		if row.Lat, err = strconv.ParseFloat(cell("lat"), 64); err != nil {
			return nil, fmt.Errorf("row %d: lat: %w", line, err)
		}
		for name, dst := range map[string]**float64{"height": &row.Height, "trunk": &row.Trunk, "spread": &row.Spread} {
			if *dst, err = optFloat(cell(name)); err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, name, err)
			}
		}
		for name, dst := range map[string]**bool{"is_native": &row.IsNative, "is_public": &row.IsPublic} {
			if *dst, err = optBool(cell(name)); err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, name, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func validateRows(rows []TreeCSV) error {
	if len(rows) == 0 {
		return fmt.Errorf("CSV has no data rows")
	}
	seen := make(map[int]struct{}, len(rows))
	for i, r := range rows {
		if r.TreeID <= 0 {
			return fmt.Errorf("row %d: tree_id must be positive", i+2)
		}
		if r.Lon < -180 || r.Lon > 180 || r.Lat < -90 || r.Lat > 90 {
			return fmt.Errorf("row %d: coordinates out of range (%f, %f)", i+2, r.Lon, r.Lat)
		}
		if r.SpeciesCode == "" {
			return fmt.Errorf("row %d: species_code is empty", i+2)
		}
		if _, dup := seen[r.TreeID]; dup {
			return fmt.Errorf("row %d: duplicate tree_id %d", i+2, r.TreeID)
		}
		seen[r.TreeID] = struct{}{}
	}
	return nil
}

func printPlan(rows []TreeCSV) {
	species := map[string]struct{}{}
	for _, r := range rows {
		species[r.SpeciesCode] = struct{}{}
	}
	fmt.Println("Plan preview:")
	fmt.Printf("  Trees to upsert: %d\n", len(rows))
	fmt.Printf("  Distinct species codes: %d\n", len(species))
	if *replace {
		fmt.Println("  Tables affected (destructive): tree_data.tree_record, tree_data.ecological_benefit, tree_data.tree")
	}
}

func countAll(ctx context.Context, tx *sql.Tx) (Counts, error) {
	var c Counts
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM tree_data.tree`).Scan(&c.Trees); err != nil {
		return c, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM tree_data.species`).Scan(&c.Species); err != nil {
		return c, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM tree_data.tree_record`).Scan(&c.Records); err != nil {
		return c, err
	}
	return c, nil
}

func deleteTrees(ctx context.Context, tx *sql.Tx, rows []TreeCSV) error {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = int64(r.TreeID)
	}
	for _, t := range []string{"tree_data.tree_record", "tree_data.ecological_benefit", "tree_data.tree"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE tree_id = ANY($1)", t)
		if _, err := tx.ExecContext(ctx, q, ids); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

func upsertAllSpecies(ctx context.Context, tx *sql.Tx, rows []TreeCSV) (map[string]int, error) {
	res := map[string]int{}
	for _, r := range rows {
		if _, ok := res[r.SpeciesCode]; ok {
			continue
		}
		id, err := upsertSpecies(ctx, tx, r)
		if err != nil {
			return nil, err
		}
		res[r.SpeciesCode] = id
	}
	return res, nil
}

func upsertSpecies(ctx context.Context, tx *sql.Tx, r TreeCSV) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT species_id FROM tree_data.species WHERE species_code = $1`, r.SpeciesCode).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup species '%s': %w", r.SpeciesCode, err)
	}

	q := `INSERT INTO tree_data.species (species_id, species_code, scientific_name, common_name, is_native)
	      VALUES ((SELECT COALESCE(MAX(species_id), 0) + 1 FROM tree_data.species), $1, $2, $3, $4)
	      RETURNING species_id`
	if err := tx.QueryRowContext(ctx, q, r.SpeciesCode, r.ScientificName, r.CommonName, r.IsNative).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert species '%s': %w", r.SpeciesCode, err)
	}
	return id, nil
}

func insertTrees(ctx context.Context, tx *sql.Tx, rows []TreeCSV, speciesIDs map[string]int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tree_data.tree (
			tree_id, geom, species_id, actual_height, actual_trunk, actual_spread,
			spread_category, is_public, condition, closest_address
		) VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tree_id) DO UPDATE SET
			geom = EXCLUDED.geom,
			species_id = EXCLUDED.species_id,
			actual_height = EXCLUDED.actual_height,
			actual_trunk = EXCLUDED.actual_trunk,
			actual_spread = EXCLUDED.actual_spread,
			spread_category = EXCLUDED.spread_category,
			is_public = EXCLUDED.is_public,
			condition = EXCLUDED.condition,
			closest_address = EXCLUDED.closest_address`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.TreeID, r.Lon, r.Lat, speciesIDs[r.SpeciesCode],
			r.Height, r.Trunk, r.Spread,
			r.SpreadCategory, r.IsPublic, r.Condition, r.Address,
		); err != nil {
			return fmt.Errorf("insert tree %d: %w", r.TreeID, err)
		}
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
