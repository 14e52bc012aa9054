package trees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/futaoo/INTERVAL/internal/cache"
	"github.com/futaoo/INTERVAL/internal/db"
	"github.com/futaoo/INTERVAL/internal/metrics"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDivisionNotFound = errors.New("electoral division not found")

// divisionName looks up a division's name. Its boundary is not fetched; the
// statistics queries select it by id.
func divisionName(ctx context.Context, conn *gorm.DB, id int) (string, error) {
	var d struct{ English string }
	res := conn.WithContext(ctx).Raw(`
		SELECT english
		FROM tree_data.electoral_dublin
		WHERE ogc_fid = ?
	`, id).Scan(&d)
	if res.Error != nil {
		return "", fmt.Errorf("division lookup: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrDivisionNotFound
	}
	return d.English, nil
}

// ElectoralLabels lists division names with their centroids for map labels.
func ElectoralLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := cache.GetOrLoad(r.Context(), Lists, "electoral_label", func(ctx context.Context) ([]ElectoralLabel, error) {
		out := []ElectoralLabel{}
		err := db.DB.WithContext(ctx).Raw(`
			SELECT ogc_fid, english, ctrd_lat, ctrd_long
			FROM tree_data.electoral_dublin
			WHERE ctrd_lat IS NOT NULL AND ctrd_long IS NOT NULL
			ORDER BY ogc_fid
		`).Scan(&out).Error
		return out, err
	})
	if err != nil {
		writeInternal(w, r, "ElectoralLabels", err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

// ElectoralStatistics returns statistics for one division, or for every tree
// when no id is given.
func ElectoralStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pred, _ := NewPredicate(FilterRequest{})
	name, scope := "all", "world"

	if idParam := chi.URLParam(r, "id"); idParam != "" {
		id, err := strconv.Atoi(idParam)
		if err != nil {
			writeInternal(w, r, "ElectoralStatistics", fmt.Errorf("division id %q: %w", idParam, err))
			return
		}
		english, err := divisionName(ctx, db.DB, id)
		if errors.Is(err, ErrDivisionNotFound) {
			writeNotFound(w, "Electoral division not found")
			return
		}
		if err != nil {
			writeInternal(w, r, "ElectoralStatistics", err)
			return
		}
		pred = pred.WithDivision(id)
		name, scope = english, "division"
	}

	stats, timings, err := loadStatistics(ctx, db.DB, pred, false)
	if err != nil {
		writeInternal(w, r, "ElectoralStatistics", err)
		return
	}
	metrics.StatisticsQueriesTotal.WithLabelValues(scope).Inc()

	stats.ElectoralName = name
	addServerTiming(w, timings...)
	writeJSON(w, http.StatusOK, stats.Statistics)
}

// FilterTreeStatistics returns statistics and matching tree ids for an
// arbitrary filter and optional user polygon.
func FilterTreeStatistics(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	pred, err := NewPredicate(req)
	if err != nil {
		// Geometry problems are not distinguished from other failures for the caller.
		writeInternal(w, r, "FilterTreeStatistics", err)
		return
	}

	stats, timings, err := loadStatistics(r.Context(), db.DB, pred, true)
	if err != nil {
		writeInternal(w, r, "FilterTreeStatistics", err)
		return
	}
	metrics.StatisticsQueriesTotal.WithLabelValues("filter").Inc()

	stats.ElectoralName = "Area of Interest"
	addServerTiming(w, timings...)
	writeJSON(w, http.StatusOK, stats)
}

type treeRow struct {
	TreeID                int
	ClosestAddress        *string
	ActualHeight          *float64
	ActualTrunk           *float64
	ActualSpread          *float64
	Condition             *string
	GeomWKT               string  `gorm:"column:geom_wkt"`
	SpeciesCommonName     *string `gorm:"column:species_common_name"`
	SpeciesScientificName *string `gorm:"column:species_scientific_name"`
	SpeciesCode           *string `gorm:"column:species_code"`
}

type treeBenefitRow struct {
	BenefitName   string
	BenefitValue  *float64
	MonetaryValue *float64
	UnitSymbol    string
}

// GetTree returns one tree with its species, benefits and inspection records.
func GetTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idParam := chi.URLParam(r, "id")
	treeID, err := strconv.Atoi(idParam)
	if err != nil {
		writeInternal(w, r, "GetTree", fmt.Errorf("tree id %q: %w", idParam, err))
		return
	}

	var t treeRow
	res := db.DB.WithContext(ctx).Raw(`
		SELECT
			t.tree_id,
			t.closest_address,
			t.actual_height,
			t.actual_trunk,
			t.actual_spread,
			t.condition,
			ST_AsText(t.geom) AS geom_wkt,
			s.common_name AS species_common_name,
			s.scientific_name AS species_scientific_name,
			s.species_code
		FROM tree_data.tree t
		LEFT JOIN tree_data.species s ON t.species_id = s.species_id
		WHERE t.tree_id = ?
	`, treeID).Scan(&t)
	if res.Error != nil {
		writeInternal(w, r, "GetTree", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeNotFound(w, "Tree not found")
		return
	}

	var benefits []treeBenefitRow
	if err := db.DB.WithContext(ctx).Raw(`
		SELECT bt.benefit_name, eb.benefit_value, eb.monetary_value, u.unit_symbol
		FROM tree_data.ecological_benefit eb
		JOIN tree_data.ecological_benefit_types bt ON eb.benefit_type_id = bt.benefit_type_id
		JOIN tree_data.unit_of_measure u ON bt.unit_id = u.unit_id
		WHERE eb.tree_id = ?
		ORDER BY bt.benefit_name
	`, treeID).Scan(&benefits).Error; err != nil {
		writeInternal(w, r, "GetTree", err)
		return
	}

	var records []TreeRecord
	if err := db.DB.WithContext(ctx).
		Where("tree_id = ?", treeID).
		Order("record_date DESC NULLS LAST, record_id DESC").
		Find(&records).Error; err != nil {
		writeInternal(w, r, "GetTree", err)
		return
	}

	writeJSON(w, http.StatusOK, buildTreeDetail(t, benefits, records))
}

func buildTreeDetail(t treeRow, benefits []treeBenefitRow, records []TreeRecord) TreeDetail {
	out := TreeDetail{
		TreeID:             t.TreeID,
		ClosestAddress:     t.ClosestAddress,
		Height:             t.ActualHeight,
		TrunkDiameter:      t.ActualTrunk,
		CanopySpread:       t.ActualSpread,
		Condition:          t.Condition,
		GeomWKT:            t.GeomWKT,
		EcologicalBenefits: make([]BenefitOut, 0, len(benefits)),
		Inspections:        make([]InspectionOut, 0, len(records)),
	}
	if t.SpeciesCommonName != nil {
		out.Species.SpeciesCommonName = *t.SpeciesCommonName
	}
	if t.SpeciesScientificName != nil {
		out.Species.SpeciesScientificName = *t.SpeciesScientificName
	}
	if t.SpeciesCode != nil && *t.SpeciesCode != "" {
		out.Species.SpeciesImageURL = "/assets/species/" + *t.SpeciesCode + ".webp"
	}

	for _, b := range benefits {
		out.EcologicalBenefits = append(out.EcologicalBenefits, BenefitOut{
			Name:     b.BenefitName,
			Value:    b.BenefitValue,
			Unit:     b.UnitSymbol,
			Monetary: b.MonetaryValue,
		})
	}
	for _, rec := range records {
		out.Inspections = append(out.Inspections, InspectionOut{
			RecordID:    rec.RecordID,
			Date:        rec.RecordDate,
			Type:        rec.RecordType,
			Description: rec.RecordDescription,
		})
	}
	return out
}

// ListSpecies returns the full species reference list.
func ListSpecies(w http.ResponseWriter, r *http.Request) {
	species, err := cache.GetOrLoad(r.Context(), Lists, "species", func(ctx context.Context) ([]Species, error) {
		out := []Species{}
		err := db.DB.WithContext(ctx).Order("species_id").Find(&out).Error
		return out, err
	})
	if err != nil {
		writeInternal(w, r, "ListSpecies", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"species": species})
}

// ListConditions returns the distinct condition labels in use.
func ListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := cache.GetOrLoad(r.Context(), Lists, "conditions", func(ctx context.Context) ([]ConditionOut, error) {
		out := []ConditionOut{}
		err := db.DB.WithContext(ctx).Raw(`
			SELECT DISTINCT condition
			FROM tree_data.tree
			WHERE condition IS NOT NULL
			ORDER BY condition
		`).Scan(&out).Error
		return out, err
	})
	if err != nil {
		writeInternal(w, r, "ListConditions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conditions": conditions})
}

// ListStyles returns the distinct (species, spread category, visibility)
// combinations so the map can build its styles up front.
func ListStyles(w http.ResponseWriter, r *http.Request) {
	combos, err := cache.GetOrLoad(r.Context(), Lists, "styles", func(ctx context.Context) ([]StyleCombination, error) {
		out := []StyleCombination{}
		err := db.DB.WithContext(ctx).Raw(`
			SELECT DISTINCT species_id, spread_category, is_public
			FROM tree_data.tree
			WHERE spread_category IS NOT NULL
			ORDER BY species_id, spread_category, is_public
		`).Scan(&out).Error
		return out, err
	})
	if err != nil {
		writeInternal(w, r, "ListStyles", err)
		return
	}
	writeJSON(w, http.StatusOK, combos)
}

type recordInput struct {
	RecordType        *string `json:"recordType"`
	RecordDescription *string `json:"recordDescription"`
	RecordDate        *string `json:"recordDate"`
}

var recordDateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

func (in recordInput) date() (*time.Time, error) {
	if in.RecordDate == nil || *in.RecordDate == "" {
		return nil, nil
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, *in.RecordDate); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised recordDate %q", *in.RecordDate)
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (recordInput, *time.Time, bool) {
	var in recordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return in, nil, false
	}
	date, err := in.date()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid recordDate"})
		return in, nil, false
	}
	return in, date, true
}

func recordIDs(r *http.Request) (treeID, recordID int, err error) {
	if treeID, err = strconv.Atoi(chi.URLParam(r, "treeId")); err != nil {
		return 0, 0, fmt.Errorf("tree id: %w", err)
	}
	if p := chi.URLParam(r, "recordId"); p != "" {
		if recordID, err = strconv.Atoi(p); err != nil {
			return 0, 0, fmt.Errorf("record id: %w", err)
		}
	}
	return treeID, recordID, nil
}

// CreateRecord adds an inspection record to a tree.
func CreateRecord(w http.ResponseWriter, r *http.Request) {
	treeID, _, err := recordIDs(r)
	if err != nil {
		writeInternal(w, r, "CreateRecord", err)
		return
	}
	in, date, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	rec := TreeRecord{
		TreeID:            treeID,
		RecordType:        in.RecordType,
		RecordDescription: in.RecordDescription,
		RecordDate:        date,
	}
	if err := db.DB.WithContext(r.Context()).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			writeNotFound(w, "Tree not found")
			return
		}
		writeInternal(w, r, "CreateRecord", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Record created successfully", "record": rec})
}

// UpdateRecord replaces the type, description and date of a record.
func UpdateRecord(w http.ResponseWriter, r *http.Request) {
	treeID, recordID, err := recordIDs(r)
	if err != nil {
		writeInternal(w, r, "UpdateRecord", err)
		return
	}
	in, date, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	var rec TreeRecord
	res := db.DB.WithContext(r.Context()).
		Model(&rec).
		Clauses(clause.Returning{}).
		Where("tree_id = ? AND record_id = ?", treeID, recordID).
		Updates(map[string]any{
			"record_type":        in.RecordType,
			"record_description": in.RecordDescription,
			"record_date":        date,
		})
	if res.Error != nil {
		writeInternal(w, r, "UpdateRecord", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeNotFound(w, "Record not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Record updated successfully", "record": rec})
}

// DeleteRecord removes a record and echoes it back.
func DeleteRecord(w http.ResponseWriter, r *http.Request) {
	treeID, recordID, err := recordIDs(r)
	if err != nil {
		writeInternal(w, r, "DeleteRecord", err)
		return
	}

	var rec TreeRecord
	res := db.DB.WithContext(r.Context()).
		Clauses(clause.Returning{}).
		Where("tree_id = ? AND record_id = ?", treeID, recordID).
		Delete(&rec)
	if res.Error != nil {
		writeInternal(w, r, "DeleteRecord", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeNotFound(w, "Record not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Record deleted successfully", "record": rec})
}
