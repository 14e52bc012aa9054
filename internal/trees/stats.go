package trees

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const treeIDsQuery = `
	SELECT t.tree_id
	FROM tree_data.tree t
	LEFT JOIN tree_data.species s ON t.species_id = s.species_id
	WHERE %s
	ORDER BY t.tree_id
`

// The most-common-species subquery re-binds the same predicate to t2/s2.
const summaryQuery = `
	SELECT
		COUNT(t.tree_id) AS total_trees,
		COUNT(DISTINCT t.species_id) AS total_species,
		(SELECT s2.common_name
		 FROM tree_data.species s2
		 JOIN tree_data.tree t2 ON s2.species_id = t2.species_id
		 WHERE %s
		 GROUP BY s2.common_name
		 ORDER BY COUNT(*) DESC, s2.common_name
		 LIMIT 1) AS most_common_species,
		COALESCE(COUNT(t.tree_id) FILTER (WHERE t.is_public = TRUE) * 100 / NULLIF(COUNT(t.tree_id), 0), 0) AS public_percentage,
		COALESCE(COUNT(t.tree_id) FILTER (WHERE t.is_public = FALSE) * 100 / NULLIF(COUNT(t.tree_id), 0), 0) AS private_percentage,
		COALESCE(COUNT(t.tree_id) FILTER (WHERE s.is_native = TRUE) * 100 / NULLIF(COUNT(t.tree_id), 0), 0) AS native_percentage,
		COALESCE(COUNT(t.tree_id) FILTER (WHERE s.is_native = FALSE) * 100 / NULLIF(COUNT(t.tree_id), 0), 0) AS non_native_percentage
	FROM tree_data.tree t
	LEFT JOIN tree_data.species s ON t.species_id = s.species_id
	WHERE %s
`

const compositionQuery = `
	SELECT
		s.species_id,
		s.species_code,
		s.scientific_name,
		s.common_name,
		COUNT(t.tree_id) * 100.0 / NULLIF(total.total_trees, 0) AS percentage
	FROM tree_data.species s
	JOIN tree_data.tree t ON s.species_id = t.species_id
	CROSS JOIN (
		SELECT COUNT(t3.tree_id) AS total_trees
		FROM tree_data.tree t3
		LEFT JOIN tree_data.species s3 ON t3.species_id = s3.species_id
		WHERE %s
	) total
	WHERE %s
	GROUP BY s.species_id, s.species_code, s.scientific_name, s.common_name, total.total_trees
	ORDER BY percentage DESC, s.species_id
`

const benefitsQuery = `
	SELECT
		bt.benefit_name,
		SUM(eb.benefit_value) AS total_value,
		SUM(eb.monetary_value) AS total_monetary_value,
		u.unit_symbol
	FROM tree_data.ecological_benefit eb
	JOIN tree_data.ecological_benefit_types bt ON eb.benefit_type_id = bt.benefit_type_id
	JOIN tree_data.unit_of_measure u ON bt.unit_id = u.unit_id
	JOIN tree_data.tree t ON eb.tree_id = t.tree_id
	LEFT JOIN tree_data.species s ON t.species_id = s.species_id
	WHERE %s
	GROUP BY bt.benefit_name, u.unit_symbol
	ORDER BY bt.benefit_name
`

const activitiesQuery = `
	SELECT
		t.tree_id,
		s.common_name AS tree_name,
		r.record_type,
		r.record_description,
		r.record_date
	FROM tree_data.tree_record r
	JOIN tree_data.tree t ON r.tree_id = t.tree_id
	LEFT JOIN tree_data.species s ON t.species_id = s.species_id
	WHERE %s
	ORDER BY r.record_date DESC NULLS LAST, r.record_id DESC
`

type summaryRow struct {
	TotalTrees          int64
	TotalSpecies        int64
	MostCommonSpecies   *string
	PublicPercentage    int64
	PrivatePercentage   int64
	NativePercentage    int64
	NonNativePercentage int64
}

type compositionRow struct {
	SpeciesID      int
	SpeciesCode    string
	ScientificName string
	CommonName     string
	Percentage     *float64
}

type benefitRow struct {
	BenefitName        string
	TotalValue         *float64
	TotalMonetaryValue *float64
	UnitSymbol         string
}

type activityRow struct {
	TreeID            int
	TreeName          *string
	RecordType        *string
	RecordDescription *string
	RecordDate        *time.Time
}

// queryTimings collects per-query durations for the Server-Timing header.
type queryTimings [][2]string

func (q *queryTimings) track(name string, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	*q = append(*q, [2]string{name, fmt.Sprintf("%.1f", ms)})
}

// SummaryQuery returns the summary SQL bound to p; exposed for inspection in tests.
func SummaryQuery(p Predicate) string {
	return fmt.Sprintf(summaryQuery, p.Where("t2", "s2"), p.Where("t", "s"))
}

// CompositionQuery returns the species composition SQL bound to p.
func CompositionQuery(p Predicate) string {
	return fmt.Sprintf(compositionQuery, p.Where("t3", "s3"), p.Where("t", "s"))
}

// loadStatistics runs every aggregate against one read-only snapshot so the
// counts, composition, benefits and activities describe the same rows.
func loadStatistics(ctx context.Context, conn *gorm.DB, p Predicate, withIDs bool) (FilterStatistics, queryTimings, error) {
	var out FilterStatistics
	var timings queryTimings
	args := p.Args()
	where := p.Where("t", "s")

	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if withIDs {
			start := time.Now()
			ids := []int{}
			if err := tx.Raw(fmt.Sprintf(treeIDsQuery, where), args).Scan(&ids).Error; err != nil {
				return fmt.Errorf("tree ids: %w", err)
			}
			out.TreeIDs = ids
			timings.track("ids", start)
		}

		start := time.Now()
		var sum summaryRow
		if err := tx.Raw(SummaryQuery(p), args).Scan(&sum).Error; err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		timings.track("summary", start)

		start = time.Now()
		var comp []compositionRow
		if err := tx.Raw(CompositionQuery(p), args).Scan(&comp).Error; err != nil {
			return fmt.Errorf("species composition: %w", err)
		}
		timings.track("composition", start)

		start = time.Now()
		var benefits []benefitRow
		if err := tx.Raw(fmt.Sprintf(benefitsQuery, where), args).Scan(&benefits).Error; err != nil {
			return fmt.Errorf("ecological benefits: %w", err)
		}
		timings.track("benefits", start)

		start = time.Now()
		var acts []activityRow
		if err := tx.Raw(fmt.Sprintf(activitiesQuery, where), args).Scan(&acts).Error; err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		timings.track("activities", start)

		out.Statistics = buildStatistics(sum, comp, benefits, acts)
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return FilterStatistics{}, nil, err
	}

	return out, timings, nil
}

func buildStatistics(sum summaryRow, comp []compositionRow, benefits []benefitRow, acts []activityRow) Statistics {
	st := Statistics{
		TotalTrees:          sum.TotalTrees,
		TotalSpecies:        sum.TotalSpecies,
		MostCommonSpecies:   sum.MostCommonSpecies,
		PublicPercentage:    sum.PublicPercentage,
		PrivatePercentage:   sum.PrivatePercentage,
		NativePercentage:    sum.NativePercentage,
		NonNativePercentage: sum.NonNativePercentage,
		EcologicalBenefits:  make([]BenefitTotal, 0, len(benefits)),
		SpeciesComposition:  make([]SpeciesShare, 0, len(comp)),
		Activities:          make([]Activity, 0, len(acts)),
	}

	for _, b := range benefits {
		st.EcologicalBenefits = append(st.EcologicalBenefits, BenefitTotal{
			Name:               b.BenefitName,
			TotalValue:         b.TotalValue,
			Unit:               b.UnitSymbol,
			TotalMonetaryValue: b.TotalMonetaryValue,
		})
	}
	for _, c := range comp {
		st.SpeciesComposition = append(st.SpeciesComposition, SpeciesShare{
			SpeciesID:      c.SpeciesID,
			SpeciesCode:    c.SpeciesCode,
			ScientificName: c.ScientificName,
			CommonName:     c.CommonName,
			Percentage:     c.Percentage,
		})
	}
	for _, a := range acts {
		st.Activities = append(st.Activities, Activity{
			TreeID:      a.TreeID,
			TreeName:    a.TreeName,
			Type:        a.RecordType,
			Description: a.RecordDescription,
			Date:        a.RecordDate,
		})
	}

	return st
}
