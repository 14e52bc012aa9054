package trees

import (
	"time"
)

// Species is the reference list of tree species.
type Species struct {
	SpeciesID      int    `gorm:"primaryKey" json:"species_id"`
	SpeciesCode    string `gorm:"size:16;index" json:"species_code"`
	ScientificName string `json:"scientific_name"`
	CommonName     string `json:"common_name"`
	IsNative       *bool  `json:"is_native"`
}

func (Species) TableName() string {
	return "tree_data.species"
}

// Tree is a single inventoried tree. Geom is a PostGIS point in WGS84.
type Tree struct {
	TreeID         int      `gorm:"primaryKey" json:"tree_id"`
	Geom           string   `gorm:"type:geometry(Point,4326);index:,type:gist" json:"-"`
	SpeciesID      *int     `gorm:"index" json:"species_id"`
	ActualHeight   *float64 `json:"actual_height"`
	ActualTrunk    *float64 `json:"actual_trunk"`
	ActualSpread   *float64 `json:"actual_spread"`
	SpreadCategory *string  `gorm:"size:32" json:"spread_category"`
	IsPublic       *bool    `json:"is_public"`
	Condition      *string  `gorm:"size:64" json:"condition"`
	ClosestAddress *string  `json:"closest_address"`
}

func (Tree) TableName() string {
	return "tree_data.tree"
}

// UnitOfMeasure holds the display symbol of a benefit unit (kg, L, kWh...).
type UnitOfMeasure struct {
	UnitID     int    `gorm:"primaryKey" json:"unit_id"`
	UnitSymbol string `json:"unit_symbol"`
}

func (UnitOfMeasure) TableName() string {
	return "tree_data.unit_of_measure"
}

type BenefitType struct {
	BenefitTypeID int    `gorm:"primaryKey" json:"benefit_type_id"`
	BenefitName   string `json:"benefit_name"`
	UnitID        int    `json:"unit_id"`
}

func (BenefitType) TableName() string {
	return "tree_data.ecological_benefit_types"
}

// EcologicalBenefit is a measured benefit of one tree for one benefit type.
type EcologicalBenefit struct {
	TreeID        int      `gorm:"primaryKey" json:"tree_id"`
	BenefitTypeID int      `gorm:"primaryKey" json:"benefit_type_id"`
	BenefitValue  *float64 `json:"benefit_value"`
	MonetaryValue *float64 `json:"monetary_value"`
}

func (EcologicalBenefit) TableName() string {
	return "tree_data.ecological_benefit"
}

// TreeRecord is an inspection or activity entry attached to a tree.
type TreeRecord struct {
	RecordID          int        `gorm:"primaryKey" json:"record_id"`
	TreeID            int        `gorm:"not null;index" json:"tree_id"`
	RecordType        *string    `json:"record_type"`
	RecordDescription *string    `json:"record_description"`
	RecordDate        *time.Time `gorm:"type:date" json:"record_date"`
}

func (TreeRecord) TableName() string {
	return "tree_data.tree_record"
}

// ElectoralDivision is a named electoral boundary used to scope statistics.
type ElectoralDivision struct {
	OgcFid   int      `gorm:"column:ogc_fid;primaryKey" json:"ogc_fid"`
	English  string   `json:"english"`
	Geom     string   `gorm:"type:geometry(MultiPolygon,4326)" json:"-"`
	CtrdLat  *float64 `json:"ctrd_lat"`
	CtrdLong *float64 `json:"ctrd_long"`
}

func (ElectoralDivision) TableName() string {
	return "tree_data.electoral_dublin"
}

// Response payloads

type BenefitTotal struct {
	Name               string   `json:"name"`
	TotalValue         *float64 `json:"totalValue"`
	Unit               string   `json:"unit"`
	TotalMonetaryValue *float64 `json:"totalMonetaryValue"`
}

type SpeciesShare struct {
	SpeciesID      int      `json:"speciesId"`
	SpeciesCode    string   `json:"speciesCode"`
	ScientificName string   `json:"scientificName"`
	CommonName     string   `json:"commonName"`
	Percentage     *float64 `json:"percentage"`
}

type Activity struct {
	TreeID      int        `json:"treeId"`
	TreeName    *string    `json:"treeName"`
	Type        *string    `json:"type"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
}

// Statistics is the aggregate payload shared by the division and filter endpoints.
type Statistics struct {
	ElectoralName       string         `json:"electoralName"`
	TotalTrees          int64          `json:"totalTrees"`
	TotalSpecies        int64          `json:"totalSpecies"`
	MostCommonSpecies   *string        `json:"mostCommonSpecies"`
	PublicPercentage    int64          `json:"publicPercentage"`
	PrivatePercentage   int64          `json:"privatePercentage"`
	NativePercentage    int64          `json:"nativePercentage"`
	NonNativePercentage int64          `json:"nonNativePercentage"`
	EcologicalBenefits  []BenefitTotal `json:"ecologicalBenefits"`
	SpeciesComposition  []SpeciesShare `json:"speciesComposition"`
	Activities          []Activity     `json:"activities"`
}

// FilterStatistics adds the ids of matching trees, used by the map to hide the rest.
type FilterStatistics struct {
	TreeIDs []int `json:"treeIds"`
	Statistics
}

type SpeciesOut struct {
	SpeciesCommonName     string `json:"speciesCommonName"`
	SpeciesScientificName string `json:"speciesScientificName"`
	SpeciesImageURL       string `json:"speciesImageUrl"`
}

type BenefitOut struct {
	Name     string   `json:"name"`
	Value    *float64 `json:"value"`
	Unit     string   `json:"unit"`
	Monetary *float64 `json:"monetary"`
}

type InspectionOut struct {
	RecordID    int        `json:"recordId"`
	Date        *time.Time `json:"date"`
	Type        *string    `json:"type"`
	Description *string    `json:"description"`
}

type TreeDetail struct {
	TreeID             int             `json:"treeId"`
	ClosestAddress     *string         `json:"closestAddress"`
	Height             *float64        `json:"height"`
	TrunkDiameter      *float64        `json:"trunkDiameter"`
	CanopySpread       *float64        `json:"canopySpread"`
	Condition          *string         `json:"condition"`
	GeomWKT            string          `json:"geomWKT"`
	Species            SpeciesOut      `json:"species"`
	EcologicalBenefits []BenefitOut    `json:"ecologicalBenefits"`
	Inspections        []InspectionOut `json:"inspections"`
}

type ConditionOut struct {
	Condition string `json:"condition"`
}

// StyleCombination is one distinct (species, spread category, visibility) triple.
type StyleCombination struct {
	SpeciesID      *int   `json:"species_id"`
	SpreadCategory string `json:"spread_category"`
	IsPublic       *bool  `json:"is_public"`
}

type ElectoralLabel struct {
	OgcFid   int      `json:"ogc_fid"`
	English  string   `json:"english"`
	CtrdLat  *float64 `json:"ctrd_lat"`
	CtrdLong *float64 `json:"ctrd_long"`
}
