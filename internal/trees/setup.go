package trees

import (
	"fmt"
	"log"
	"os"

	"github.com/futaoo/INTERVAL/internal/cache"
	"github.com/futaoo/INTERVAL/internal/db"
	"gorm.io/gorm"
)

// Lists caches the reference-list endpoints. A nil cache always loads from the database.
var Lists *cache.Cache

func Init(c *cache.Cache) {
	Lists = c

	if os.Getenv("AUTO_MIGRATE") != "true" {
		return
	}
	if err := Migrate(db.DB); err != nil {
		log.Fatal("Failed to migrate tree_data: ", err)
	}
	log.Println("[trees] schema migrated")
}

// Migrate creates the tree_data schema, the postgis extension and the tables.
func Migrate(d *gorm.DB) error {
	if err := db.EnsureExtension(d, "postgis"); err != nil {
		return err
	}
	if err := db.EnsureSchema(d, "tree_data"); err != nil {
		return err
	}
	if err := d.AutoMigrate(
		&Species{},
		&UnitOfMeasure{},
		&BenefitType{},
		&Tree{},
		&EcologicalBenefit{},
		&TreeRecord{},
		&ElectoralDivision{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	// AutoMigrate does not add the record -> tree foreign key without an association field.
	return d.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_tree_record_tree') THEN
				ALTER TABLE tree_data.tree_record
					ADD CONSTRAINT fk_tree_record_tree FOREIGN KEY (tree_id)
					REFERENCES tree_data.tree (tree_id) ON DELETE CASCADE;
			END IF;
		END $$;
	`).Error
}
