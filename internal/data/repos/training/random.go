package training

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// randomOrder returns the dialect's ORDER BY expression for a uniform sample.
func randomOrder(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// lockingClause returns a FOR UPDATE clause on dialects that support row locks.
func lockingClause(db *gorm.DB) []clause.Expression {
	if db.Dialector == nil {
		return nil
	}
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return []clause.Expression{clause.Locking{Strength: clause.LockingStrengthUpdate}}
	default:
		return nil
	}
}
