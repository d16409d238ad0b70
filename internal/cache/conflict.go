package cache

import "gorm.io/gorm/clause"

// onConflictUpdateName builds the upsert clause for Store: a second Store
// call for the same (BaseID, Mangled) pair updates SpecializedName in place
// rather than erroring on the unique index.
func onConflictUpdateName() clause.Expression {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_id"}, {Name: "mangled"}},
		DoUpdates: clause.AssignmentColumns([]string{"specialized_name"}),
	}
}
