package cursor

import "gorm.io/gorm"

// After returns a GORM scope restricting rows to those strictly after k in
// (timeCol DESC, idCol DESC) order, and applying that order with a limit.
// A nil k selects from the start.
func After(k *Key, timeCol, idCol string, limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if k != nil {
			db = db.Where("("+timeCol+" < ? OR ("+timeCol+" = ? AND "+idCol+" < ?))", k.T, k.T, k.ID)
		}
		return db.Order(timeCol + " DESC").Order(idCol + " DESC").Limit(limit + 1)
	}
}
