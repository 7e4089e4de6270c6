package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func Unread(db *gorm.DB) *gorm.DB {
	return db.Where("is_read = ?", false)
}

// ActiveUsers skips blocked accounts when fanning out notifications.
func ActiveUsers(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "active")
}

// Paginate caps limit at 100 and falls back to 20.
func Paginate(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit).Offset(offset)
	}
}
