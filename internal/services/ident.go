package services

import "gorm.io/gorm"

// qcol quotes a column name for use in raw query fragments. The requirement
// columns "key" and "rank" are reserved words in MySQL 8, so every raw
// Where/Select/Order touching them must go through this.
func qcol(db *gorm.DB, name string) string {
	return quoteIdent(db.Dialector.Name(), name)
}

// quoteIdent quotes per dialect: backticks on MySQL, the double-quoted form
// on sqlite and postgres.
func quoteIdent(dialect, name string) string {
	if dialect == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}
