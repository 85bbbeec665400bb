package model

// DailyCount is one point of a per-day growth series (users registered
// or leases started on Date, formatted YYYY-MM-DD).
type DailyCount struct {
	Date  string `db:"day" json:"date"`
	Count int    `db:"cnt" json:"count"`
}

// TypeRatio reports how many cells of a type are free out of the total.
type TypeRatio struct {
	TypeID uint64 `db:"type_id" json:"id"`
	Name   string `db:"name" json:"name"`
	Free   int    `db:"free" json:"free"`
	Total  int    `db:"total" json:"total"`
}

// TypeCount is the number of leases ever created for a cell type.
type TypeCount struct {
	TypeID uint64 `db:"type_id" json:"type_id"`
	Name   string `db:"name" json:"name"`
	Count  int    `db:"cnt" json:"count"`
}

// TypeDateCount is the number of leases created for a cell type on one day.
type TypeDateCount struct {
	TypeID uint64 `db:"type_id" json:"type_id"`
	Name   string `db:"name" json:"name"`
	Date   string `db:"day" json:"date"`
	Count  int    `db:"cnt" json:"count"`
}
