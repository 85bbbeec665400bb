package model

// CellType is a category of equipment such as "locker-small".  Cell
// types are read-mostly reference data maintained by admins.
type CellType struct {
	ID   uint64 `db:"id" json:"id"`     // cell_types.id
	Name string `db:"name" json:"name"` // cell_types.name
}

// Cell is a physical locker slot.  IsTaken is the logical reservation
// flag: a cell can be allocated to a new lease only while it is false.
// IsEmpty mirrors the physical door state and is independent of the
// reservation, so a cell can be taken but not yet opened for pickup.
//
// Fields:
//  ID      – primary key identifier.
//  TypeID  – references cell_types.id.
//  IsTaken – reserved by an open lease.
//  IsEmpty – door opened and equipment picked up.
type Cell struct {
	ID      uint64 `db:"id" json:"id"`             // cells.id
	TypeID  uint64 `db:"type_id" json:"type_id"`   // cells.type_id
	IsTaken bool   `db:"is_taken" json:"is_taken"` // cells.is_taken
	IsEmpty bool   `db:"is_empty" json:"is_empty"` // cells.is_empty
}

// Free reports whether the cell may be allocated to a new lease.
func (c Cell) Free() bool { return !c.IsTaken }
