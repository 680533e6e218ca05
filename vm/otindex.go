package vm

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"
)

// OTIndex mirrors every live object-table entry (oop, class, segment,
// location, size, refcount, pointer flag) into an in-memory SQLite
// database so "every instance of class X" can be asked with SQL instead
// of a full heap scan, per SPEC_FULL.md's domain-stack item. It records
// no references between objects, so it cannot answer which objects point
// at a given oop. It is a cache, never a source of truth — WordMemory
// stays authoritative, and Refresh rebuilds the mirror from scratch each
// time it is called.
type OTIndex struct {
	db *sql.DB
}

// NewOTIndex opens an in-memory SQLite database and creates the mirror
// table.
func NewOTIndex() (*OTIndex, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "otindex: opening database")
	}
	const schema = `
CREATE TABLE objects (
	oop INTEGER PRIMARY KEY,
	class_oop INTEGER NOT NULL,
	segment INTEGER NOT NULL,
	location INTEGER NOT NULL,
	size_words INTEGER NOT NULL,
	ref_count INTEGER NOT NULL,
	is_pointers INTEGER NOT NULL
);
CREATE INDEX idx_objects_class ON objects(class_oop);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "otindex: creating schema")
	}
	return &OTIndex{db: db}, nil
}

// Close releases the underlying SQLite connection.
func (idx *OTIndex) Close() error { return idx.db.Close() }

// Refresh truncates and repopulates the mirror from vm's current
// WordMemory state.
func (idx *OTIndex) Refresh(vm *Interpreter) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return errors.Wrap(err, "otindex: beginning refresh")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM objects`); err != nil {
		return errors.Wrap(err, "otindex: clearing mirror")
	}
	stmt, err := tx.Prepare(`INSERT INTO objects(oop, class_oop, segment, location, size_words, ref_count, is_pointers) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "otindex: preparing insert")
	}
	defer stmt.Close()

	for oop := Oop(2 * (LastSpecialOop + 1)); oop < Oop(objectTableSize); oop += 2 {
		if vm.Mem.Free(oop) {
			continue
		}
		isPointers := 0
		if vm.Mem.IsPointers(oop) {
			isPointers = 1
		}
		if _, err := stmt.Exec(
			int(oop), int(vm.Mem.ClassBits(oop)), vm.Mem.Segment(oop), vm.Mem.Location(oop),
			vm.Mem.SizeWords(oop), vm.Mem.RefCount(oop), isPointers,
		); err != nil {
			return errors.Wrap(err, "otindex: inserting row")
		}
	}
	return tx.Commit()
}

// InstancesOf returns every live oop whose class is classOop, in oop
// order, as of the last Refresh.
func (idx *OTIndex) InstancesOf(classOop Oop) ([]Oop, error) {
	rows, err := idx.db.Query(`SELECT oop FROM objects WHERE class_oop = ? ORDER BY oop`, int(classOop))
	if err != nil {
		return nil, errors.Wrap(err, "otindex: querying instances")
	}
	defer rows.Close()
	var out []Oop
	for rows.Next() {
		var oop int
		if err := rows.Scan(&oop); err != nil {
			return nil, errors.Wrap(err, "otindex: scanning row")
		}
		out = append(out, Oop(oop))
	}
	return out, rows.Err()
}

// Summary reports aggregate heap occupancy, used by the debugger's
// memory panel.
type OTSummary struct {
	LiveObjects int
	TotalWords  int
}

// Summary computes the current mirror's aggregate stats.
func (idx *OTIndex) Summary() (OTSummary, error) {
	var s OTSummary
	row := idx.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size_words), 0) FROM objects`)
	if err := row.Scan(&s.LiveObjects, &s.TotalWords); err != nil {
		return s, errors.Wrap(err, "otindex: querying summary")
	}
	return s, nil
}
