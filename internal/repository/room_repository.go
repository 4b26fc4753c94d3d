package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors.Is for sql.ErrNoRows

	"github.com/iliyamo/hostel-management/internal/model"
)

// RoomFilter narrows ListRooms.  Empty fields (or "all") mean no filter.
type RoomFilter struct {
	HostelName string
	Floor      string
}

// RoomRepo provides methods to create, read, update and delete rooms.
type RoomRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the handle so services can open transactions spanning
// several repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = `id, hostel_name, room_no, floor, category, capacity, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (*model.Room, error) {
	var rm model.Room
	var category sql.NullString
	if err := s.Scan(&rm.ID, &rm.HostelName, &rm.RoomNo, &rm.Floor, &category, &rm.Capacity, &rm.CreatedAt); err != nil {
		return nil, err
	}
	rm.Category = category.String
	return &rm, nil
}

// Create inserts a new room and reads it back so CreatedAt is populated.
// A second room with the same hostel and number yields ErrDuplicate.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const qInsert = `INSERT INTO rooms (hostel_name, room_no, floor, category, capacity) VALUES (?, ?, ?, ?, ?)`
	var category sql.NullString
	if rm.Category != "" {
		category = sql.NullString{String: rm.Category, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, qInsert, rm.HostelName, rm.RoomNo, rm.Floor, category, rm.Capacity)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*rm = *stored
	return nil
}

// List returns rooms ordered by hostel, floor and room number.  Filters
// with an empty value or "all" are ignored; the others are combined with AND.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE 1=1`
	args := make([]any, 0, 2)
	if f.HostelName != "" && f.HostelName != "all" {
		q += ` AND hostel_name = ?`
		args = append(args, f.HostelName)
	}
	if f.Floor != "" && f.Floor != "all" {
		q += ` AND floor = ?`
		args = append(args, f.Floor)
	}
	q += ` ORDER BY hostel_name, floor, room_no`
	return r.query(ctx, q, args...)
}

// ListByOccupant returns the rooms in which rollNo currently holds an
// allocation (zero or one room given the unique roll_no index).
func (r *RoomRepo) ListByOccupant(ctx context.Context, rollNo string) ([]model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms
	           WHERE id IN (SELECT room_id FROM room_allocations WHERE roll_no = ?)
	           ORDER BY hostel_name, floor, room_no`
	return r.query(ctx, q, rollNo)
}

func (r *RoomRepo) query(ctx context.Context, q string, args ...any) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDForUpdateTx loads a room and takes a row lock on it for the rest
// of the transaction.  Concurrent allocations to the same room queue up
// behind this lock, which keeps the occupancy check and the insert atomic.
// Returns ErrRoomNotFound when no row matches.
func (r *RoomRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Room, error) {
	rm, err := scanRoom(tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// UpdateCapacityTx overwrites the capacity of a room.  Callers lock and
// verify the room first; RowsAffected is not used because MySQL reports 0
// when the value does not change.
func (r *RoomRepo) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, capacity int) error {
	_, err := tx.ExecContext(ctx, `UPDATE rooms SET capacity = ? WHERE id = ?`, capacity, id)
	return err
}

// DeleteTx removes the room row.  Allocations must be removed first in the
// same transaction (foreign key).
func (r *RoomRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	return err
}
