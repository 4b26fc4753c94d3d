package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/hostel-management/internal/model"
)

// AllocationRepo provides access to the room_allocations table.  All write
// methods run inside a caller-owned transaction; the caller must commit or
// roll back.
type AllocationRepo struct {
    db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// RoomForRollTx returns the room currently allocated to rollNo and locks
// the allocation row.  ok is false when the student holds no room.
func (r *AllocationRepo) RoomForRollTx(ctx context.Context, tx *sql.Tx, rollNo string) (roomID uint64, ok bool, err error) {
    err = tx.QueryRowContext(ctx,
        `SELECT room_id FROM room_allocations WHERE roll_no = ? FOR UPDATE`, rollNo,
    ).Scan(&roomID)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return roomID, true, nil
}

// CountByRoomTx counts the current occupants of a room.  Call it after the
// room row has been locked so the count cannot change before the insert.
func (r *AllocationRepo) CountByRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_allocations WHERE room_id = ?`, roomID).Scan(&n)
    return n, err
}

// CreateTx inserts an allocation.  The unique index on roll_no turns a
// racing second allocation for the same student into ErrDuplicate.
func (r *AllocationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rollNo string, roomID uint64, at time.Time) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO room_allocations (roll_no, room_id, allocated_at) VALUES (?, ?, ?)`,
        rollNo, roomID, at.UTC(),
    )
    if err != nil && isDuplicateKey(err) {
        return ErrDuplicate
    }
    return err
}

// DeleteTx removes the allocation of rollNo in roomID and reports whether
// a row was deleted.
func (r *AllocationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, rollNo string, roomID uint64) (bool, error) {
    res, err := tx.ExecContext(ctx, `DELETE FROM room_allocations WHERE roll_no = ? AND room_id = ?`, rollNo, roomID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// RollsByRoomTx lists the roll numbers allocated to a room.
func (r *AllocationRepo) RollsByRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) ([]string, error) {
    rows, err := tx.QueryContext(ctx, `SELECT roll_no FROM room_allocations WHERE room_id = ? ORDER BY allocated_at, roll_no`, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var rolls []string
    for rows.Next() {
        var roll string
        if err := rows.Scan(&roll); err != nil {
            return nil, err
        }
        rolls = append(rolls, roll)
    }
    return rolls, rows.Err()
}

// DeleteByRoomTx removes every allocation of a room.
func (r *AllocationRepo) DeleteByRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM room_allocations WHERE room_id = ?`, roomID)
    return err
}

// OccupantsByRoom returns the occupant roll numbers of each requested
// room, ordered by allocation time then roll number.  Rooms without
// occupants are absent from the map.  One query covers all rooms.
func (r *AllocationRepo) OccupantsByRoom(ctx context.Context, roomIDs []uint64) (map[uint64][]string, error) {
    out := make(map[uint64][]string, len(roomIDs))
    if len(roomIDs) == 0 {
        return out, nil
    }
    args := make([]any, 0, len(roomIDs))
    for _, id := range roomIDs {
        args = append(args, id)
    }
    q := `SELECT room_id, roll_no FROM room_allocations
          WHERE room_id IN (` + placeholders(len(roomIDs)) + `)
          ORDER BY room_id, allocated_at, roll_no`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var roomID uint64
        var roll string
        if err := rows.Scan(&roomID, &roll); err != nil {
            return nil, err
        }
        out[roomID] = append(out[roomID], roll)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// GetByRoll returns the allocation of a student together with the room it
// points at.  It returns sql.ErrNoRows when the student holds no room.
func (r *AllocationRepo) GetByRoll(ctx context.Context, rollNo string) (*model.Allocation, *model.Room, error) {
    const q = `SELECT a.id, a.roll_no, a.room_id, a.allocated_at,
                      rm.id, rm.hostel_name, rm.room_no, rm.floor, rm.category, rm.capacity, rm.created_at
               FROM room_allocations a
               JOIN rooms rm ON rm.id = a.room_id
               WHERE a.roll_no = ?`
    var a model.Allocation
    var rm model.Room
    var category sql.NullString
    err := r.db.QueryRowContext(ctx, q, rollNo).Scan(
        &a.ID, &a.RollNo, &a.RoomID, &a.AllocatedAt,
        &rm.ID, &rm.HostelName, &rm.RoomNo, &rm.Floor, &category, &rm.Capacity, &rm.CreatedAt,
    )
    if err != nil {
        return nil, nil, err
    }
    rm.Category = category.String
    return &a, &rm, nil
}
