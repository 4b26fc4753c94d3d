// Package allocation owns the room inventory and the assignment of
// students to rooms.  Two invariants hold after every committed call: a
// roll number appears in at most one allocation, and no room holds more
// allocations than its capacity.  Both are enforced inside one database
// transaction per operation; the room row is locked with SELECT ... FOR
// UPDATE so concurrent allocations to the same room serialize.
package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/hostel-management/internal/apperr"
	"github.com/iliyamo/hostel-management/internal/database"
	"github.com/iliyamo/hostel-management/internal/model"
	"github.com/iliyamo/hostel-management/internal/repository"
	"github.com/iliyamo/hostel-management/internal/service"
)

// Allocator implements room inventory and allocation operations.
type Allocator struct {
	db       *sql.DB
	rooms    *repository.RoomRepo
	allocs   *repository.AllocationRepo
	students *repository.StudentRepo
	notifier service.Notifier
	now      func() time.Time
}

// New builds an Allocator on db.  A nil notifier disables notifications.
func New(db *sql.DB, notifier service.Notifier) *Allocator {
	if notifier == nil {
		notifier = service.Nop{}
	}
	return &Allocator{
		db:       db,
		rooms:    repository.NewRoomRepo(db),
		allocs:   repository.NewAllocationRepo(db),
		students: repository.NewStudentRepo(db),
		notifier: notifier,
		now:      time.Now,
	}
}

// RoomFilter selects rooms for ListRooms.  When RollNo is set only the
// room holding that student is returned and the other fields are ignored.
// Empty values and "all" mean no filter.
type RoomFilter struct {
	HostelName string
	Floor      string
	RollNo     string
}

// NewRoom is the input of AddRoom.
type NewRoom struct {
	HostelName string `json:"hostel_name" validate:"required"`
	RoomNo     string `json:"room_no" validate:"required"`
	Floor      string `json:"floor" validate:"required"`
	Category   string `json:"category"`
	Capacity   int    `json:"capacity" validate:"required,min=1"`
}

// CapacityChange is the outcome of UpdateCapacity.  OverCapacity is set
// when the room now holds more students than the new capacity; the
// existing allocations are kept.
type CapacityChange struct {
	Room         model.RoomOccupancy `json:"room"`
	OverCapacity bool                `json:"over_capacity"`
}

// ListRooms returns rooms with their occupants ordered by hostel, floor and
// room number.
func (a *Allocator) ListRooms(ctx context.Context, f RoomFilter) ([]model.RoomOccupancy, error) {
	var (
		rooms []model.Room
		err   error
	)
	if roll := strings.TrimSpace(f.RollNo); roll != "" {
		rooms, err = a.rooms.ListByOccupant(ctx, roll)
	} else {
		rooms, err = a.rooms.List(ctx, repository.RoomFilter{
			HostelName: strings.TrimSpace(f.HostelName),
			Floor:      strings.TrimSpace(f.Floor),
		})
	}
	if err != nil {
		return nil, apperr.Persistence("list rooms", err)
	}
	ids := make([]uint64, 0, len(rooms))
	for _, rm := range rooms {
		ids = append(ids, rm.ID)
	}
	occ, err := a.allocs.OccupantsByRoom(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence("list rooms", err)
	}
	out := make([]model.RoomOccupancy, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, occupancy(rm, occ[rm.ID]))
	}
	return out, nil
}

func occupancy(rm model.Room, rolls []string) model.RoomOccupancy {
	if rolls == nil {
		rolls = []string{}
	}
	return model.RoomOccupancy{
		Room:             rm,
		OccupantRolls:    rolls,
		CurrentOccupants: len(rolls),
		Remaining:        rm.Capacity - len(rolls),
	}
}

// AddRoom stores a new, empty room.
func (a *Allocator) AddRoom(ctx context.Context, in NewRoom) (*model.Room, error) {
	in.HostelName = strings.TrimSpace(in.HostelName)
	in.RoomNo = strings.TrimSpace(in.RoomNo)
	in.Floor = strings.TrimSpace(in.Floor)
	in.Category = strings.TrimSpace(in.Category)
	if err := apperr.Struct(in); err != nil {
		return nil, err
	}
	rm := &model.Room{
		HostelName: in.HostelName,
		RoomNo:     in.RoomNo,
		Floor:      in.Floor,
		Category:   in.Category,
		Capacity:   in.Capacity,
	}
	if err := a.rooms.Create(ctx, rm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(fmt.Sprintf("room %s already exists in %s", in.RoomNo, in.HostelName))
		}
		return nil, apperr.Persistence("add room", err)
	}
	return rm, nil
}

// UpdateCapacity overwrites a room's capacity.  Shrinking below the current
// occupancy is allowed and reported through CapacityChange.OverCapacity.
func (a *Allocator) UpdateCapacity(ctx context.Context, roomID uint64, capacity int) (*CapacityChange, error) {
	if roomID == 0 {
		return nil, apperr.Validation("room_id", "room_id is required")
	}
	if capacity < 0 {
		return nil, apperr.Validation("capacity", "capacity must not be negative")
	}
	var res CapacityChange
	err := database.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		rm, err := a.lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if err := a.rooms.UpdateCapacityTx(ctx, tx, roomID, capacity); err != nil {
			return err
		}
		rolls, err := a.allocs.RollsByRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		rm.Capacity = capacity
		res.Room = occupancy(*rm, rolls)
		res.OverCapacity = len(rolls) > capacity
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("update capacity", err)
	}
	if res.OverCapacity {
		log.Printf("allocation: room %d capacity %d is below occupancy %d", roomID, capacity, res.Room.CurrentOccupants)
	}
	return &res, nil
}

// DeleteRoom removes a room together with its allocations and clears the
// hostel/room labels of the evicted students.  It returns the evicted roll
// numbers.
func (a *Allocator) DeleteRoom(ctx context.Context, roomID uint64) ([]string, error) {
	if roomID == 0 {
		return nil, apperr.Validation("room_id", "room_id is required")
	}
	var (
		room    *model.Room
		evicted []string
	)
	err := database.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		rm, err := a.lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		room = rm
		if evicted, err = a.allocs.RollsByRoomTx(ctx, tx, roomID); err != nil {
			return err
		}
		if err := a.allocs.DeleteByRoomTx(ctx, tx, roomID); err != nil {
			return err
		}
		if err := a.students.ClearRoomLabelsTx(ctx, tx, evicted...); err != nil {
			return err
		}
		return a.rooms.DeleteTx(ctx, tx, roomID)
	})
	if err != nil {
		return nil, apperr.Persistence("delete room", err)
	}
	if evicted == nil {
		evicted = []string{}
	}
	service.Dispatch(ctx, a.notifier, model.Notification{
		RecipientType: model.RecipientAdmin,
		AlertType:     "Room",
		Title:         "Room deleted",
		Message:       fmt.Sprintf("Room %s (%s) deleted; %d student(s) vacated", room.RoomNo, room.HostelName, len(evicted)),
	})
	return evicted, nil
}

// Allocate assigns rollNo to roomID.  It fails with AlreadyAllocated when
// the student holds any room, NotFound when the student or room does not
// exist and RoomFull when the room has no free bed.  On success the room's
// hostel name and number are copied onto the student's application and
// profile in the same transaction.
func (a *Allocator) Allocate(ctx context.Context, rollNo string, roomID uint64) (*model.Allocation, error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return nil, apperr.Validation("roll_no", "roll_no is required")
	}
	if roomID == 0 {
		return nil, apperr.Validation("room_id", "room_id is required")
	}
	at := a.now().UTC()
	var (
		room   *model.Room
		userID uint64
	)
	err := database.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		if _, held, err := a.allocs.RoomForRollTx(ctx, tx, rollNo); err != nil {
			return err
		} else if held {
			return apperr.AlreadyAllocated()
		}
		id, ok, err := a.students.UserIDTx(ctx, tx, rollNo)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("student")
		}
		userID = id
		rm, err := a.lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		room = rm
		n, err := a.allocs.CountByRoomTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if n >= rm.Capacity {
			return apperr.RoomFull()
		}
		if err := a.allocs.CreateTx(ctx, tx, rollNo, roomID, at); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.AlreadyAllocated()
			}
			return err
		}
		return a.students.SetRoomLabelsTx(ctx, tx, rollNo, rm.HostelName, rm.RoomNo)
	})
	if err != nil {
		return nil, apperr.Persistence("allocate", err)
	}
	service.Dispatch(ctx, a.notifier, model.Notification{
		UserID:        &userID,
		RecipientType: model.RecipientStudent,
		AlertType:     "Allocation",
		Title:         "Room allocated",
		Message:       fmt.Sprintf("You have been allocated room %s in %s.", room.RoomNo, room.HostelName),
	})
	return &model.Allocation{RollNo: rollNo, RoomID: roomID, AllocatedAt: at}, nil
}

// Vacate removes the allocation of rollNo in roomID.  When nothing matched
// the call succeeds with vacated=false and the labels are left untouched.
func (a *Allocator) Vacate(ctx context.Context, rollNo string, roomID uint64) (vacated bool, err error) {
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return false, apperr.Validation("roll_no", "roll_no is required")
	}
	if roomID == 0 {
		return false, apperr.Validation("room_id", "room_id is required")
	}
	var (
		userID uint64
		known  bool
	)
	err = database.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		deleted, err := a.allocs.DeleteTx(ctx, tx, rollNo, roomID)
		if err != nil || !deleted {
			return err
		}
		vacated = true
		if err := a.students.ClearRoomLabelsTx(ctx, tx, rollNo); err != nil {
			return err
		}
		userID, known, err = a.students.UserIDTx(ctx, tx, rollNo)
		return err
	})
	if err != nil {
		return false, apperr.Persistence("vacate", err)
	}
	if vacated && known {
		service.Dispatch(ctx, a.notifier, model.Notification{
			UserID:        &userID,
			RecipientType: model.RecipientStudent,
			AlertType:     "Allocation",
			Title:         "Room vacated",
			Message:       "Your room allocation has been removed.",
		})
	}
	return vacated, nil
}

// RoomOf returns the room currently allocated to rollNo, or nil when the
// student holds none.
func (a *Allocator) RoomOf(ctx context.Context, rollNo string) (*model.Room, error) {
	_, rm, err := a.allocs.GetByRoll(ctx, rollNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("room of student", err)
	}
	return rm, nil
}

func (a *Allocator) lockRoom(ctx context.Context, tx *sql.Tx, roomID uint64) (*model.Room, error) {
	rm, err := a.rooms.GetByIDForUpdateTx(ctx, tx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, apperr.NotFound("room")
	}
	return rm, err
}
