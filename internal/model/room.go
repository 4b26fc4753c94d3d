package model

import "time"

// Room is a row of the `rooms` table.  Capacity is the number of beds;
// the number of rows in room_allocations pointing at the room must never
// exceed it.
//
// Fields:
//  ID         – primary key identifier.
//  HostelName – name of the hostel block the room belongs to.
//  RoomNo     – room number, unique within a hostel.
//  Floor      – floor label as entered by the admin ("G", "1", ...).
//  Category   – free-form category (e.g. "AC", "Non-AC"); may be empty.
//  Capacity   – number of students the room can hold.
//  CreatedAt  – creation timestamp.
type Room struct {
    ID         uint64    `json:"id"`          // rooms.id
    HostelName string    `json:"hostel_name"` // rooms.hostel_name
    RoomNo     string    `json:"room_no"`     // rooms.room_no
    Floor      string    `json:"floor"`       // rooms.floor
    Category   string    `json:"category"`    // rooms.category (nullable, empty when unset)
    Capacity   int       `json:"capacity"`    // rooms.capacity
    CreatedAt  time.Time `json:"created_at"`  // rooms.created_at
}

// RoomOccupancy annotates a room with its current occupants.  Remaining is
// Capacity minus CurrentOccupants and can be negative when an admin shrank
// the capacity below the occupancy.
type RoomOccupancy struct {
    Room
    OccupantRolls    []string `json:"occupants_rolls"`
    CurrentOccupants int      `json:"current_occupants"`
    Remaining        int      `json:"remaining"`
}

// Allocation links one student (by roll number) to one room.  A roll number
// appears in at most one allocation; moving a student is vacate + allocate.
type Allocation struct {
    ID          uint64    `json:"id"`           // room_allocations.id
    RollNo      string    `json:"roll_no"`      // room_allocations.roll_no
    RoomID      uint64    `json:"room_id"`      // room_allocations.room_id
    AllocatedAt time.Time `json:"allocated_at"` // room_allocations.allocated_at
}
