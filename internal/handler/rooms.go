package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hostel-management/internal/allocation"
)

// RoomHandler exposes room inventory and allocation.  Mutations are
// mounted behind RequireRole("ADMIN").
type RoomHandler struct {
    Alloc *allocation.Allocator
}

// NewRoomHandler panics on a nil allocator.
func NewRoomHandler(a *allocation.Allocator) *RoomHandler {
    if a == nil {
        panic("nil allocator passed to NewRoomHandler")
    }
    return &RoomHandler{Alloc: a}
}

// ListRooms handles GET /v1/admin/rooms?hostel_name=&floor=&roll_no=.
func (h *RoomHandler) ListRooms(c echo.Context) error {
    rooms, err := h.Alloc.ListRooms(c.Request().Context(), allocation.RoomFilter{
        HostelName: c.QueryParam("hostel_name"),
        Floor:      c.QueryParam("floor"),
        RollNo:     c.QueryParam("roll_no"),
    })
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "", echo.Map{"rooms": rooms})
}

// AddRoom handles POST /v1/admin/rooms.
func (h *RoomHandler) AddRoom(c echo.Context) error {
    var body allocation.NewRoom
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    rm, err := h.Alloc.AddRoom(c.Request().Context(), body)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusCreated, "Room added", echo.Map{"room": rm})
}

// UpdateCapacity handles PUT /v1/admin/rooms/:id/capacity.
func (h *RoomHandler) UpdateCapacity(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return failure(c, http.StatusBadRequest, "invalid room id")
    }
    var body struct {
        Capacity *int `json:"capacity"`
    }
    if err := c.Bind(&body); err != nil || body.Capacity == nil {
        return failure(c, http.StatusBadRequest, "capacity is required")
    }
    res, err := h.Alloc.UpdateCapacity(c.Request().Context(), id, *body.Capacity)
    if err != nil {
        return fail(c, err)
    }
    msg := "Capacity updated"
    if res.OverCapacity {
        msg = "Capacity updated; room is over capacity"
    }
    return respond(c, http.StatusOK, msg, echo.Map{"room": res.Room, "over_capacity": res.OverCapacity})
}

// DeleteRoom handles DELETE /v1/admin/rooms/:id.
func (h *RoomHandler) DeleteRoom(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return failure(c, http.StatusBadRequest, "invalid room id")
    }
    evicted, err := h.Alloc.DeleteRoom(c.Request().Context(), id)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "Room deleted", echo.Map{"vacated_rolls": evicted})
}

type allocationReq struct {
    RollNo string `json:"roll_no"`
}

// Allocate handles POST /v1/admin/rooms/:id/allocate with {"roll_no"}.
func (h *RoomHandler) Allocate(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return failure(c, http.StatusBadRequest, "invalid room id")
    }
    var body allocationReq
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    a, err := h.Alloc.Allocate(c.Request().Context(), body.RollNo, id)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusCreated, "Room allocated", echo.Map{"allocation": a})
}

// Vacate handles POST /v1/admin/rooms/:id/vacate with {"roll_no"}.
func (h *RoomHandler) Vacate(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return failure(c, http.StatusBadRequest, "invalid room id")
    }
    var body allocationReq
    if err := c.Bind(&body); err != nil {
        return failure(c, http.StatusBadRequest, "invalid request body")
    }
    vacated, err := h.Alloc.Vacate(c.Request().Context(), body.RollNo, id)
    if err != nil {
        return fail(c, err)
    }
    msg := "Room vacated"
    if !vacated {
        msg = "Nothing to vacate"
    }
    return respond(c, http.StatusOK, msg, echo.Map{"vacated": vacated})
}

// StudentRoom handles GET /v1/students/:roll_no/room.  The room is null
// when the student holds none.
func (h *RoomHandler) StudentRoom(c echo.Context) error {
    roll := strings.TrimSpace(c.Param("roll_no"))
    rm, err := h.Alloc.RoomOf(c.Request().Context(), roll)
    if err != nil {
        return fail(c, err)
    }
    return respond(c, http.StatusOK, "", echo.Map{"room": rm})
}
