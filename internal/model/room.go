package model

import "time"

// Room type values stored in rooms.room_type.
const (
    RoomTypeLaboratory = "LABORATORY"
    RoomTypeLecture    = "LECTURE"
    RoomTypeConference = "CONFERENCE"
)

// Room represents a reservable physical space within a department
// building.  Equipment is stored in the database as a JSON array of
// strings.  PositionX/PositionY are optional floor-plan coordinates
// used by the floor-plan view; nil means the room has not been placed.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – room label (e.g. "118").
//  Building    – building the room is located in.
//  Floor       – floor number within the building.
//  Capacity    – seating capacity; always positive.
//  Equipment   – set of equipment labels (projector, whiteboard, ...).
//  Description – optional free-form text.
//  RoomType    – LABORATORY, LECTURE or CONFERENCE.
//  IsCleaned   – usage flag cleared when a reservation is confirmed.
//  LastUsedAt  – when the room was last used (nil if never).
//  PositionX   – floor-plan X coordinate (nullable).
//  PositionY   – floor-plan Y coordinate (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Room struct {
    ID          uint64     // rooms.id
    Name        string     // rooms.name
    Building    string     // rooms.building
    Floor       int        // rooms.floor
    Capacity    int        // rooms.capacity
    Equipment   []string   // rooms.equipment (JSON array)
    Description *string    // rooms.description (nullable)
    RoomType    string     // rooms.room_type
    IsCleaned   bool       // rooms.is_cleaned
    LastUsedAt  *time.Time // rooms.last_used_at (nullable)
    PositionX   *float64   // rooms.position_x (nullable)
    PositionY   *float64   // rooms.position_y (nullable)
    CreatedAt   time.Time  // rooms.created_at
    UpdatedAt   time.Time  // rooms.updated_at
}

// ValidRoomType reports whether t is one of the accepted room types.
func ValidRoomType(t string) bool {
    switch t {
    case RoomTypeLaboratory, RoomTypeLecture, RoomTypeConference:
        return true
    }
    return false
}
