package booking

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/repository"
)

// fakeGateway is an in-memory repository.Gateway. The insertFn and
// overlapFn hooks let tests inject commit-time and query failures to
// exercise the race path.
type fakeGateway struct {
    rooms        map[uint64]*model.Room
    users        map[uint64]model.User
    reservations map[uint64]*model.Reservation
    nextID       uint64
    insertFn     func(ctx context.Context, res *model.Reservation) error
    overlapFn    func(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error)
    markedUsed   []uint64
}

func newFakeGateway() *fakeGateway {
    return &fakeGateway{
        rooms:        map[uint64]*model.Room{},
        users:        map[uint64]model.User{},
        reservations: map[uint64]*model.Reservation{},
        nextID:       1,
    }
}

func (f *fakeGateway) FindRoomByID(ctx context.Context, id uint64) (*model.Room, error) {
    rm, ok := f.rooms[id]
    if !ok {
        return nil, repository.ErrRoomNotFound
    }
    return rm, nil
}

func (f *fakeGateway) FindUserByID(ctx context.Context, id uint64) (model.User, error) {
    u, ok := f.users[id]
    if !ok {
        return model.User{}, sql.ErrNoRows
    }
    return u, nil
}

func (f *fakeGateway) FindReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, ok := f.reservations[id]
    if !ok {
        return nil, repository.ErrReservationNotFound
    }
    cp := *res
    return &cp, nil
}

func (f *fakeGateway) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
    if f.overlapFn != nil {
        return f.overlapFn(ctx, roomID, start, end, excludeID)
    }
    var overlaps []model.Reservation
    for _, res := range f.reservations {
        if res.RoomID != roomID || res.Status == model.StatusCancelled {
            continue
        }
        if excludeID != 0 && res.ID == excludeID {
            continue
        }
        if res.StartTime.Before(end) && start.Before(res.EndTime) {
            overlaps = append(overlaps, *res)
        }
    }
    return overlaps, nil
}

func (f *fakeGateway) InsertReservation(ctx context.Context, res *model.Reservation) error {
    if f.insertFn != nil {
        return f.insertFn(ctx, res)
    }
    return f.insert(res)
}

func (f *fakeGateway) insert(res *model.Reservation) error {
    res.ID = f.nextID
    f.nextID++
    cp := *res
    f.reservations[res.ID] = &cp
    return nil
}

func (f *fakeGateway) UpdateReservationStatus(ctx context.Context, id uint64, status string) error {
    res, ok := f.reservations[id]
    if !ok {
        return repository.ErrReservationNotFound
    }
    res.Status = status
    return nil
}

func (f *fakeGateway) DeleteReservation(ctx context.Context, id uint64) error {
    if _, ok := f.reservations[id]; !ok {
        return repository.ErrReservationNotFound
    }
    delete(f.reservations, id)
    return nil
}

func (f *fakeGateway) MarkRoomUsed(ctx context.Context, roomID uint64, usedAt time.Time) error {
    f.markedUsed = append(f.markedUsed, roomID)
    return nil
}

// seed puts a reservation directly into the store, bypassing the
// workflow, for fixtures the workflow itself would refuse to create.
func (f *fakeGateway) seed(res model.Reservation) uint64 {
    res.ID = f.nextID
    f.nextID++
    f.reservations[res.ID] = &res
    return res.ID
}

const (
    roomID  = 118
    userID  = 1
    user2ID = 2
    adminID = 9
)

// testClock is the fixed "now" all tests run against.
var testClock = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeGateway) {
    t.Helper()
    f := newFakeGateway()
    f.rooms[roomID] = &model.Room{ID: roomID, Name: "118", Building: "A", Floor: 1, Capacity: 90}
    f.users[userID] = model.User{ID: userID, Email: "u@example.edu", Role: model.RoleUser, IsActive: true}
    f.users[user2ID] = model.User{ID: user2ID, Email: "u2@example.edu", Role: model.RoleUser, IsActive: true}
    f.users[adminID] = model.User{ID: adminID, Email: "admin@example.edu", Role: model.RoleAdmin, IsActive: true}
    svc := NewService(f, nil)
    svc.now = func() time.Time { return testClock }
    return svc, f
}

// at returns a slot boundary relative to the fixed clock's day.
func at(hour, min int) time.Time {
    return time.Date(2026, time.March, 11, hour, min, 0, 0, time.UTC)
}

func mustCreate(t *testing.T, svc *Service, actor uint64, start, end time.Time) *model.Reservation {
    t.Helper()
    res, err := svc.CreateReservation(context.Background(), actor, CreateRequest{
        RoomID: roomID, Title: "Algorithms", StartTime: start, EndTime: end,
    })
    if err != nil {
        t.Fatalf("CreateReservation(%v, %v) failed: %v", start, end, err)
    }
    return res
}

func TestCreateReservationValidation(t *testing.T) {
    tests := []struct {
        name string
        req  CreateRequest
        want error
    }{
        {
            name: "missing room",
            req:  CreateRequest{Title: "x", StartTime: at(10, 0), EndTime: at(11, 0)},
            want: ErrValidation,
        },
        {
            name: "missing title",
            req:  CreateRequest{RoomID: roomID, StartTime: at(10, 0), EndTime: at(11, 0)},
            want: ErrValidation,
        },
        {
            name: "blank title",
            req:  CreateRequest{RoomID: roomID, Title: "   ", StartTime: at(10, 0), EndTime: at(11, 0)},
            want: ErrValidation,
        },
        {
            name: "missing times",
            req:  CreateRequest{RoomID: roomID, Title: "x"},
            want: ErrValidation,
        },
        {
            name: "title too long",
            req: CreateRequest{
                RoomID: roomID, StartTime: at(10, 0), EndTime: at(11, 0),
                Title: strings.Repeat("a", MaxTitleLen+1),
            },
            want: ErrValidation,
        },
        {
            name: "start in the past",
            req: CreateRequest{
                RoomID: roomID, Title: "x",
                StartTime: testClock.Add(-time.Hour), EndTime: testClock.Add(time.Hour),
            },
            want: ErrValidation,
        },
        {
            name: "end equals start",
            req:  CreateRequest{RoomID: roomID, Title: "x", StartTime: at(10, 0), EndTime: at(10, 0)},
            want: ErrValidation,
        },
        {
            name: "end before start",
            req:  CreateRequest{RoomID: roomID, Title: "x", StartTime: at(11, 0), EndTime: at(10, 0)},
            want: ErrValidation,
        },
        {
            name: "unknown room",
            req:  CreateRequest{RoomID: 999, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0)},
            want: ErrRoomNotFound,
        },
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            svc, _ := newTestService(t)
            _, err := svc.CreateReservation(context.Background(), userID, tt.req)
            if !errors.Is(err, tt.want) {
                t.Fatalf("got error %v, want %v", err, tt.want)
            }
        })
    }

    t.Run("title at limit is accepted", func(t *testing.T) {
        svc, _ := newTestService(t)
        _, err := svc.CreateReservation(context.Background(), userID, CreateRequest{
            RoomID: roomID, Title: strings.Repeat("a", MaxTitleLen), StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if err != nil {
            t.Fatalf("200-char title rejected: %v", err)
        }
    })
}

func TestCreateReservationStaleSession(t *testing.T) {
    svc, f := newTestService(t)
    req := CreateRequest{RoomID: roomID, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0)}

    if _, err := svc.CreateReservation(context.Background(), 404, req); !errors.Is(err, ErrAuth) {
        t.Fatalf("unknown actor: got %v, want ErrAuth", err)
    }

    f.users[user2ID] = model.User{ID: user2ID, Role: model.RoleUser, IsActive: false}
    if _, err := svc.CreateReservation(context.Background(), user2ID, req); !errors.Is(err, ErrAuth) {
        t.Fatalf("inactive actor: got %v, want ErrAuth", err)
    }
}

func TestCreateReservationCommitsPending(t *testing.T) {
    svc, f := newTestService(t)
    res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
    if res.ID == 0 {
        t.Fatal("created reservation has no ID")
    }
    if res.Status != model.StatusPending {
        t.Fatalf("status = %q, want PENDING", res.Status)
    }
    if res.UserID != userID {
        t.Fatalf("userID = %d, want %d", res.UserID, userID)
    }
    if _, ok := f.reservations[res.ID]; !ok {
        t.Fatal("reservation not committed to the store")
    }
}

func TestConflictDetection(t *testing.T) {
    overlapping := []struct {
        name       string
        start, end time.Time
    }{
        {"contained", at(10, 30), at(10, 45)},
        {"straddles start", at(9, 30), at(10, 30)},
        {"straddles end", at(10, 30), at(11, 30)},
        {"covers", at(9, 0), at(12, 0)},
        {"identical", at(10, 0), at(11, 0)},
    }
    for _, tt := range overlapping {
        t.Run(tt.name, func(t *testing.T) {
            svc, _ := newTestService(t)
            mustCreate(t, svc, userID, at(10, 0), at(11, 0))
            _, err := svc.CreateReservation(context.Background(), user2ID, CreateRequest{
                RoomID: roomID, Title: "x", StartTime: tt.start, EndTime: tt.end,
            })
            if !errors.Is(err, ErrConflict) {
                t.Fatalf("got %v, want ErrConflict", err)
            }
        })
    }

    t.Run("back-to-back slots do not conflict", func(t *testing.T) {
        svc, _ := newTestService(t)
        mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        mustCreate(t, svc, user2ID, at(11, 0), at(12, 0))
        mustCreate(t, svc, user2ID, at(9, 0), at(10, 0))
    })

    t.Run("other rooms are unaffected", func(t *testing.T) {
        svc, f := newTestService(t)
        f.rooms[2] = &model.Room{ID: 2, Name: "119", Building: "A", Floor: 1, Capacity: 20}
        mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        _, err := svc.CreateReservation(context.Background(), user2ID, CreateRequest{
            RoomID: 2, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if err != nil {
            t.Fatalf("booking a different room failed: %v", err)
        }
    })

    t.Run("cancelled reservations free the slot", func(t *testing.T) {
        svc, _ := newTestService(t)
        a := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        if _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, a.ID, model.StatusCancelled); err != nil {
            t.Fatalf("cancel failed: %v", err)
        }
        mustCreate(t, svc, user2ID, at(10, 0), at(11, 0))
    })
}

func TestCreateReservationRace(t *testing.T) {
    t.Run("slot stolen between check and insert", func(t *testing.T) {
        svc, f := newTestService(t)
        // The first insert attempt fails as if a concurrent request
        // committed first; the competing row becomes visible at the
        // same moment. The recheck must turn this into ErrConflict.
        f.insertFn = func(ctx context.Context, res *model.Reservation) error {
            f.insertFn = nil
            f.seed(model.Reservation{
                RoomID: roomID, UserID: user2ID, Title: "winner",
                StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusPending,
            })
            return repository.ErrSlotTaken
        }
        _, err := svc.CreateReservation(context.Background(), userID, CreateRequest{
            RoomID: roomID, Title: "loser", StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if !errors.Is(err, ErrConflict) {
            t.Fatalf("got %v, want ErrConflict", err)
        }
        // Exactly one reservation must exist: the winner's.
        if n := len(f.reservations); n != 1 {
            t.Fatalf("store holds %d reservations, want 1", n)
        }
    })

    t.Run("slot-taken verdict holds even if the winner vanished", func(t *testing.T) {
        svc, f := newTestService(t)
        f.insertFn = func(ctx context.Context, res *model.Reservation) error {
            return repository.ErrSlotTaken
        }
        _, err := svc.CreateReservation(context.Background(), userID, CreateRequest{
            RoomID: roomID, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if !errors.Is(err, ErrConflict) {
            t.Fatalf("got %v, want ErrConflict", err)
        }
    })

    t.Run("slot-taken verdict holds even if the recheck fails", func(t *testing.T) {
        svc, f := newTestService(t)
        f.insertFn = func(ctx context.Context, res *model.Reservation) error {
            // The recheck after this failure hits a broken connection.
            f.overlapFn = func(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
                return nil, errors.New("connection reset")
            }
            return repository.ErrSlotTaken
        }
        _, err := svc.CreateReservation(context.Background(), userID, CreateRequest{
            RoomID: roomID, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if !errors.Is(err, ErrConflict) {
            t.Fatalf("got %v, want ErrConflict", err)
        }
    })

    t.Run("unrelated insert failures propagate", func(t *testing.T) {
        svc, f := newTestService(t)
        boom := errors.New("connection reset")
        f.insertFn = func(ctx context.Context, res *model.Reservation) error { return boom }
        _, err := svc.CreateReservation(context.Background(), userID, CreateRequest{
            RoomID: roomID, Title: "x", StartTime: at(10, 0), EndTime: at(11, 0),
        })
        if !errors.Is(err, boom) {
            t.Fatalf("got %v, want the original insert failure", err)
        }
        if errors.Is(err, ErrConflict) {
            t.Fatal("plain storage failure must not be reported as a conflict")
        }
    })
}

func TestSetStatus(t *testing.T) {
    t.Run("unknown reservation", func(t *testing.T) {
        svc, _ := newTestService(t)
        _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, 404, model.StatusCancelled)
        if !errors.Is(err, ErrReservationNotFound) {
            t.Fatalf("got %v, want ErrReservationNotFound", err)
        }
    })

    t.Run("invalid status value", func(t *testing.T) {
        svc, _ := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, res.ID, "APPROVED")
        if !errors.Is(err, ErrValidation) {
            t.Fatalf("got %v, want ErrValidation", err)
        }
    })

    t.Run("non-owner non-admin is forbidden", func(t *testing.T) {
        svc, _ := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        _, err := svc.SetStatus(context.Background(), user2ID, model.RoleUser, res.ID, model.StatusCancelled)
        if !errors.Is(err, ErrForbidden) {
            t.Fatalf("got %v, want ErrForbidden", err)
        }
    })

    t.Run("owner may not confirm", func(t *testing.T) {
        svc, _ := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, res.ID, model.StatusConfirmed)
        if !errors.Is(err, ErrForbidden) {
            t.Fatalf("got %v, want ErrForbidden", err)
        }
    })

    t.Run("owner cancels own reservation", func(t *testing.T) {
        svc, f := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        if _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, res.ID, model.StatusCancelled); err != nil {
            t.Fatalf("cancel failed: %v", err)
        }
        if got := f.reservations[res.ID].Status; got != model.StatusCancelled {
            t.Fatalf("status = %q, want CANCELLED", got)
        }
    })

    t.Run("owner cannot cancel after the reservation ended", func(t *testing.T) {
        svc, f := newTestService(t)
        id := f.seed(model.Reservation{
            RoomID: roomID, UserID: userID, Title: "past",
            StartTime: testClock.Add(-2 * time.Hour), EndTime: testClock.Add(-time.Hour),
            Status: model.StatusConfirmed,
        })
        _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, id, model.StatusCancelled)
        if !errors.Is(err, ErrValidation) {
            t.Fatalf("got %v, want ErrValidation", err)
        }
    })

    t.Run("admin cancels anyone's reservation, even ended", func(t *testing.T) {
        svc, f := newTestService(t)
        id := f.seed(model.Reservation{
            RoomID: roomID, UserID: userID, Title: "past",
            StartTime: testClock.Add(-2 * time.Hour), EndTime: testClock.Add(-time.Hour),
            Status: model.StatusConfirmed,
        })
        if _, err := svc.SetStatus(context.Background(), adminID, model.RoleAdmin, id, model.StatusCancelled); err != nil {
            t.Fatalf("admin cancel failed: %v", err)
        }
    })

    t.Run("admin confirms and the room is marked used", func(t *testing.T) {
        svc, f := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        if _, err := svc.SetStatus(context.Background(), adminID, model.RoleAdmin, res.ID, model.StatusConfirmed); err != nil {
            t.Fatalf("confirm failed: %v", err)
        }
        if got := f.reservations[res.ID].Status; got != model.StatusConfirmed {
            t.Fatalf("status = %q, want CONFIRMED", got)
        }
        if len(f.markedUsed) != 1 || f.markedUsed[0] != roomID {
            t.Fatalf("markedUsed = %v, want [%d]", f.markedUsed, roomID)
        }
    })

    t.Run("setting the current status is an idempotent no-op", func(t *testing.T) {
        svc, f := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        changed, err := svc.SetStatus(context.Background(), adminID, model.RoleAdmin, res.ID, model.StatusConfirmed)
        if err != nil {
            t.Fatalf("confirm failed: %v", err)
        }
        if !changed {
            t.Fatal("first confirm reported no transition")
        }
        marked := len(f.markedUsed)
        changed, err = svc.SetStatus(context.Background(), adminID, model.RoleAdmin, res.ID, model.StatusConfirmed)
        if err != nil {
            t.Fatalf("repeated confirm failed: %v", err)
        }
        if changed {
            t.Fatal("repeated confirm reported a transition")
        }
        if len(f.markedUsed) != marked {
            t.Fatal("no-op transition re-ran the side effect")
        }
    })

    t.Run("no-op reported even when the owner repeats it", func(t *testing.T) {
        svc, f := newTestService(t)
        id := f.seed(model.Reservation{
            RoomID: roomID, UserID: userID, Title: "confirmed",
            StartTime: at(10, 0), EndTime: at(11, 0), Status: model.StatusConfirmed,
        })
        changed, err := svc.SetStatus(context.Background(), userID, model.RoleUser, id, model.StatusConfirmed)
        if err != nil {
            t.Fatalf("got %v, want the idempotent no-op to succeed", err)
        }
        if changed {
            t.Fatal("owner's repeated confirm reported a transition")
        }
    })

    t.Run("cancelled is terminal", func(t *testing.T) {
        svc, _ := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        if _, err := svc.SetStatus(context.Background(), userID, model.RoleUser, res.ID, model.StatusCancelled); err != nil {
            t.Fatalf("cancel failed: %v", err)
        }
        _, err := svc.SetStatus(context.Background(), adminID, model.RoleAdmin, res.ID, model.StatusConfirmed)
        if !errors.Is(err, ErrValidation) {
            t.Fatalf("got %v, want ErrValidation", err)
        }
    })
}

func TestDelete(t *testing.T) {
    t.Run("admin hard-deletes", func(t *testing.T) {
        svc, f := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        if err := svc.Delete(context.Background(), adminID, model.RoleAdmin, res.ID); err != nil {
            t.Fatalf("delete failed: %v", err)
        }
        if _, ok := f.reservations[res.ID]; ok {
            t.Fatal("reservation still present after delete")
        }
    })

    t.Run("non-admin is forbidden, even for own reservation", func(t *testing.T) {
        svc, _ := newTestService(t)
        res := mustCreate(t, svc, userID, at(10, 0), at(11, 0))
        err := svc.Delete(context.Background(), userID, model.RoleUser, res.ID)
        if !errors.Is(err, ErrForbidden) {
            t.Fatalf("got %v, want ErrForbidden", err)
        }
    })

    t.Run("unknown reservation", func(t *testing.T) {
        svc, _ := newTestService(t)
        err := svc.Delete(context.Background(), adminID, model.RoleAdmin, 404)
        if !errors.Is(err, ErrReservationNotFound) {
            t.Fatalf("got %v, want ErrReservationNotFound", err)
        }
    })
}

// TestBookingScenario walks room 118 through the full life of a slot:
// book, confirm, reject a competing booking, cancel, rebook.
func TestBookingScenario(t *testing.T) {
    svc, _ := newTestService(t)
    ctx := context.Background()

    res, err := svc.CreateReservation(ctx, userID, CreateRequest{
        RoomID: roomID, Title: "Algorithms", StartTime: at(10, 0), EndTime: at(11, 0),
    })
    if err != nil {
        t.Fatalf("initial booking failed: %v", err)
    }
    if res.Status != model.StatusPending {
        t.Fatalf("status = %q, want PENDING", res.Status)
    }

    if _, err := svc.SetStatus(ctx, adminID, model.RoleAdmin, res.ID, model.StatusConfirmed); err != nil {
        t.Fatalf("admin confirm failed: %v", err)
    }

    _, err = svc.CreateReservation(ctx, user2ID, CreateRequest{
        RoomID: roomID, Title: "Seminar", StartTime: at(10, 30), EndTime: at(10, 45),
    })
    if !errors.Is(err, ErrConflict) {
        t.Fatalf("competing booking: got %v, want ErrConflict", err)
    }

    if _, err := svc.SetStatus(ctx, userID, model.RoleUser, res.ID, model.StatusCancelled); err != nil {
        t.Fatalf("owner cancel failed: %v", err)
    }

    if _, err := svc.CreateReservation(ctx, user2ID, CreateRequest{
        RoomID: roomID, Title: "Seminar", StartTime: at(10, 0), EndTime: at(11, 0),
    }); err != nil {
        t.Fatalf("rebooking the freed slot failed: %v", err)
    }
}
