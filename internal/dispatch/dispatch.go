// Package dispatch creates outbound call jobs: it names the room, builds
// the metadata the agent worker expects, and keeps the deployment tidy by
// sweeping rooms left over from abandoned calls.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SwarajMP/Bankbot/internal/bridge"
	"github.com/SwarajMP/Bankbot/internal/logger"
	"github.com/SwarajMP/Bankbot/internal/phone"
)

// RoomPrefix names outbound payment-call rooms. The suffix is the unix
// second the job was created, which is what the stale-room sweep keys on.
const RoomPrefix = "payment-outbound-call-"

// DefaultMaxRoomAge is how long an outbound room may exist before the
// sweep considers it abandoned.
const DefaultMaxRoomAge = 30 * time.Minute

// Admin is the bridge surface the dispatcher needs.
type Admin interface {
	ListRooms(ctx context.Context) ([]bridge.RoomInfo, error)
	DeleteRoom(ctx context.Context, room string) error
	CreateDispatch(ctx context.Context, agentName, room, metadata string) (string, error)
}

// Clock provides the current time. Defaults to time.Now; override in tests.
type Clock func() time.Time

// Dispatch describes a created call job.
type Dispatch struct {
	ID        string
	Room      string
	Phone     string
	CreatedAt int64
}

// callMetadata is the blob handed to the agent worker. Keys are camelCase
// because that is what the worker's alias list resolves first after
// phone_number.
type callMetadata struct {
	PhoneNumber string `json:"phoneNumber"`
	CallType    string `json:"callType"`
	Company     string `json:"company"`
	AgentName   string `json:"agentName"`
	CreatedAt   int64  `json:"createdAt"`
	Purpose     string `json:"purpose"`
}

type Service struct {
	admin Admin
	log   *logrus.Entry
	clock Clock

	agentName        string
	agentDisplayName string
	company          string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func New(admin Admin, agentName, agentDisplayName, company string, log *logrus.Entry, opts ...Option) *Service {
	s := &Service{
		admin:            admin,
		log:              log,
		clock:            time.Now,
		agentName:        agentName,
		agentDisplayName: agentDisplayName,
		company:          company,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preflight checks connectivity to the bridge before anything is dialed.
func (s *Service) Preflight(ctx context.Context) error {
	rooms, err := s.admin.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("bridge connectivity check: %w", err)
	}
	s.log.WithField("active_rooms", len(rooms)).Info("connected to bridge")
	return nil
}

// CleanupOldRooms deletes outbound-call rooms older than maxAge. Individual
// delete failures are logged and skipped; a listing failure is returned so
// the caller can decide whether to warn or abort.
func (s *Service) CleanupOldRooms(ctx context.Context, maxAge time.Duration) (int, error) {
	rooms, err := s.admin.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rooms: %w", err)
	}

	now := s.clock()
	deleted := 0
	for _, r := range rooms {
		created, ok := roomCreatedAt(r.Name)
		if !ok {
			continue
		}
		if now.Sub(created) <= maxAge {
			continue
		}
		if err := s.admin.DeleteRoom(ctx, r.Name); err != nil {
			s.log.WithFields(logrus.Fields{
				"room":  r.Name,
				"error": err.Error(),
			}).Warn("failed to delete stale room")
			continue
		}
		s.log.WithField("room", r.Name).Info("deleted stale room")
		deleted++
	}
	return deleted, nil
}

// roomCreatedAt extracts the creation time from an outbound room name.
func roomCreatedAt(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, RoomPrefix) {
		return time.Time{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimPrefix(name, RoomPrefix), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}

// CreateCall validates the target number and dispatches an agent worker
// into a fresh room for it.
func (s *Service) CreateCall(ctx context.Context, rawNumber string) (*Dispatch, error) {
	number, err := phone.Normalize(rawNumber)
	if err != nil {
		return nil, fmt.Errorf("validating phone number %q: %w", logger.Sanitize(rawNumber), err)
	}

	createdAt := s.clock().Unix()
	room := fmt.Sprintf("%s%d", RoomPrefix, createdAt)

	blob, err := json.Marshal(callMetadata{
		PhoneNumber: number,
		CallType:    "credit_card_payment",
		Company:     s.company,
		AgentName:   s.agentDisplayName,
		CreatedAt:   createdAt,
		Purpose:     "payment_collection",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"agent": s.agentName,
		"room":  room,
		"phone": logger.Sanitize(number),
	}).Info("creating dispatch")

	id, err := s.admin.CreateDispatch(ctx, s.agentName, room, string(blob))
	if err != nil {
		return nil, err
	}

	return &Dispatch{ID: id, Room: room, Phone: number, CreatedAt: createdAt}, nil
}
