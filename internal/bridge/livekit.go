package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"

	"github.com/SwarajMP/Bankbot/internal/logger"
)

// participantPollInterval paces the join wait. The server pushes no
// participant-joined callback over the service API, so we poll.
const participantPollInterval = 500 * time.Millisecond

// LiveKit implements Telephony against a LiveKit deployment. It also
// carries the dispatch-side operations the dispatcher binary uses.
type LiveKit struct {
	rooms    *lksdk.RoomServiceClient
	sip      *lksdk.SIPClient
	dispatch *lksdk.AgentDispatchClient
	log      *logger.Logger
}

// NewLiveKit builds clients for the given deployment. URL may be the
// websocket form; it is rewritten to the HTTP endpoint the service API
// expects.
func NewLiveKit(url, apiKey, apiSecret string, log *logger.Logger) *LiveKit {
	httpURL := httpFromWS(url)
	return &LiveKit{
		rooms:    lksdk.NewRoomServiceClient(httpURL, apiKey, apiSecret),
		sip:      lksdk.NewSIPClient(httpURL, apiKey, apiSecret),
		dispatch: lksdk.NewAgentDispatchServiceClient(httpURL, apiKey, apiSecret),
		log:      log,
	}
}

func httpFromWS(url string) string {
	url = strings.Replace(url, "wss://", "https://", 1)
	return strings.Replace(url, "ws://", "http://", 1)
}

func (l *LiveKit) CreateSIPParticipant(ctx context.Context, room, trunkID, number, identity string) error {
	_, err := l.sip.CreateSIPParticipant(ctx, &livekit.CreateSIPParticipantRequest{
		RoomName:            room,
		SipTrunkId:          trunkID,
		SipCallTo:           number,
		ParticipantIdentity: identity,
		WaitUntilAnswered:   true,
		KrispEnabled:        true,
	})
	if err != nil {
		return fmt.Errorf("create sip participant: %w", describeTwirp(err))
	}
	return nil
}

func (l *LiveKit) DeleteRoom(ctx context.Context, room string) error {
	_, err := l.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: room})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", room, describeTwirp(err))
	}
	return nil
}

func (l *LiveKit) WaitForParticipant(ctx context.Context, room, identity string) (*Participant, error) {
	ticker := time.NewTicker(participantPollInterval)
	defer ticker.Stop()

	for {
		resp, err := l.rooms.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: room})
		if err != nil {
			l.log.WithError(err).WithField("room", room).Warn("participant poll failed")
		} else {
			for _, p := range resp.Participants {
				if p.Identity == identity {
					return &Participant{SID: p.Sid, Identity: p.Identity}, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for participant %s: %w", logger.Sanitize(identity), ctx.Err())
		case <-ticker.C:
		}
	}
}

// ListRooms returns the active rooms on the deployment.
func (l *LiveKit) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	resp, err := l.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", describeTwirp(err))
	}
	out := make([]RoomInfo, 0, len(resp.Rooms))
	for _, r := range resp.Rooms {
		out = append(out, RoomInfo{SID: r.Sid, Name: r.Name})
	}
	return out, nil
}

// CreateDispatch assigns an agent worker to room with the given metadata
// blob and returns the dispatch id.
func (l *LiveKit) CreateDispatch(ctx context.Context, agentName, room, metadata string) (string, error) {
	d, err := l.dispatch.CreateDispatch(ctx, &livekit.CreateAgentDispatchRequest{
		AgentName: agentName,
		Room:      room,
		Metadata:  metadata,
	})
	if err != nil {
		return "", fmt.Errorf("create dispatch: %w", describeTwirp(err))
	}
	return d.Id, nil
}

// describeTwirp folds the twirp error code into the message so retry logs
// carry the service-side failure class.
func describeTwirp(err error) error {
	var terr twirp.Error
	if errors.As(err, &terr) {
		return fmt.Errorf("%s: %s", terr.Code(), terr.Msg())
	}
	return err
}
