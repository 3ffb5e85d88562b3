// File: internal/infra/adapters/voice/room_service.go
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"creator-twin-backend/internal/domain"
	"creator-twin-backend/internal/domain/ports/adapter"
)

var _ adapter.RoomServiceAdapter = (*RoomService)(nil)

// RoomService talks to the media server's Twirp room API. Every request is
// signed with a short-lived HMAC token minted from the API key pair.
type RoomService struct {
	host      string
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewRoomService(host, apiKey, apiSecret string) (*RoomService, error) {
	if host == "" {
		return nil, errors.New("voice host empty")
	}
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("voice api credentials empty")
	}
	return &RoomService{
		host:      strings.TrimRight(host, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *RoomService) ListParticipants(ctx context.Context, roomName string) ([]adapter.Participant, error) {
	var out struct {
		Participants []struct {
			Identity string `json:"identity"`
			Name     string `json:"name"`
		} `json:"participants"`
	}
	err := s.call(ctx, "ListParticipants", map[string]any{"room": roomName}, roomName, &out)
	if err != nil {
		return nil, err
	}
	parts := make([]adapter.Participant, 0, len(out.Participants))
	for _, p := range out.Participants {
		parts = append(parts, adapter.Participant{Identity: p.Identity, Name: p.Name})
	}
	return parts, nil
}

func (s *RoomService) RemoveParticipant(ctx context.Context, roomName, identity string) error {
	return s.call(ctx, "RemoveParticipant", map[string]any{"room": roomName, "identity": identity}, roomName, nil)
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomName string) error {
	return s.call(ctx, "DeleteRoom", map[string]any{"room": roomName}, roomName, nil)
}

func (s *RoomService) call(ctx context.Context, method string, payload map[string]any, roomName string, out any) error {
	token, err := s.adminToken(roomName)
	if err != nil {
		return err
	}

	b, _ := json.Marshal(payload)
	url := s.host + "/twirp/livekit.RoomService/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrRoomNotFound
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// Twirp reports missing rooms as a not_found error code.
		if strings.Contains(string(body), "not_found") || strings.Contains(string(body), "does not exist") {
			return domain.ErrRoomNotFound
		}
		return fmt.Errorf("room service %s http %d: %s", method, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// adminToken mints a room-admin grant valid for one request burst.
func (s *RoomService) adminToken(roomName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.apiKey,
		"nbf": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"video": map[string]any{
			"roomAdmin": true,
			"room":      roomName,
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.apiSecret))
}
