package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// googleFreeBusyURL endpoint freeBusy-запроса Calendar API v3
const googleFreeBusyURL = "https://www.googleapis.com/calendar/v3/freeBusy"

// GoogleSource адаптер Google Calendar: занятые интервалы через freeBusy.
// freeBusy уже отдаёт только периоды со статусом busy, дополнительная
// фильтрация статусов не требуется.
type GoogleSource struct {
	tokens         TokenProvider
	serverLocation *time.Location
	baseURL        string
	logger         *zap.Logger
}

// NewGoogleSource создаёт адаптер Google Calendar
func NewGoogleSource(tokens TokenProvider, serverLocation *time.Location, logger *zap.Logger) *GoogleSource {
	return &GoogleSource{
		tokens:         tokens,
		serverLocation: serverLocation,
		baseURL:        googleFreeBusyURL,
		logger:         logger,
	}
}

// Provider возвращает вид провайдера
func (g *GoogleSource) Provider() model.ProviderKind {
	return model.ProviderGoogle
}

type freeBusyRequest struct {
	TimeMin string             `json:"timeMin"`
	TimeMax string             `json:"timeMax"`
	Items   []freeBusyItem     `json:"items"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}

// GetBusyIntervals запрашивает занятые периоды календаря за интервал дат.
// Периоды с неразборчивыми метками времени пропускаются с логом и не
// срывают запрос целиком.
func (g *GoogleSource) GetBusyIntervals(ctx context.Context, userID int64, start, end time.Time) ([]model.BusyInterval, error) {
	ts, calendarID, err := g.tokens.TokenSource(ctx, userID, model.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(freeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []freeBusyItem{{ID: calendarID}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode freebusy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build freebusy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(ctx, ts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google freebusy: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: google freebusy status %d: %s", model.ErrSourceUnavailable, resp.StatusCode, payload)
	}

	var decoded freeBusyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode google freebusy response: %v", model.ErrSourceUnavailable, err)
	}

	var intervals []model.BusyInterval
	for _, period := range decoded.Calendars[calendarID].Busy {
		busyStart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			g.logger.Warn("skipping malformed google busy period",
				zap.Int64("user_id", userID),
				zap.String("start", period.Start),
				zap.Error(err))
			continue
		}
		busyEnd, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			g.logger.Warn("skipping malformed google busy period",
				zap.Int64("user_id", userID),
				zap.String("end", period.End),
				zap.Error(err))
			continue
		}
		intervals = append(intervals, model.BusyInterval{
			Start:  busyStart.In(g.serverLocation),
			End:    busyEnd.In(g.serverLocation),
			Source: model.ProviderGoogle,
		})
	}

	g.logger.Debug("fetched google busy intervals",
		zap.Int64("user_id", userID),
		zap.Int("count", len(intervals)))
	return intervals, nil
}
