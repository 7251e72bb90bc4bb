package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// outlookCalendarViewURL endpoint Microsoft Graph для развёрнутого списка
// событий за интервал (calendarView раскрывает повторяющиеся события)
const outlookCalendarViewURL = "https://graph.microsoft.com/v1.0/me/calendarView"

// Формат меток времени Graph API: без смещения, пояс в отдельном поле
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

// OutlookSource адаптер Outlook Calendar поверх Microsoft Graph.
// Занятость определяется полем showAs: учитываются busy и oof,
// free/tentative/workingElsewhere пропускаются.
type OutlookSource struct {
	tokens         TokenProvider
	serverLocation *time.Location
	baseURL        string
	logger         *zap.Logger
}

// NewOutlookSource создаёт адаптер Outlook Calendar
func NewOutlookSource(tokens TokenProvider, serverLocation *time.Location, logger *zap.Logger) *OutlookSource {
	return &OutlookSource{
		tokens:         tokens,
		serverLocation: serverLocation,
		baseURL:        outlookCalendarViewURL,
		logger:         logger,
	}
}

// Provider возвращает вид провайдера
func (o *OutlookSource) Provider() model.ProviderKind {
	return model.ProviderOutlook
}

type graphEventList struct {
	Value []graphEvent `json:"value"`
}

type graphEvent struct {
	Subject string         `json:"subject"`
	ShowAs  string         `json:"showAs"`
	Start   graphDateTime  `json:"start"`
	End     graphDateTime  `json:"end"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// GetBusyIntervals запрашивает события за интервал и оставляет только
// реально занятые. События с неразборчивыми метками времени пропускаются
// с логом.
func (o *OutlookSource) GetBusyIntervals(ctx context.Context, userID int64, start, end time.Time) ([]model.BusyInterval, error) {
	ts, _, err := o.tokens.TokenSource(ctx, userID, model.ProviderOutlook)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("startDateTime", start.UTC().Format(time.RFC3339))
	query.Set("endDateTime", end.UTC().Format(time.RFC3339))
	query.Set("$select", "subject,start,end,showAs")
	query.Set("$top", "250")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build calendarview request: %w", err)
	}

	client := oauth2.NewClient(ctx, ts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: outlook calendarview: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: outlook calendarview status %d: %s", model.ErrSourceUnavailable, resp.StatusCode, payload)
	}

	var decoded graphEventList
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode outlook response: %v", model.ErrSourceUnavailable, err)
	}

	var intervals []model.BusyInterval
	for _, event := range decoded.Value {
		if !showAsBusy(event.ShowAs) {
			continue
		}
		eventStart, err := parseGraphTime(event.Start)
		if err != nil {
			o.logger.Warn("skipping malformed outlook event",
				zap.Int64("user_id", userID),
				zap.String("subject", event.Subject),
				zap.Error(err))
			continue
		}
		eventEnd, err := parseGraphTime(event.End)
		if err != nil {
			o.logger.Warn("skipping malformed outlook event",
				zap.Int64("user_id", userID),
				zap.String("subject", event.Subject),
				zap.Error(err))
			continue
		}
		intervals = append(intervals, model.BusyInterval{
			Start:  eventStart.In(o.serverLocation),
			End:    eventEnd.In(o.serverLocation),
			Source: model.ProviderOutlook,
		})
	}

	o.logger.Debug("fetched outlook busy intervals",
		zap.Int64("user_id", userID),
		zap.Int("events", len(decoded.Value)),
		zap.Int("busy", len(intervals)))
	return intervals, nil
}

// showAsBusy true только для статусов, означающих реальную занятость
func showAsBusy(showAs string) bool {
	switch strings.ToLower(showAs) {
	case "busy", "oof":
		return true
	default:
		return false
	}
}

// parseGraphTime разбирает метку времени Graph API с учётом поля timeZone
func parseGraphTime(dt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if dt.TimeZone != "" && !strings.EqualFold(dt.TimeZone, "UTC") {
		parsed, err := time.LoadLocation(dt.TimeZone)
		if err == nil {
			loc = parsed
		}
	}
	if t, err := time.ParseInLocation(graphTimeLayout, dt.DateTime, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse graph time %q: %w", dt.DateTime, err)
	}
	return t, nil
}
