package rail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"log/slog"
)

var (
	// ErrMalformedResponse indicates the remote endpoint returned something
	// that is not parseable structured data, or the call itself failed.
	// Timeouts are folded into this class as well.
	ErrMalformedResponse = errors.New("rail: malformed response")
	// ErrMissingField indicates a parseable response without the expected
	// Data/Routes structure.
	ErrMissingField = errors.New("rail: response missing expected field")
)

// Config carries the endpoint settings for Client.
type Config struct {
	ScheduleURL    string
	ReservationURL string
	Timeout        time.Duration
	Proxy          string
}

// Client queries the schedule planner and submits seat reservations.
type Client struct {
	http           *http.Client
	scheduleURL    string
	reservationURL string
	now            func() time.Time
}

// NewClient constructs a Client with a tuned, retrying HTTP client.
func NewClient(cfg Config) *Client {
	return &Client{
		http:           newHTTPClient(cfg.Timeout, cfg.Proxy),
		scheduleURL:    cfg.ScheduleURL,
		reservationURL: cfg.ReservationURL,
		now:            time.Now,
	}
}

// flexInt unmarshals JSON values that arrive either as numbers or as
// numeric strings, both of which the planner emits.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type wireTrain struct {
	DepartureTime      string  `json:"DepartureTime"`
	ArrivalTime        string  `json:"ArrivalTime"`
	OrignStation       flexInt `json:"OrignStation"`
	DestinationStation flexInt `json:"DestinationStation"`
	Trainno            flexInt `json:"Trainno"`
	Platform           flexInt `json:"Platform"`
	DestPlatform       flexInt `json:"DestPlatform"`
	IsFullTrain        bool    `json:"IsFullTrain"`
}

type wireRoutes struct {
	Data *struct {
		Routes []struct {
			Train []wireTrain `json:"Train"`
		} `json:"Routes"`
	} `json:"Data"`
}

// Timetable returns every train the planner lists for the station pair on
// the given date, from midnight onward.
func (c *Client) Timetable(ctx context.Context, originID, destID int, date time.Time) ([]Train, error) {
	q := url.Values{}
	q.Set("OId", strconv.Itoa(originID))
	q.Set("TId", strconv.Itoa(destID))
	q.Set("Date", date.Format("20060102"))
	q.Set("Hour", fmt.Sprintf("%02d00", date.Hour()))
	q.Set("isGoing", "true")
	// Cache-busting timestamp the official client appends.
	q.Set("c", strconv.FormatInt(c.now().UnixMilli(), 10))

	reqURL := c.scheduleURL + "?" + q.Encode()
	start := time.Now()
	body, err := c.get(ctx, reqURL)
	if err != nil {
		logger.RAIL.Error("schedule query failed",
			slog.String("event", "rail.schedule"),
			slog.Int("origin_id", originID),
			slog.Int("dest_id", destID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}

	var routes wireRoutes
	if err := json.Unmarshal(body, &routes); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if routes.Data == nil || routes.Data.Routes == nil {
		return nil, fmt.Errorf("%w: Data.Routes", ErrMissingField)
	}

	var trains []Train
	for _, route := range routes.Data.Routes {
		for _, wt := range route.Train {
			t, err := parseWireTrain(wt)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, err)
			}
			trains = append(trains, t)
		}
	}

	logger.RAIL.Debug("schedule query",
		slog.String("event", "rail.schedule"),
		slog.Int("origin_id", originID),
		slog.Int("dest_id", destID),
		slog.String("day", date.Format("2006-01-02")),
		slog.Int("count", len(trains)),
		slog.Duration("duration", logger.Took(start)),
	)
	return trains, nil
}

func parseWireTrain(wt wireTrain) (Train, error) {
	dep, err := ParseWireTime(wt.DepartureTime)
	if err != nil {
		return Train{}, err
	}
	arr, err := ParseWireTime(wt.ArrivalTime)
	if err != nil {
		return Train{}, err
	}
	return Train{
		Departure:    dep,
		Arrival:      arr,
		OriginID:     int(wt.OrignStation),
		DestID:       int(wt.DestinationStation),
		Number:       int(wt.Trainno),
		Platform:     int(wt.Platform),
		DestPlatform: int(wt.DestPlatform),
		IsFull:       wt.IsFullTrain,
	}, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
