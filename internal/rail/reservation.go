package rail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"log/slog"
)

var (
	// ErrEmptyVoucher indicates the reservation response carried a null
	// barcode image, typically because the seat was already booked.
	ErrEmptyVoucher = errors.New("rail: empty voucher")
	// ErrNoTrainFound indicates criteria-based resolution matched no train
	// on the live schedule.
	ErrNoTrainFound = errors.New("rail: no matching train found")
)

// mobilePlaceholder fills the mandatory mobile field of the reservation
// request; the endpoint does not verify it.
const mobilePlaceholder = "0123456789"

// ReservationService books seats and returns the voucher barcode image.
type ReservationService struct {
	client *Client
	search *SearchService
}

// NewReservationService wires the reservation client with the search service
// used for criteria-based booking.
func NewReservationService(client *Client, search *SearchService) *ReservationService {
	return &ReservationService{client: client, search: search}
}

// reservationEntry is the payload item the reservation handler expects.
type reservationEntry struct {
	TrainDate             string `json:"TrainDate"`
	DestinationStationID  string `json:"destinationStationId"`
	DestinationStationHe  string `json:"destinationStationHe"`
	OrignStationID        string `json:"orignStationId"`
	OrignStationHe        string `json:"orignStationHe"`
	TrainNumber           int    `json:"trainNumber"`
	DepartureTime         string `json:"departureTime"`
	ArrivalTime           string `json:"arrivalTime"`
	OrignStation          string `json:"orignStation"`
	DestinationStation    string `json:"destinationStation"`
	OrignStationNum       int    `json:"orignStationNum"`
	DestinationStationNum int    `json:"destinationStationNum"`
	DestPlatform          int    `json:"DestPlatform"`
	TrainOrder            int    `json:"TrainOrder"`
}

type voucherResponse struct {
	BarcodeImage *string `json:"BarcodeImage"`
	Voutcher     *struct {
		ErrorDescription string `json:"ErrorDescription"`
	} `json:"voutcher"`
}

// ReserveTrain books a seat on the given train for the identity and returns
// the decoded voucher image bytes.
func (r *ReservationService) ReserveTrain(ctx context.Context, id, email string, train Train) ([]byte, error) {
	payload, err := buildReservationPayload(train)
	if err != nil {
		return nil, err
	}

	reqURL := r.reservationURL(id, email)
	start := time.Now()
	body, err := r.post(ctx, reqURL, payload)
	if err != nil {
		logger.RAIL.Error("reservation failed",
			slog.String("event", "rail.reserve"),
			slog.Int("train_no", train.Number),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}

	// A null image and an absent image field mean different things: null is
	// a booked-out seat, absence is a malformed request.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if _, ok := raw["BarcodeImage"]; !ok {
		return nil, fmt.Errorf("%w: BarcodeImage missing", ErrMalformedResponse)
	}

	var resp voucherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if resp.BarcodeImage == nil {
		desc := ""
		if resp.Voutcher != nil {
			desc = resp.Voutcher.ErrorDescription
		}
		return nil, fmt.Errorf("%w: %s", ErrEmptyVoucher, desc)
	}

	image, err := base64.StdEncoding.DecodeString(*resp.BarcodeImage)
	if err != nil {
		return nil, fmt.Errorf("%w: barcode decode: %s", ErrMalformedResponse, err)
	}

	logger.RAIL.Info("reservation ok",
		slog.String("event", "rail.reserve"),
		slog.Int("train_no", train.Number),
		slog.Int("count", len(image)),
		slog.Duration("duration", logger.Took(start)),
	)
	return image, nil
}

// ReserveByCriteria resolves the first future departure for the station pair
// at the given time and books it. Used for saved-train re-booking.
func (r *ReservationService) ReserveByCriteria(ctx context.Context, id, email string, originID, destID int, at time.Time) ([]byte, error) {
	trains, err := r.search.AvailableTrains(ctx, originID, destID, at)
	if err != nil {
		return nil, err
	}
	var first *Train
	for i := range trains {
		if trains[i].Departure.After(at) {
			first = &trains[i]
			break
		}
	}
	if first == nil {
		return nil, ErrNoTrainFound
	}
	return r.ReserveTrain(ctx, id, email, *first)
}

func buildReservationPayload(train Train) ([]reservationEntry, error) {
	originRes, ok := ReservationStationID(train.OriginID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown origin station %d", ErrMissingField, train.OriginID)
	}
	destRes, ok := ReservationStationID(train.DestID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown destination station %d", ErrMissingField, train.DestID)
	}
	originName, _ := StationIDToName(train.OriginID)
	destName, _ := StationIDToName(train.DestID)

	return []reservationEntry{{
		TrainDate:             train.Arrival.Format("02/01/2006") + " 00:00:00",
		DestinationStationID:  destRes,
		OrignStationID:        originRes,
		TrainNumber:           train.Number,
		DepartureTime:         FormatWireTime(train.Departure),
		ArrivalTime:           FormatWireTime(train.Arrival),
		OrignStation:          originName,
		DestinationStation:    destName,
		OrignStationNum:       train.OriginID,
		DestinationStationNum: train.DestID,
		DestPlatform:          train.DestPlatform,
		TrainOrder:            1,
	}}, nil
}

func (r *ReservationService) reservationURL(id, email string) string {
	q := url.Values{}
	q.Set("numSeats", "1")
	q.Set("smartCard", id)
	q.Set("mobile", mobilePlaceholder)
	q.Set("userEmail", email)
	q.Set("method", "MakeVoucherSeatsReservation")
	q.Set("IsSendEmail", "true")
	q.Set("source", "1")
	q.Set("typeId", "1")
	return r.client.reservationURL + "?" + q.Encode()
}

func (r *ReservationService) post(ctx context.Context, reqURL string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.http.Do(req)
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
