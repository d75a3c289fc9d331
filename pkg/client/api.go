package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"geobus/pkg/model"
)

// APIClient calls the geobus endpoints and decodes their payloads. Non-2xx
// responses are returned as *APIError.
type APIClient struct {
	http *HttpClient
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{http: NewHttpClient(baseURL)}
}

type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

// Reason is the sub-reason in Details, such as SEAT_UNAVAILABLE.
func (e *APIError) Reason() string {
	reason, _ := e.Details["reason"].(string)
	return reason
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (c *APIClient) HTTP() *HttpClient {
	return c.http
}

func (c *APIClient) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/login", "", model.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) SearchBuses(ctx context.Context, from, to, date string) ([]*model.Bus, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("date", date)

	var out []*model.Bus
	if err := c.call(ctx, http.MethodGet, "/api/search-buses?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Bus(ctx context.Context, id string) (*model.Bus, error) {
	var out model.Bus
	if err := c.call(ctx, http.MethodGet, "/api/bus/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookSeats reserves seats. A non-empty idempotencyKey makes retries replay
// the first response instead of booking twice.
func (c *APIClient) BookSeats(ctx context.Context, token, idempotencyKey string, req model.BookSeatsRequest) (*model.BookSeatsResponse, error) {
	resp, err := c.http.POSTIdempotent(ctx, "/api/book-seats", token, idempotencyKey, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, asAPIError(resp)
	}

	var out model.BookSeatsResponse
	if err := resp.DecodeData(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) MyBookings(ctx context.Context, token string) ([]*model.Booking, error) {
	var out []*model.Booking
	if err := c.call(ctx, http.MethodGet, "/api/my-bookings", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) CancelTicket(ctx context.Context, token, ticketID string) (*model.CancelResult, error) {
	var out model.CancelResult
	if err := c.call(ctx, http.MethodPost, "/api/cancel-ticket", token, model.CancelTicketRequest{TicketID: ticketID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadTicket returns the rendered PDF bytes.
func (c *APIClient) DownloadTicket(ctx context.Context, token, ticketID string) ([]byte, error) {
	resp, err := c.http.GET(ctx, "/api/download-ticket/"+url.PathEscape(ticketID), token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, asAPIError(resp)
	}
	return resp.Body, nil
}

func (c *APIClient) call(ctx context.Context, method, path, token string, body, out any) error {
	var (
		resp *Response
		err  error
	)
	if method == http.MethodGet {
		resp, err = c.http.GET(ctx, path, token)
	} else {
		resp, err = c.http.POST(ctx, path, token, body)
	}
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return asAPIError(resp)
	}
	return resp.DecodeData(out)
}

func asAPIError(resp *Response) *APIError {
	body := resp.ErrorBody()
	return &APIError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message, Details: body.Details}
}
