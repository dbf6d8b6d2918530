package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/bookshelf-app/bookshelf-service/internal/model"
	"github.com/bookshelf-app/bookshelf-service/pkg/circuitbreaker"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Service is the client for the books backend. Every operation surfaces
// exactly one of: a decoded payload, errs.ErrNotFound, errs.ErrValidation or
// errs.ErrUnavailable - callers never see a raw transport error.
type Service struct {
	log    *zap.Logger
	client *http.Client
	cfg    config.BackendAPI
	cb     circuitbreaker.CircuitBreaker
}

func NewService(log *zap.Logger, cfg config.Config) *Service {
	return &Service{
		log:    log,
		client: &http.Client{Timeout: time.Minute},
		cfg:    cfg.Backend,
		cb:     circuitbreaker.New(10, 10*time.Second, 0.5, 3),
	}
}

func (s *Service) baseURL() string {
	return fmt.Sprintf("http://%s/api/books", net.JoinHostPort(s.cfg.Host, s.cfg.Port))
}

func (s *Service) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	if err := s.cb.Call(func() error {
		var err error
		resp, err = s.client.Do(req) //nolint:bodyclose // closed by callers
		return err
	}); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return resp, nil
}

// statusErr maps a backend status code onto the error taxonomy.
func statusErr(resp *http.Response) error {
	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		var ver errs.ValidationErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&ver); err == nil && ver.Message != "" {
			return errors.Wrap(errs.ErrValidation, ver.Message)
		}
		return errs.ErrValidation
	default:
		return errors.Wrapf(errs.ErrUnavailable, "backend status %d", resp.StatusCode)
	}
}

func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL(), http.NoBody)
	if err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return nil, err
	}
	var books []model.Book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		return nil, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%d", s.baseURL(), id), http.NoBody)
	if err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	resp, err := s.do(req)
	if err != nil {
		return model.Book{}, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return book, nil
}

func (s *Service) CreateBook(ctx context.Context, request model.CreateBookRequest) (model.Book, error) {
	b := bytes.NewBuffer(nil)
	if err := json.NewEncoder(b).Encode(request); err != nil {
		return model.Book{}, errors.Wrap(errs.ErrValidation, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL(), b)
	if err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)
	resp, err := s.do(req)
	if err != nil {
		return model.Book{}, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return book, nil
}

func (s *Service) UpdateBook(ctx context.Context, id int, request model.UpdateBookRequest) (model.Book, error) {
	b := bytes.NewBuffer(nil)
	if err := json.NewEncoder(b).Encode(request); err != nil {
		return model.Book{}, errors.Wrap(errs.ErrValidation, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("%s/%d", s.baseURL(), id), b)
	if err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)
	resp, err := s.do(req)
	if err != nil {
		return model.Book{}, err
	}
	defer resp.Body.Close()
	if err := statusErr(resp); err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return model.Book{}, errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	return book, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", s.baseURL(), id), http.NoBody)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return statusErr(resp)
}

func (s *Service) PatchCover(ctx context.Context, id int, coverImageURL string) error {
	b := bytes.NewBuffer(nil)
	patch := struct {
		CoverImageURL string `json:"coverImageUrl"`
	}{
		CoverImageURL: coverImageURL,
	}
	if err := json.NewEncoder(b).Encode(patch); err != nil {
		return errors.Wrap(errs.ErrValidation, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, fmt.Sprintf("%s/%d/cover", s.baseURL(), id), b)
	if err != nil {
		return errors.Wrap(errs.ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return statusErr(resp)
}
