package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Model string

const (
	ModelDallE3 Model = "dall-e-3"
	ModelDallE2 Model = "dall-e-2"

	DefaultModel = ModelDallE3
)

// preset is the generation size/quality tied to a model. dall-e-2 takes no
// quality parameter at all.
type preset struct {
	size    string
	quality string
}

var presets = map[Model]preset{
	ModelDallE3: {size: "1024x1792", quality: "standard"},
	ModelDallE2: {size: "512x512"},
}

// ParseModel maps a user-supplied model name onto the fixed enumerated set.
// An empty name selects the default.
func ParseModel(s string) (Model, error) {
	if s == "" {
		return DefaultModel, nil
	}
	m := Model(s)
	if _, ok := presets[m]; !ok {
		return "", errors.Errorf("unknown generation model %q", s)
	}
	return m, nil
}

type Request struct {
	Credential string
	Model      Model
	Prompt     string
}

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Service struct {
	log    *zap.Logger
	client *http.Client
	cfg    config.ImageGenAPI
}

func NewService(log *zap.Logger, cfg config.Config) *Service {
	return &Service{
		log:    log,
		client: &http.Client{Timeout: cfg.ImageGen.Timeout},
		cfg:    cfg.ImageGen,
	}
}

// Generate runs one image-generation call and returns the first result URL.
// Failures come back as *errs.GenerationError; the credential is never logged.
func (s *Service) Generate(ctx context.Context, request Request) (string, error) {
	p, ok := presets[request.Model]
	if !ok {
		return "", &errs.GenerationError{Upstream: "unknown model " + string(request.Model)}
	}
	b := bytes.NewBuffer(nil)
	genReq := generateRequest{
		Model:   string(request.Model),
		Prompt:  request.Prompt,
		Size:    p.size,
		Quality: p.quality,
		N:       1,
	}
	if err := json.NewEncoder(b).Encode(genReq); err != nil {
		return "", &errs.GenerationError{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, b)
	if err != nil {
		return "", &errs.GenerationError{}
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+request.Credential)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("image generation transport failure", zap.Error(err))
		return "", &errs.GenerationError{}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return "", &errs.GenerationError{Upstream: errResp.Error.Message}
		}
		s.log.Warn("image generation rejected", zap.Int("status", resp.StatusCode))
		return "", &errs.GenerationError{}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &errs.GenerationError{}
	}
	if len(genResp.Data) == 0 || genResp.Data[0].URL == "" {
		return "", &errs.GenerationError{Upstream: "no image URL in response"}
	}
	return genResp.Data[0].URL, nil
}

// Fetch downloads the generated image for the client-side save action.
func (s *Service) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return nil, "", errors.Wrap(err, "image fetch")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "image fetch")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", errors.Errorf("image fetch: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "image fetch")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
