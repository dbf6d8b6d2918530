package imagegen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/bookshelf-app/bookshelf-service/internal/service/imagegen"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T, handler http.Handler) *imagegen.Service {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cfg := config.Config{ImageGen: config.ImageGenAPI{URL: ts.URL}}
	return imagegen.NewService(zap.NewExample().Named("test"), cfg)
}

func TestParseModel(t *testing.T) {
	t.Parallel()

	m, err := imagegen.ParseModel("")
	require.NoError(t, err)
	require.Equal(t, imagegen.DefaultModel, m)

	m, err = imagegen.ParseModel("dall-e-2")
	require.NoError(t, err)
	require.Equal(t, imagegen.ModelDallE2, m)

	_, err = imagegen.ParseModel("dall-e-9")
	require.Error(t, err)
}

func TestService_Generate_ModelPresets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		model       imagegen.Model
		wantSize    string
		wantQuality string
		qualitySet  bool
	}{
		{
			name:        "dall-e-3 uses portrait size and quality",
			model:       imagegen.ModelDallE3,
			wantSize:    "1024x1792",
			wantQuality: "standard",
			qualitySet:  true,
		},
		{
			name:     "dall-e-2 omits the quality field entirely",
			model:    imagegen.ModelDallE2,
			wantSize: "512x512",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, string(tt.model), body["model"])
				require.Equal(t, tt.wantSize, body["size"])
				require.Equal(t, float64(1), body["n"])
				quality, ok := body["quality"]
				require.Equal(t, tt.qualitySet, ok)
				if tt.qualitySet {
					require.Equal(t, tt.wantQuality, quality)
				}
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]string{{"url": "http://img/result.png"}},
				})
			}))

			url, err := svc.Generate(context.Background(), imagegen.Request{
				Credential: "sk-test",
				Model:      tt.model,
				Prompt:     "a cover",
			})
			require.NoError(t, err)
			require.Equal(t, "http://img/result.png", url)
		})
	}
}

func TestService_Generate_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		wantUpstream string
	}{
		{
			name: "upstream error message carried through",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
			},
			wantUpstream: "Incorrect API key provided",
		},
		{
			name: "non-success without detail stays generic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "success without an image URL",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data":[]}`))
			},
			wantUpstream: "no image URL in response",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newService(t, tt.handler)
			_, err := svc.Generate(context.Background(), imagegen.Request{
				Credential: "sk-test",
				Model:      imagegen.ModelDallE3,
				Prompt:     "a cover",
			})
			var genErr *errs.GenerationError
			require.ErrorAs(t, err, &genErr)
			require.Equal(t, tt.wantUpstream, genErr.Upstream)
		})
	}
}

func TestService_Fetch(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(ts.Close)

	svc := newService(t, http.NewServeMux())
	data, contentType, err := svc.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, []byte("png-bytes"), data)
}
