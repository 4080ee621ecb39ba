package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"

	"jse_extractor/pkg/models"
)

func TestClassifyBackendError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, models.ErrBackendTransient},
		{"googleapi 429", &googleapi.Error{Code: 429}, models.ErrBackendTransient},
		{"googleapi 503", &googleapi.Error{Code: 503}, models.ErrBackendTransient},
		{"googleapi 401", &googleapi.Error{Code: 401}, models.ErrBackendPermanent},
		{"googleapi 400", &googleapi.Error{Code: 400}, models.ErrBackendPermanent},
		{"rate limit message", errors.New("rate limit exceeded"), models.ErrBackendTransient},
		{"quota exhausted message", errors.New("quota exceeded for this project"), models.ErrBackendPermanent},
		{"bad api key message", errors.New("API key not valid"), models.ErrBackendPermanent},
		{"wrapped quota", fmt.Errorf("generate: %w", errors.New("monthly quota exhausted")), models.ErrBackendPermanent},
		{"unknown message", errors.New("something odd"), models.ErrBackendTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyBackendError(tc.err); got != tc.want {
				t.Errorf("ClassifyBackendError(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
