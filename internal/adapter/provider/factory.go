package provider

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates the in-memory provider should be used.
	ModeMock = "MOCK"
)

// NewProvider returns a MockClient when mode is MOCK, otherwise a Client for baseURL.
func NewProvider(mode, baseURL, apiKey string, timeout time.Duration) Provider {
	if mode == ModeMock {
		logrus.Infof("%s=%s detected, using mock provider", EnvGogoMode, ModeMock)
		return NewMockClient()
	}
	if apiKey == "" {
		logrus.Warn("no provider API key configured")
	}
	return NewClient(baseURL, apiKey, timeout)
}
