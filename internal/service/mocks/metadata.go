package mocks

import (
	"context"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockMetadataFetcher implements service.MetadataFetcher for testing
type MockMetadataFetcher struct {
	mock.Mock
}

func (m *MockMetadataFetcher) Fetch(ctx context.Context, pageURL string) (*models.Metadata, error) {
	args := m.Called(ctx, pageURL)
	meta, _ := args.Get(0).(*models.Metadata)
	return meta, args.Error(1)
}
