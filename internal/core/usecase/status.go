package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
	"github.com/kirillkom/doc-simplifier/internal/core/ports"
)

type StatusUseCase struct {
	registry ports.ModelRegistry
}

func NewStatusUseCase(registry ports.ModelRegistry) *StatusUseCase {
	return &StatusUseCase{registry: registry}
}

// Check returns the status even on failure so callers can report what was reachable.
func (uc *StatusUseCase) Check(ctx context.Context) (*domain.EndpointStatus, error) {
	status, err := uc.registry.CheckModel(ctx)
	if err != nil {
		return &status, fmt.Errorf("check inference endpoint: %w", err)
	}
	return &status, nil
}
