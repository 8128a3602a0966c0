package communities

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	communityRepo CommunityRepository
}

func NewService(communityRepo CommunityRepository) *Service {
	return &Service{
		communityRepo: communityRepo,
	}
}

type CreateCommunityRequest struct {
	Name        string
	Description string
}

func (svc *Service) CreateCommunity(ctx context.Context, req CreateCommunityRequest) (*Community, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	community := &Community{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}

	err := svc.communityRepo.Insert(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	return community, nil
}

func (svc *Service) GetCommunity(ctx context.Context, id int64) (*Community, error) {
	community, err := svc.communityRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find community: %w", err)
	}

	return community, nil
}

func (svc *Service) ListCommunities(ctx context.Context) ([]*Community, error) {
	communities, err := svc.communityRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}

	return communities, nil
}
