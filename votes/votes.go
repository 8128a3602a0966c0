package votes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Service struct {
	voteRepo VoteRepository
}

func NewService(voteRepo VoteRepository) *Service {
	return &Service{voteRepo: voteRepo}
}

type TargetVotes struct {
	TargetType TargetType
	TargetID   int64
	Likes      int
	Dislikes   int
	Score      int
	// Selected is the value chosen by the current user, empty when they have not voted.
	Selected Value
}

func (svc *Service) ToggleVote(
	ctx context.Context,
	targetType TargetType,
	targetID int64,
	userID string,
	value Value,
) error {
	if !targetType.IsValid() {
		return &InvalidTargetTypeError{TargetType: targetType}
	}

	if !value.IsValid() {
		return &InvalidValueError{Value: value}
	}

	existingVote, err := svc.findUserVote(ctx, targetType, targetID, userID)
	if err != nil {
		return err
	}

	if existingVote != nil && existingVote.Value == value {
		err = svc.voteRepo.DeleteByUserTarget(ctx, targetType, targetID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove vote: %w", err)
		}

		return nil
	}

	vote := &Vote{
		TargetType: targetType,
		TargetID:   targetID,
		UserID:     userID,
		Value:      value,
		CreatedAt:  time.Now(),
	}

	err = svc.voteRepo.Upsert(ctx, vote)
	if err != nil {
		return fmt.Errorf("failed to set vote: %w", err)
	}

	return nil
}

func (svc *Service) GetTargetVotes(
	ctx context.Context,
	targetType TargetType,
	targetID int64,
	currentUserID *string,
) (*TargetVotes, error) {
	if !targetType.IsValid() {
		return nil, &InvalidTargetTypeError{TargetType: targetType}
	}

	counts, err := svc.voteRepo.CountByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get counts by target: %w", err)
	}

	result := &TargetVotes{
		TargetType: targetType,
		TargetID:   targetID,
		Likes:      counts[ValueLike],
		Dislikes:   counts[ValueDislike],
	}

	result.Score = result.Likes*ValueLike.Weight() + result.Dislikes*ValueDislike.Weight()

	if currentUserID != nil && *currentUserID != "" {
		vote, err := svc.findUserVote(ctx, targetType, targetID, *currentUserID)
		if err != nil {
			return nil, err
		}

		if vote != nil {
			result.Selected = vote.Value
		}
	}

	return result, nil
}

func (svc *Service) findUserVote(ctx context.Context, targetType TargetType, targetID int64, userID string) (*Vote, error) {
	vote, err := svc.voteRepo.FindByUserTarget(ctx, targetType, targetID, userID)
	if err != nil {
		var notFoundErr *VoteNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get user vote: %w", err)
	}

	return vote, nil
}
