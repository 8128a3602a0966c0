package votes

import (
	"context"
	"fmt"
	"time"
)

type TargetType string

const (
	TargetTypePost    TargetType = "post"
	TargetTypeComment TargetType = "comment"
)

func (targetType TargetType) IsValid() bool {
	switch targetType {
	case TargetTypePost, TargetTypeComment:
		return true
	default:
		return false
	}
}

type Value string

const (
	ValueLike    Value = "like"
	ValueDislike Value = "dislike"
)

func (value Value) IsValid() bool {
	switch value {
	case ValueLike, ValueDislike:
		return true
	default:
		return false
	}
}

// Weight is the contribution of the value to a target's score.
func (value Value) Weight() int {
	switch value {
	case ValueLike:
		return 1
	case ValueDislike:
		return -1
	default:
		return 0
	}
}

type Vote struct {
	TargetType TargetType
	TargetID   int64
	UserID     string
	Value      Value
	CreatedAt  time.Time
}

type VoteRepository interface {
	FindByUserTarget(ctx context.Context, targetType TargetType, targetID int64, userID string) (vote *Vote, err error)
	Upsert(ctx context.Context, vote *Vote) (err error)
	DeleteByUserTarget(ctx context.Context, targetType TargetType, targetID int64, userID string) (err error)
	CountByTarget(ctx context.Context, targetType TargetType, targetID int64) (counts map[Value]int, err error)
}

type VoteNotFoundError struct {
	TargetType TargetType
	TargetID   int64
	UserID     string
}

func (err VoteNotFoundError) Error() string {
	return fmt.Sprintf("vote for user %q on %s:%d not found", err.UserID, err.TargetType, err.TargetID)
}

type InvalidTargetTypeError struct {
	TargetType TargetType
}

func (err InvalidTargetTypeError) Error() string {
	return fmt.Sprintf("invalid target type: %q", err.TargetType)
}

type InvalidValueError struct {
	Value Value
}

func (err InvalidValueError) Error() string {
	return fmt.Sprintf("invalid vote value: %q", err.Value)
}
