package votes_test

import (
	"context"
	"testing"

	"github.com/gupshupx/gupshupx/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type voteKey struct {
	targetType votes.TargetType
	targetID   int64
	userID     string
}

type memoryVoteRepo struct {
	votes map[voteKey]*votes.Vote
}

func newMemoryVoteRepo() *memoryVoteRepo {
	return &memoryVoteRepo{votes: make(map[voteKey]*votes.Vote)}
}

func (repo *memoryVoteRepo) FindByUserTarget(_ context.Context, targetType votes.TargetType, targetID int64, userID string) (*votes.Vote, error) {
	vote, ok := repo.votes[voteKey{targetType, targetID, userID}]
	if !ok {
		return nil, &votes.VoteNotFoundError{TargetType: targetType, TargetID: targetID, UserID: userID}
	}

	return vote, nil
}

func (repo *memoryVoteRepo) Upsert(_ context.Context, vote *votes.Vote) error {
	repo.votes[voteKey{vote.TargetType, vote.TargetID, vote.UserID}] = vote

	return nil
}

func (repo *memoryVoteRepo) DeleteByUserTarget(_ context.Context, targetType votes.TargetType, targetID int64, userID string) error {
	delete(repo.votes, voteKey{targetType, targetID, userID})

	return nil
}

func (repo *memoryVoteRepo) CountByTarget(_ context.Context, targetType votes.TargetType, targetID int64) (map[votes.Value]int, error) {
	counts := make(map[votes.Value]int)

	for key, vote := range repo.votes {
		if key.targetType == targetType && key.targetID == targetID {
			counts[vote.Value]++
		}
	}

	return counts, nil
}

func TestService_ToggleVote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := votes.NewService(newMemoryVoteRepo())
	alice := "alice"

	require.NoError(t, svc.ToggleVote(ctx, votes.TargetTypePost, 1, "alice", votes.ValueLike))
	require.NoError(t, svc.ToggleVote(ctx, votes.TargetTypePost, 1, "bob", votes.ValueLike))
	require.NoError(t, svc.ToggleVote(ctx, votes.TargetTypePost, 1, "carol", votes.ValueDislike))

	result, err := svc.GetTargetVotes(ctx, votes.TargetTypePost, 1, &alice)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Likes)
	assert.Equal(t, 1, result.Dislikes)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, votes.ValueLike, result.Selected)

	// same value again removes the vote
	require.NoError(t, svc.ToggleVote(ctx, votes.TargetTypePost, 1, "alice", votes.ValueLike))

	result, err = svc.GetTargetVotes(ctx, votes.TargetTypePost, 1, &alice)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Likes)
	assert.Empty(t, result.Selected)

	// a different value replaces it
	require.NoError(t, svc.ToggleVote(ctx, votes.TargetTypePost, 1, "bob", votes.ValueDislike))

	result, err = svc.GetTargetVotes(ctx, votes.TargetTypePost, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Likes)
	assert.Equal(t, 2, result.Dislikes)
	assert.Equal(t, -2, result.Score)

	other, err := svc.GetTargetVotes(ctx, votes.TargetTypeComment, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, other.Likes+other.Dislikes)
}

func TestService_ToggleVoteInvalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := votes.NewService(newMemoryVoteRepo())

	err := svc.ToggleVote(ctx, votes.TargetType("user"), 1, "alice", votes.ValueLike)

	var targetErr *votes.InvalidTargetTypeError
	require.ErrorAs(t, err, &targetErr)

	err = svc.ToggleVote(ctx, votes.TargetTypePost, 1, "alice", votes.Value("love"))

	var valueErr *votes.InvalidValueError
	require.ErrorAs(t, err, &valueErr)

	_, err = svc.GetTargetVotes(ctx, votes.TargetType(""), 1, nil)
	require.ErrorAs(t, err, &targetErr)
}
