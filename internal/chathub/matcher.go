package chathub

import (
	"context"
	"log/slog"
	"math/rand"

	"fadechat/backend/internal/models"
	"fadechat/backend/internal/storage"
	apperrors "fadechat/backend/pkg/errors"

	"github.com/samber/lo"
)

// MatcherService pairs a requesting connection with another present user.
//
// Every call is a self-contained snapshot-and-match: snapshot presence, filter
// candidates, pick one uniformly at random, create the chat and join both
// connections. There is no cross-call waiting queue and no fairness guarantee;
// a caller that loses the race to a vanishing partner gets
// ErrPartnerUnavailable and re-invokes. No lock spans the sequence.
type MatcherService struct {
	Presence *PresenceRegistry
	Groups   *GroupManager
	Storage  storage.Storage
	Log      *slog.Logger
}

func NewMatcherService(presence *PresenceRegistry, groups *GroupManager, s storage.Storage, log *slog.Logger) *MatcherService {
	return &MatcherService{
		Presence: presence,
		Groups:   groups,
		Storage:  s,
		Log:      log,
	}
}

// FindRandomChat matches the requester with any present user.
func (m *MatcherService) FindRandomChat(ctx context.Context, connID string) (int, error) {
	return m.FindRandomChatWithFilters(ctx, connID, nil)
}

// FindRandomChatWithFilters matches the requester with a present user passing
// the given filters. The new chat id is returned to the requester only.
func (m *MatcherService) FindRandomChatWithFilters(ctx context.Context, connID string, filters *models.SearchFilters) (int, error) {
	userID := m.Presence.GetUserID(connID)
	if userID == "" {
		return 0, ErrUnauthenticated
	}

	requester, err := m.Storage.GetUserByID(ctx, userID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "failed to load requester profile", err)
	}
	if requester == nil {
		return 0, ErrProfileNotFound
	}

	// Snapshot the present users, excluding the requester's own connection.
	// Other connections of the same user are excluded too: matching a user
	// with themselves is never valid.
	candidateIDs := lo.Filter(m.Presence.ActiveUserIDs(connID), func(id string, _ int) bool {
		return id != userID
	})
	if len(candidateIDs) == 0 {
		return 0, ErrNoCandidates
	}

	// Resolve each candidate's profile. Users without a stored profile are
	// skipped silently; only the requester's own missing profile is an error.
	var candidates []*models.User
	for _, id := range candidateIDs {
		candidate, err := m.Storage.GetUserByID(ctx, id)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.CodeInternal, "failed to load candidate profile", err)
		}
		if candidate != nil {
			candidates = append(candidates, candidate)
		}
	}

	if filters != nil {
		candidates = applySearchFilters(candidates, requester, filters)
	}
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	selected := candidates[rand.Intn(len(candidates))]

	// The candidate may have disconnected since the snapshot. No retry loop
	// here; the caller re-invokes.
	partnerConnID, ok := m.Presence.GetConnectionForUser(selected.ID)
	if !ok {
		return 0, ErrPartnerUnavailable
	}

	chat, err := m.Storage.CreateChat(ctx, userID, selected.ID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodePersistenceFailure, "failed to create chat", err)
	}

	m.Groups.JoinGroup(connID, chat.ID)
	m.Groups.JoinGroup(partnerConnID, chat.ID)

	m.Log.Info("matched users into chat", "chat", chat.ID, "requester", userID, "partner", selected.ID)
	return chat.ID, nil
}

// applySearchFilters narrows candidates by the requester's criteria.
// Unconstrained attributes pass through: a disabled age range, an empty
// gender preference set and an unset same-age flag each accept everyone.
func applySearchFilters(candidates []*models.User, requester *models.User, filters *models.SearchFilters) []*models.User {
	filtered := candidates

	if filters.AgeRangeEnabled && requester.Age != nil {
		filtered = lo.Filter(filtered, func(u *models.User, _ int) bool {
			return u.Age != nil && *u.Age >= filters.MinAge && *u.Age <= filters.MaxAge
		})
	}

	if len(filters.GenderPreferences) > 0 {
		filtered = lo.Filter(filtered, func(u *models.User, _ int) bool {
			return u.Gender != "" && lo.Contains(filters.GenderPreferences, u.Gender)
		})
	}

	if filters.SameAgeGroupOnly && requester.Age != nil {
		filtered = lo.Filter(filtered, func(u *models.User, _ int) bool {
			if u.Age == nil {
				return false
			}
			diff := *u.Age - *requester.Age
			if diff < 0 {
				diff = -diff
			}
			return diff <= models.SameAgeGroupSpread
		})
	}

	return filtered
}
