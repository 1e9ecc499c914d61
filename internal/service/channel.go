package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// ChannelService computes the derived views over users, subscriptions,
// videos, and watch history. Everything here is read-only except the
// explicit history-append and subscription-toggle operations.
type ChannelService struct {
	users  repository.UserRepository
	videos repository.VideoRepository
	subs   repository.SubscriptionRepository
	logger *slog.Logger
}

func NewChannelService(
	users repository.UserRepository,
	videos repository.VideoRepository,
	subs repository.SubscriptionRepository,
	logger *slog.Logger,
) *ChannelService {
	return &ChannelService{
		users:  users,
		videos: videos,
		subs:   subs,
		logger: logger,
	}
}

// Profile resolves a channel by username and derives its subscription
// aggregates from the viewer's perspective.
//
// An unknown username is a not-found error; a known channel with zero
// subscribers is a normal result.
func (s *ChannelService) Profile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is missing")
	}

	channel, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("channel", username)
		}
		return nil, err
	}

	subscribers, err := s.subs.CountSubscribers(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("service/channel: counting subscribers: %w", err)
	}
	subscribedTo, err := s.subs.CountSubscribedTo(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("service/channel: counting subscribed-to: %w", err)
	}
	isSubscribed := false
	if viewerID != "" {
		isSubscribed, err = s.subs.Exists(ctx, viewerID, channel.ID)
		if err != nil {
			return nil, fmt.Errorf("service/channel: checking viewer subscription: %w", err)
		}
	}

	return &model.ChannelProfile{
		Username:                  channel.Username,
		FullName:                  channel.FullName,
		Email:                     channel.Email,
		AvatarURL:                 channel.AvatarURL,
		CoverURL:                  channel.CoverURL,
		SubscribersCount:          subscribers,
		ChannelsSubscribedToCount: subscribedTo,
		IsSubscribed:              isSubscribed,
	}, nil
}

// WatchHistory resolves the user's ordered video references, enriching each
// with its owner's public projection. Output order matches the stored
// reference order; references to deleted videos are dropped silently.
func (s *ChannelService) WatchHistory(ctx context.Context, userID string) ([]model.WatchedVideo, error) {
	videoIDs, err := s.users.WatchHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := make([]model.WatchedVideo, 0, len(videoIDs))
	owners := make(map[string]model.VideoOwner)

	for _, videoID := range videoIDs {
		video, err := s.videos.GetByID(ctx, videoID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return nil, err
		}

		owner, ok := owners[video.OwnerID]
		if !ok {
			ownerUser, err := s.users.GetByID(ctx, video.OwnerID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					continue
				}
				return nil, err
			}
			owner = ownerUser.Owner()
			owners[video.OwnerID] = owner
		}

		history = append(history, model.WatchedVideo{Video: *video, Owner: owner})
	}

	return history, nil
}

// AddToHistory appends a video reference to the user's watch history. The
// video must exist at append time; it may be deleted later, at which point
// reads skip it.
func (s *ChannelService) AddToHistory(ctx context.Context, userID, videoID string) error {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		return err
	}
	return s.users.AppendWatchHistory(ctx, userID, videoID)
}

// ToggleSubscription subscribes the viewer to the channel, or unsubscribes
// if an edge already exists. Returns the resulting subscribed state.
func (s *ChannelService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, apperror.ValidationFailed("channel", "cannot subscribe to your own channel")
	}

	if _, err := s.users.GetByID(ctx, channelID); err != nil {
		return false, err
	}

	exists, err := s.subs.Exists(ctx, subscriberID, channelID)
	if err != nil {
		return false, err
	}

	if exists {
		if err := s.subs.Delete(ctx, subscriberID, channelID); err != nil {
			return false, err
		}
		s.logger.Info("unsubscribed",
			slog.String("subscriberID", subscriberID),
			slog.String("channelID", channelID),
		)
		return false, nil
	}

	sub := &model.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
	if err := s.subs.Create(ctx, sub); err != nil {
		return false, err
	}
	s.logger.Info("subscribed",
		slog.String("subscriberID", subscriberID),
		slog.String("channelID", channelID),
	)
	return true, nil
}
