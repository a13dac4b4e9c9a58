// Package slack wraps the Slack Web API with the failure semantics the rest
// of the application relies on: outbound calls are logged on error and
// surfaced as boolean success flags, never propagated as hard failures.
package slack

import (
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"
)

// API is the subset of the Slack Web API the bot uses. *slackapi.Client
// satisfies it; tests substitute a fake.
type API interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	OpenConversation(params *slackapi.OpenConversationParameters) (*slackapi.Channel, bool, bool, error)
	OpenView(triggerID string, view slackapi.ModalViewRequest) (*slackapi.ViewResponse, error)
	UpdateView(view slackapi.ModalViewRequest, externalID, hash, viewID string) (*slackapi.ViewResponse, error)
	GetUsersInConversation(params *slackapi.GetUsersInConversationParameters) ([]string, string, error)
	GetUserInfo(user string) (*slackapi.User, error)
	GetConversationsForUser(params *slackapi.GetConversationsForUserParameters) ([]slackapi.Channel, string, error)
}

// Client is the bot-facing Slack API wrapper.
type Client struct {
	api API
	log *zap.Logger
}

// NewClient builds a Client over the real Slack Web API.
func NewClient(token string, log *zap.Logger) *Client {
	return &Client{api: slackapi.New(token), log: log}
}

// NewWithAPI builds a Client over an arbitrary API implementation.
func NewWithAPI(api API, log *zap.Logger) *Client {
	return &Client{api: api, log: log}
}

// PostMessage posts blocks to a channel. Returns the message timestamp and
// whether the call succeeded.
func (c *Client) PostMessage(channel string, blocks []slackapi.Block, text string) (string, bool) {
	_, ts, err := c.api.PostMessage(channel,
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(text, false),
	)
	if err != nil {
		c.log.Error("post message failed", zap.String("channel", channel), zap.Error(err))
		return "", false
	}
	return ts, true
}

// UpdateMessage rewrites an existing message in place.
func (c *Client) UpdateMessage(channel, ts string, blocks []slackapi.Block, text string) bool {
	_, _, _, err := c.api.UpdateMessage(channel, ts,
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(text, false),
	)
	if err != nil {
		c.log.Error("update message failed", zap.String("channel", channel), zap.Error(err))
		return false
	}
	return true
}

// SendDM opens (or reuses) the IM channel with a user and posts there.
func (c *Client) SendDM(userID string, blocks []slackapi.Block, text string) bool {
	ch, _, _, err := c.api.OpenConversation(&slackapi.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		c.log.Error("open conversation failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	_, ok := c.PostMessage(ch.ID, blocks, text)
	return ok
}

// OpenModal opens a modal view for the given trigger.
func (c *Client) OpenModal(triggerID string, view slackapi.ModalViewRequest) bool {
	if _, err := c.api.OpenView(triggerID, view); err != nil {
		c.log.Error("open view failed", zap.Error(err))
		return false
	}
	return true
}

// UpdateModal replaces an open modal, used when the entry count changes.
func (c *Client) UpdateModal(viewID, hash string, view slackapi.ModalViewRequest) bool {
	if _, err := c.api.UpdateView(view, "", hash, viewID); err != nil {
		c.log.Error("update view failed", zap.String("view", viewID), zap.Error(err))
		return false
	}
	return true
}

// ChannelMembers returns all member IDs of a channel, following pagination.
func (c *Client) ChannelMembers(channel string) ([]string, error) {
	var members []string
	cursor := ""
	for {
		page, next, err := c.api.GetUsersInConversation(&slackapi.GetUsersInConversationParameters{
			ChannelID: channel,
			Cursor:    cursor,
			Limit:     200,
		})
		if err != nil {
			return nil, err
		}
		members = append(members, page...)
		if next == "" {
			return members, nil
		}
		cursor = next
	}
}

// UserInfo fetches a user's profile.
func (c *Client) UserInfo(userID string) (*slackapi.User, error) {
	return c.api.GetUserInfo(userID)
}

// UserRealName resolves a display name for logging and confirmations,
// falling back to "Unknown" on any API failure.
func (c *Client) UserRealName(userID string) string {
	u, err := c.UserInfo(userID)
	if err != nil || u == nil {
		return "Unknown"
	}
	if u.Profile.RealName != "" {
		return u.Profile.RealName
	}
	return u.Name
}

// BotChannels lists the channels the bot itself is a member of.
func (c *Client) BotChannels() ([]string, error) {
	var channels []string
	cursor := ""
	for {
		page, next, err := c.api.GetConversationsForUser(&slackapi.GetConversationsForUserParameters{
			Cursor: cursor,
			Limit:  200,
		})
		if err != nil {
			return nil, err
		}
		for _, ch := range page {
			channels = append(channels, ch.ID)
		}
		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

// UsersFromChannels returns the unique non-bot, non-deleted members across
// the given channels. Per-channel failures are logged and skipped so a single
// bad channel cannot empty the roster.
func (c *Client) UsersFromChannels(channels []string) []string {
	seen := make(map[string]struct{})
	var users []string
	for _, ch := range channels {
		members, err := c.ChannelMembers(ch)
		if err != nil {
			c.log.Warn("channel members fetch failed", zap.String("channel", ch), zap.Error(err))
			continue
		}
		for _, id := range members {
			if _, dup := seen[id]; dup {
				continue
			}
			info, err := c.UserInfo(id)
			if err != nil {
				c.log.Warn("user info fetch failed", zap.String("user", id), zap.Error(err))
				continue
			}
			if info.IsBot || info.Deleted {
				continue
			}
			seen[id] = struct{}{}
			users = append(users, id)
		}
	}
	return users
}
