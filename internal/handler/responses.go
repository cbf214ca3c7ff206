package handler

import (
	"time"

	"github.com/hitoshi/kudos/internal/model"
)

type organizationResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	Color     string `json:"color"`
}

type userSummaryResponse struct {
	ID           string                `json:"id"`
	FullName     string                `json:"full_name"`
	Position     string                `json:"position"`
	AvatarURL    *string               `json:"avatar_url"`
	Organization *organizationResponse `json:"organization"`
}

type profileResponse struct {
	ID             string                `json:"id"`
	Email          string                `json:"email"`
	FullName       string                `json:"full_name"`
	AvatarURL      *string               `json:"avatar_url"`
	OrganizationID string                `json:"organization_id"`
	Position       string                `json:"position"`
	IsAdmin        bool                  `json:"is_admin"`
	CreatedAt      time.Time             `json:"created_at"`
	Organization   *organizationResponse `json:"organization"`
}

// feedItemResponse はフィードの1件。匿名の場合from_userは常にnull。
type feedItemResponse struct {
	ID          string               `json:"id"`
	Message     string               `json:"message"`
	IsAnonymous bool                 `json:"is_anonymous"`
	CreatedAt   time.Time            `json:"created_at"`
	TimeAgo     string               `json:"time_ago"`
	FromUser    *userSummaryResponse `json:"from_user"`
	ToUser      *userSummaryResponse `json:"to_user"`
}

type receivedComplimentResponse struct {
	ID          string               `json:"id"`
	Message     string               `json:"message"`
	IsAnonymous bool                 `json:"is_anonymous"`
	CreatedAt   time.Time            `json:"created_at"`
	TimeAgo     string               `json:"time_ago"`
	FromUser    *userSummaryResponse `json:"from_user"`
}

type receivedSummaryResponse struct {
	Count  int                          `json:"count"`
	Recent []receivedComplimentResponse `json:"recent"`
}

type leaderboardEntryResponse struct {
	User              userSummaryResponse          `json:"user"`
	ComplimentCount   int                          `json:"compliment_count"`
	RecentCompliments []receivedComplimentResponse `json:"recent_compliments"`
}

type complimentResponse struct {
	ID          string    `json:"id"`
	FromUserID  *string   `json:"from_user_id"`
	ToUserID    string    `json:"to_user_id"`
	Message     string    `json:"message"`
	IsAnonymous bool      `json:"is_anonymous"`
	IsModerated bool      `json:"is_moderated"`
	CreatedAt   time.Time `json:"created_at"`
}

type confessionResponse struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	IsOwn         bool      `json:"is_own"`
	TimeAgo       string    `json:"time_ago"`
	TimeRemaining string    `json:"time_remaining"`
}

func toOrganizationResponse(o *model.Organization) *organizationResponse {
	if o == nil {
		return nil
	}
	return &organizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		ShortCode: o.ShortCode,
		Color:     o.Color,
	}
}

func toUserSummaryResponse(u *model.UserSummary) *userSummaryResponse {
	if u == nil {
		return nil
	}
	return &userSummaryResponse{
		ID:           u.ID,
		FullName:     u.FullName,
		Position:     u.Position,
		AvatarURL:    u.AvatarURL,
		Organization: toOrganizationResponse(u.Organization),
	}
}

func toProfileResponse(p *model.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		ID:             p.ID,
		Email:          p.Email,
		FullName:       p.FullName,
		AvatarURL:      p.AvatarURL,
		OrganizationID: p.OrganizationID,
		Position:       p.Position,
		IsAdmin:        p.IsAdmin,
		CreatedAt:      p.CreatedAt,
		Organization:   toOrganizationResponse(p.Organization),
	}
}

func toReceivedResponses(rows []model.ReceivedCompliment, now time.Time) []receivedComplimentResponse {
	out := make([]receivedComplimentResponse, len(rows))
	for i, c := range rows {
		out[i] = receivedComplimentResponse{
			ID:          c.ID,
			Message:     c.Message,
			IsAnonymous: c.IsAnonymous,
			CreatedAt:   c.CreatedAt,
			TimeAgo:     model.TimeAgo(c.CreatedAt, now),
		}
		if !c.IsAnonymous {
			out[i].FromUser = toUserSummaryResponse(c.FromUser)
		}
	}
	return out
}

func toComplimentResponse(c *model.Compliment) complimentResponse {
	resp := complimentResponse{
		ID:          c.ID,
		ToUserID:    c.ToUserID,
		Message:     c.Message,
		IsAnonymous: c.IsAnonymous,
		IsModerated: c.IsModerated,
		CreatedAt:   c.CreatedAt,
	}
	if !c.IsAnonymous {
		from := c.FromUserID
		resp.FromUserID = &from
	}
	return resp
}
