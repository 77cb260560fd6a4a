package letterapi

import (
	"time"

	"letterbox/cmd/internal/letter"
)

type createRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsPublic *bool   `json:"isPublic"`
}

type updateRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsPublic *bool   `json:"isPublic"`
}

type guestUpdateRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	IsPublic   *bool   `json:"isPublic"`
	GuestToken string  `json:"guestToken"`
}

type guestDeleteRequest struct {
	GuestToken string `json:"guestToken"`
}

type authorResponse struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

type letterResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	IsPublic  bool            `json:"isPublic"`
	Slug      string          `json:"slug"`
	ReadCount int64           `json:"readCount"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Author    *authorResponse `json:"author,omitempty"`
}

// guestLetterResponse is only ever sent by the guest create endpoint.
type guestLetterResponse struct {
	letterResponse
	GuestToken string `json:"guestToken"`
}

type pageResponse struct {
	Items   []letterResponse `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	HasMore bool             `json:"hasMore"`
}

func toLetterResponse(l letter.Letter) letterResponse {
	out := letterResponse{
		ID:        l.ID,
		Title:     l.Title,
		Content:   l.Content,
		IsPublic:  l.IsPublic,
		Slug:      l.Slug,
		ReadCount: l.ReadCount,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Author != nil {
		out.Author = &authorResponse{ID: l.Author.ID, Name: l.Author.Name}
	}
	return out
}

func toPageResponse(p letter.Page) pageResponse {
	items := make([]letterResponse, 0, len(p.Items))
	for _, l := range p.Items {
		items = append(items, toLetterResponse(l))
	}
	return pageResponse{
		Items:   items,
		Total:   p.Total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasMore: p.HasMore,
	}
}
