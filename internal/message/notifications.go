package message

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mfyhq/collabchat/internal/types"
)

func notificationKey(userId int64, page int) string {
	return fmt.Sprintf("notifications:%d:%d", userId, page)
}

// NotificationPage is the paginated notification feed response, newest first.
type NotificationPage struct {
	Page          int                   `json:"page"`
	TotalPages    int                   `json:"total_pages"`
	Notifications []*types.Notification `json:"notifications"`
}

// Notifications serves one page of the user's feed. Page params are 1-based;
// page 0 (or absent) jumps to the last page. Completed pages are cached under
// the requested page number; read flags on a cached page refresh only once
// the entry expires.
func (s *Service) Notifications(ctx context.Context, user types.User, page int) ([]byte, error) {
	key := notificationKey(user.Id, page)
	if raw, ok := s.cache.Get(ctx, key); ok {
		return raw, nil
	}

	total, err := s.db.CountNotifications(user.Id)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	totalPages := (total + PageSize - 1) / PageSize

	p := page - 1
	if p < 0 {
		p = max(totalPages-1, 0)
	}

	items, err := s.db.ListNotifications(user.Id, p*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	resp := &NotificationPage{
		Page:          p,
		TotalPages:    totalPages,
		Notifications: items,
	}
	if items == nil {
		resp.Notifications = []*types.Notification{}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal notification page: %w", err)
	}

	if p < totalPages-1 {
		s.cache.Set(ctx, key, raw)
	}
	return raw, nil
}

// MarkNotificationsRead flags the given feed entries as read. Entries not
// addressed to the user are skipped by the repository, so a caller cannot
// mark someone else's feed.
func (s *Service) MarkNotificationsRead(ctx context.Context, user types.User, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.MarkNotificationsRead(user.Id, ids); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// ClearNotifications drops the user's entire feed.
func (s *Service) ClearNotifications(ctx context.Context, user types.User) error {
	if err := s.db.DeleteNotifications(user.Id); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
