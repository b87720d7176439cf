package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mfyhq/collabchat/internal/cache"
	"github.com/mfyhq/collabchat/internal/chat"
	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/types"
)

const (
	PageSize = 10

	maxAttachmentCount     = 5
	maxAttachmentSize      = 10 * 1024 * 1024
	maxAttachmentTotalSize = 15 * 1024 * 1024

	todaySystemKey = "messages:SYSTEM:today"
)

var allowedAttachmentTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp",
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
	"video/mp4",
	"audio/mpeg",
	"application/zip",
}

// ObjectStore is the slice of the storage collaborator the service needs.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Service persists messages, keeps the paginated read model and hands every
// persisted message to the router. Persistence always commits before fan-out.
type Service struct {
	log    *log.Logger
	db     database.ChatRepository
	cache  cache.PageCache
	store  ObjectStore
	router *chat.Router
}

func NewService(logger *log.Logger, db database.ChatRepository, pageCache cache.PageCache, store ObjectStore, router *chat.Router) *Service {
	return &Service{
		log:    logger,
		db:     db,
		cache:  pageCache,
		store:  store,
		router: router,
	}
}

type AttachmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type SendRequest struct {
	Content     string              `json:"content"`
	IsLasting   bool                `json:"is_lasting,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

type AttachmentUpdate struct {
	Id         int64     `json:"id"`
	IsSuccess  bool      `json:"is_success"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Page is the paginated read model response. Users and Projects carry the
// denormalized records referenced by the returned messages, resolved with a
// single batched lookup each.
type Page struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Messages   []types.Message `json:"messages"`
	Users      []types.User    `json:"users"`
	Projects   []types.Project `json:"projects"`
}

func validateAttachments(attachments []AttachmentRequest) error {
	if len(attachments) > maxAttachmentCount {
		return ErrTooManyAttachments
	}

	var total int64
	for _, a := range attachments {
		if !slices.Contains(allowedAttachmentTypes, a.Type) {
			return fmt.Errorf("%w: %s", ErrUnsupportedAttachmentType, a.Type)
		}
		if a.Size > maxAttachmentSize {
			return fmt.Errorf("%w: %s", ErrAttachmentTooLarge, a.Name)
		}
		total += a.Size
	}
	if total > maxAttachmentTotalSize {
		return ErrAttachmentsTooLarge
	}
	return nil
}

// presignAttachments validates the declared attachment list and obtains a
// presigned upload URL for each entry. A presign failure for one attachment
// is logged and skips only that attachment.
func (s *Service) presignAttachments(ctx context.Context, attachments []AttachmentRequest) ([]types.Attachment, error) {
	if len(attachments) == 0 {
		return []types.Attachment{}, nil
	}
	if err := validateAttachments(attachments); err != nil {
		return nil, err
	}

	result := make([]types.Attachment, 0, len(attachments))
	for i, a := range attachments {
		key := fmt.Sprintf("attachments/%s-%s", uuid.NewString(), a.Name)
		uploadUrl, err := s.store.PresignPut(ctx, key)
		if err != nil {
			s.log.Printf("message: presign upload for %q: %v", a.Name, err)
			continue
		}

		result = append(result, types.Attachment{
			Id:        int64(i),
			Key:       key,
			UploadUrl: uploadUrl,
			Name:      a.Name,
			Type:      a.Type,
			Size:      a.Size,
		})
	}
	return result, nil
}

// SendSystem persists and broadcasts a system message. Admin only.
func (s *Service) SendSystem(ctx context.Context, sender types.User, req SendRequest) (*types.SystemMessage, error) {
	if sender.Role != types.RoleAdmin {
		return nil, ErrForbidden
	}

	attachments, err := s.presignAttachments(ctx, req.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &types.SystemMessage{
		MessageBase: types.MessageBase{Content: req.Content, Attachments: attachments},
		IsLasting:   req.IsLasting,
	}
	msg, err = s.db.CreateSystemMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("create system message: %w", err)
	}

	// the today window is mutable, drop it so the next read rebuilds it
	s.cache.Delete(ctx, todaySystemKey)
	s.router.RouteSystem(ctx, msg)
	return msg, nil
}

func (s *Service) SendGlobal(ctx context.Context, sender types.User, req SendRequest) (*types.GlobalMessage, error) {
	attachments, err := s.presignAttachments(ctx, req.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &types.GlobalMessage{
		MessageBase: types.MessageBase{Content: req.Content, Attachments: attachments},
		SenderId:    sender.Id,
	}
	msg, err = s.db.CreateGlobalMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("create global message: %w", err)
	}

	s.router.RouteGlobal(ctx, msg)
	return msg, nil
}

func (s *Service) SendPrivate(ctx context.Context, sender types.User, recipientId int64, req SendRequest) (*types.PrivateMessage, error) {
	recipient, err := s.db.GetUserById(recipientId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}

	attachments, err := s.presignAttachments(ctx, req.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &types.PrivateMessage{
		MessageBase: types.MessageBase{Content: req.Content, Attachments: attachments},
		SenderId:    sender.Id,
		RecipientId: recipient.Id,
		PairId:      types.PairId(sender.Id, recipient.Id),
	}
	msg, err = s.db.CreatePrivateMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("create private message: %w", err)
	}

	s.router.RouteToUser(ctx, sender, recipient.User(), msg)
	return msg, nil
}

func (s *Service) SendProject(ctx context.Context, sender types.User, projectId int64, req SendRequest) (*types.ProjectMessage, error) {
	if _, err := s.db.GetProjectById(projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	if !s.db.IsTranslator(projectId, sender.Id) {
		return nil, ErrForbidden
	}

	attachments, err := s.presignAttachments(ctx, req.Attachments)
	if err != nil {
		return nil, err
	}

	msg := &types.ProjectMessage{
		MessageBase: types.MessageBase{Content: req.Content, Attachments: attachments},
		SenderId:    sender.Id,
		ProjectId:   projectId,
	}
	msg, err = s.db.CreateProjectMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("create project message: %w", err)
	}

	s.router.RouteProject(ctx, msg)
	return msg, nil
}

func pageKey(kind types.MessageKind, scope string, page int) string {
	if scope == "" {
		return fmt.Sprintf("messages:%s:%d", kind, page)
	}
	return fmt.Sprintf("messages:%s:%s:%d", kind, scope, page)
}

// getPage runs one paginated read with the don't-cache-the-tail policy: a
// page is cached only when it is strictly earlier than the last page, judged
// against the same total count used to build the response. Completed pages
// never change; the last page grows as messages append.
func (s *Service) getPage(
	ctx context.Context,
	key string,
	count func() (int, error),
	list func(offset, limit int) ([]types.Message, error),
	page int,
) ([]byte, error) {
	if raw, ok := s.cache.Get(ctx, key); ok {
		return raw, nil
	}

	total, err := count()
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	totalPages := (total + PageSize - 1) / PageSize

	// page params are 1-based on the wire
	p := max(page-1, 0)
	msgs, err := list(p*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	resp, err := s.buildPage(p, totalPages, msgs)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}

	if p < totalPages-1 {
		s.cache.Set(ctx, key, raw)
	}
	return raw, nil
}

func (s *Service) SystemPage(ctx context.Context, page int) ([]byte, error) {
	return s.getPage(ctx, pageKey(types.KindSystem, "", page),
		s.db.CountSystemMessages,
		func(offset, limit int) ([]types.Message, error) {
			msgs, err := s.db.ListSystemMessages(offset, limit)
			return systemMessages(msgs), err
		},
		page,
	)
}

func (s *Service) GlobalPage(ctx context.Context, page int) ([]byte, error) {
	return s.getPage(ctx, pageKey(types.KindGlobal, "", page),
		s.db.CountGlobalMessages,
		func(offset, limit int) ([]types.Message, error) {
			msgs, err := s.db.ListGlobalMessages(offset, limit)
			return globalMessages(msgs), err
		},
		page,
	)
}

// PrivatePage serves one page of the conversation between the caller and the
// other participant, keyed by the canonical pair id.
func (s *Service) PrivatePage(ctx context.Context, userId, otherId int64, page int) ([]byte, error) {
	pairId := types.PairId(userId, otherId)
	return s.getPage(ctx, pageKey(types.KindPrivate, fmt.Sprint(pairId), page),
		func() (int, error) { return s.db.CountPrivateMessages(pairId) },
		func(offset, limit int) ([]types.Message, error) {
			msgs, err := s.db.ListPrivateMessages(pairId, offset, limit)
			return privateMessages(msgs), err
		},
		page,
	)
}

func (s *Service) ProjectPage(ctx context.Context, projectId int64, page int) ([]byte, error) {
	if _, err := s.db.GetProjectById(projectId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return s.getPage(ctx, pageKey(types.KindProject, fmt.Sprint(projectId), page),
		func() (int, error) { return s.db.CountProjectMessages(projectId) },
		func(offset, limit int) ([]types.Message, error) {
			msgs, err := s.db.ListProjectMessages(projectId, offset, limit)
			return projectMessages(msgs), err
		},
		page,
	)
}

// TodaySystem returns system messages from the last 24 hours plus all
// lasting ones. The result is cached until the next system send evicts it.
func (s *Service) TodaySystem(ctx context.Context) ([]byte, error) {
	if raw, ok := s.cache.Get(ctx, todaySystemKey); ok {
		return raw, nil
	}

	msgs, err := s.db.SystemMessagesSince(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list today system messages: %w", err)
	}

	raw, err := json.Marshal(systemMessages(msgs))
	if err != nil {
		return nil, fmt.Errorf("marshal today system messages: %w", err)
	}

	s.cache.Set(ctx, todaySystemKey, raw)
	return raw, nil
}

// Unread aggregates everything addressed to the user since they were last
// online, across all four kinds, and advances their last-online timestamp as
// a side effect of the read.
func (s *Service) Unread(ctx context.Context, user types.User) (*Page, error) {
	lastOnline := user.LastOnline

	system, err := s.db.SystemMessagesSince(lastOnline)
	if err != nil {
		return nil, fmt.Errorf("unread system messages: %w", err)
	}
	global, err := s.db.GlobalMessagesSince(lastOnline)
	if err != nil {
		return nil, fmt.Errorf("unread global messages: %w", err)
	}
	private, err := s.db.PrivateMessagesFor(user.Id, lastOnline)
	if err != nil {
		return nil, fmt.Errorf("unread private messages: %w", err)
	}

	projectIds, err := s.db.ProjectIdsForUser(user.Id)
	if err != nil {
		return nil, fmt.Errorf("resolve memberships: %w", err)
	}
	project, err := s.db.ProjectMessagesSince(projectIds, lastOnline)
	if err != nil {
		return nil, fmt.Errorf("unread project messages: %w", err)
	}

	var msgs []types.Message
	msgs = append(msgs, systemMessages(system)...)
	msgs = append(msgs, globalMessages(global)...)
	msgs = append(msgs, privateMessages(private)...)
	msgs = append(msgs, projectMessages(project)...)

	resp, err := s.buildPage(0, 0, msgs)
	if err != nil {
		return nil, err
	}

	if err := s.db.UpdateLastOnline(user.Id, time.Now().UTC()); err != nil {
		s.log.Printf("message: update last online for user %d: %v", user.Id, err)
	}
	return resp, nil
}

// buildPage assembles the response and resolves the distinct sender and
// project ids referenced by the returned messages in one batched lookup per
// kind.
func (s *Service) buildPage(page, totalPages int, msgs []types.Message) (*Page, error) {
	userIds := make(map[int64]struct{})
	projectIds := make(map[int64]struct{})
	for _, msg := range msgs {
		switch m := msg.(type) {
		case *types.GlobalMessage:
			userIds[m.SenderId] = struct{}{}
		case *types.PrivateMessage:
			userIds[m.SenderId] = struct{}{}
			userIds[m.RecipientId] = struct{}{}
		case *types.ProjectMessage:
			userIds[m.SenderId] = struct{}{}
			projectIds[m.ProjectId] = struct{}{}
		}
	}

	resp := &Page{
		Page:       page,
		TotalPages: totalPages,
		Messages:   msgs,
		Users:      []types.User{},
		Projects:   []types.Project{},
	}
	if msgs == nil {
		resp.Messages = []types.Message{}
	}

	if len(userIds) > 0 {
		users, err := s.db.GetUsersByIds(keys(userIds))
		if err != nil {
			return nil, fmt.Errorf("batch fetch users: %w", err)
		}
		resp.Users = users
	}
	if len(projectIds) > 0 {
		projects, err := s.db.GetProjectsByIds(keys(projectIds))
		if err != nil {
			return nil, fmt.Errorf("batch fetch projects: %w", err)
		}
		resp.Projects = projects
	}

	return resp, nil
}

func keys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func systemMessages(msgs []*types.SystemMessage) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	return out
}

func globalMessages(msgs []*types.GlobalMessage) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	return out
}

func privateMessages(msgs []*types.PrivateMessage) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	return out
}

func projectMessages(msgs []*types.ProjectMessage) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	return out
}
