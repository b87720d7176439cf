package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mfyhq/collabchat/internal/database"
	"github.com/mfyhq/collabchat/internal/message"
	"github.com/mfyhq/collabchat/internal/types"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type JoinProjectRequest struct {
	ProjectId int64 `json:"project_id"`
}

type SendMessageRequest struct {
	Kind        string `json:"kind"`
	RecipientId int64  `json:"recipient_id,omitempty"`
	ProjectId   int64  `json:"project_id,omitempty"`
	message.SendRequest
}

type MarkNotificationsReadRequest struct {
	Ids []int64 `json:"ids"`
}

type AddConversationRequest struct {
	RecipientId *int64 `json:"recipient_id,omitempty"`
	ProjectId   *int64 `json:"project_id,omitempty"`
}

type UpdateAttachmentsRequest struct {
	Kind        string                     `json:"kind"`
	MessageId   int64                      `json:"message_id"`
	Attachments []message.AttachmentUpdate `json:"attachments"`
}

// currentUser resolves the authenticated user for the request.
func (s *CollabChatApp) currentUser(r *http.Request) (types.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	user, err := s.db.GetUserById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewUnauthorizedError()
		}
		return types.User{}, NewInternalServerError(err)
	}

	return user.User(), nil
}

func (s *CollabChatApp) serviceError(err error) *ApiError {
	switch {
	case errors.Is(err, message.ErrNotFound):
		return NewNotFoundError()
	case errors.Is(err, message.ErrForbidden):
		return NewForbiddenError()
	case errors.Is(err, message.ErrTooManyAttachments),
		errors.Is(err, message.ErrAttachmentsTooLarge),
		errors.Is(err, message.ErrAttachmentTooLarge),
		errors.Is(err, message.ErrUnsupportedAttachmentType):
		return NewValidationError(err)
	default:
		return NewInternalServerError(err)
	}
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (s *CollabChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Nickname == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateUserParams{
		Nickname:     req.Nickname,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateUser(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, newUser.User())
}

func (s *CollabChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	s.writeJson(w, http.StatusOK, dbUser.User())
}

func (s *CollabChatApp) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *CollabChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", 0))
	w.WriteHeader(http.StatusNoContent)
}

func (s *CollabChatApp) createProject(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	project, err := s.db.CreateProject(database.CreateProjectParams{
		Name:        req.Name,
		Description: req.Description,
		ExternalId:  sid,
		OwnerId:     user.Id,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.AddTranslator(project.Id, user.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, project)
}

func (s *CollabChatApp) getUsersProjects(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	projects, err := s.db.ProjectsForUser(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, projects)
}

func (s *CollabChatApp) joinProject(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetProjectById(req.ProjectId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.AddTranslator(req.ProjectId, user.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *CollabChatApp) getOnlineUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.tracker.Online())
}

func (s *CollabChatApp) getSystemMessages(w http.ResponseWriter, r *http.Request) {
	raw, err := s.messages.SystemPage(r.Context(), pageParam(r))
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) getTodaySystemMessages(w http.ResponseWriter, r *http.Request) {
	raw, err := s.messages.TodaySystem(r.Context())
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) getGlobalMessages(w http.ResponseWriter, r *http.Request) {
	raw, err := s.messages.GlobalPage(r.Context(), pageParam(r))
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) getPrivateMessages(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	recipientId, err := strconv.ParseInt(r.URL.Query().Get("recipient_id"), 10, 64)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	raw, err := s.messages.PrivatePage(r.Context(), user.Id, recipientId, pageParam(r))
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) getProjectMessages(w http.ResponseWriter, r *http.Request) {
	projectId, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	raw, err := s.messages.ProjectPage(r.Context(), projectId, pageParam(r))
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) getUnreadMessages(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page, err := s.messages.Unread(r.Context(), user)
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, page)
}

func (s *CollabChatApp) getNotifications(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// page 0 (or absent) jumps to the last page of the feed
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		page = 0
	}

	raw, err := s.messages.Notifications(r.Context(), user, page)
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeRawJson(w, http.StatusOK, raw)
}

func (s *CollabChatApp) markNotificationsRead(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req MarkNotificationsReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ids) == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.messages.MarkNotificationsRead(r.Context(), user, req.Ids); err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *CollabChatApp) clearNotifications(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.messages.ClearNotifications(r.Context(), user); err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *CollabChatApp) addConversation(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AddConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		(req.RecipientId == nil) == (req.ProjectId == nil) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RecipientId != nil {
		if _, err := s.db.GetUserById(*req.RecipientId); err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}
	if req.ProjectId != nil {
		if _, err := s.db.GetProjectById(*req.ProjectId); err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	if err := s.db.AddConversation(user.Id, req.RecipientId, req.ProjectId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *CollabChatApp) getConversations(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	items, err := s.db.ConversationsForUser(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if items == nil {
		items = []types.Conversation{}
	}

	s.writeJson(w, http.StatusOK, items)
}

func (s *CollabChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	kind, ok := types.ParseMessageKind(req.Kind)
	if !ok {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var (
		msg types.Message
		err error
	)
	switch kind {
	case types.KindSystem:
		msg, err = s.messages.SendSystem(r.Context(), user, req.SendRequest)
	case types.KindGlobal:
		msg, err = s.messages.SendGlobal(r.Context(), user, req.SendRequest)
	case types.KindPrivate:
		msg, err = s.messages.SendPrivate(r.Context(), user, req.RecipientId, req.SendRequest)
	case types.KindProject:
		msg, err = s.messages.SendProject(r.Context(), user, req.ProjectId, req.SendRequest)
	}
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *CollabChatApp) updateAttachments(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateAttachmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	kind, ok := types.ParseMessageKind(req.Kind)
	if !ok {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.messages.UpdateAttachments(r.Context(), user, kind, req.MessageId, req.Attachments)
	if err != nil {
		errResp := s.serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, msg)
}

func (s *CollabChatApp) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	q := r.URL.Query()
	kind, ok := types.ParseMessageKind(q.Get("kind"))
	if !ok {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	messageId, err := strconv.ParseInt(q.Get("message_id"), 10, 64)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	attachmentId, err := strconv.ParseInt(q.Get("attachment_id"), 10, 64)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	url, err := s.messages.DownloadUrl(r.Context(), user, kind, messageId, attachmentId)
	if err != nil {
		// a denied download is indistinguishable from a missing one
		var errResp *ApiError
		if errors.Is(err, message.ErrNotFound) || errors.Is(err, message.ErrForbidden) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"url": url})
}
