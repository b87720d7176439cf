package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mfyhq/collabchat/internal/types"
)

func mergeAttachments(attachments []types.Attachment, updates []AttachmentUpdate) {
	for i := range attachments {
		for _, u := range updates {
			if u.Id == attachments[i].Id {
				attachments[i].IsSuccess = u.IsSuccess
				attachments[i].UploadedAt = u.UploadedAt
				break
			}
		}
	}
}

// UpdateAttachments merges upload status into the stored attachment list of
// one message, re-persists it and re-routes the message so live subscribers
// see the updated attachment state. Authorization mirrors send: admin for
// system, sender for global, project member for project, participant for
// private.
func (s *Service) UpdateAttachments(ctx context.Context, user types.User, kind types.MessageKind, messageId int64, updates []AttachmentUpdate) (types.Message, error) {
	switch kind {
	case types.KindSystem:
		msg, err := s.db.GetSystemMessage(messageId)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		if user.Role != types.RoleAdmin {
			return nil, ErrForbidden
		}

		mergeAttachments(msg.Attachments, updates)
		if err := s.db.UpdateAttachments(kind, messageId, msg.Attachments); err != nil {
			return nil, mapLookupErr(err)
		}
		s.router.RouteSystem(ctx, msg)
		return msg, nil

	case types.KindGlobal:
		msg, err := s.db.GetGlobalMessage(messageId)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		if msg.SenderId != user.Id {
			return nil, ErrForbidden
		}

		mergeAttachments(msg.Attachments, updates)
		if err := s.db.UpdateAttachments(kind, messageId, msg.Attachments); err != nil {
			return nil, mapLookupErr(err)
		}
		s.router.RouteGlobal(ctx, msg)
		return msg, nil

	case types.KindPrivate:
		msg, err := s.db.GetPrivateMessage(messageId)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		if msg.SenderId != user.Id && msg.RecipientId != user.Id {
			return nil, ErrForbidden
		}

		mergeAttachments(msg.Attachments, updates)
		if err := s.db.UpdateAttachments(kind, messageId, msg.Attachments); err != nil {
			return nil, mapLookupErr(err)
		}

		recipient, err := s.db.GetUserById(msg.RecipientId)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		s.router.RouteToUser(ctx, user, recipient.User(), msg)
		return msg, nil

	case types.KindProject:
		msg, err := s.db.GetProjectMessage(messageId)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		if !s.db.IsTranslator(msg.ProjectId, user.Id) {
			return nil, ErrForbidden
		}

		mergeAttachments(msg.Attachments, updates)
		if err := s.db.UpdateAttachments(kind, messageId, msg.Attachments); err != nil {
			return nil, mapLookupErr(err)
		}
		s.router.RouteProject(ctx, msg)
		return msg, nil

	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}
}

// DownloadUrl authorizes access to one attachment and returns a time-limited
// presigned GET URL. System and global attachments are readable by any
// authenticated user; project attachments require membership; private
// attachments require being sender or recipient.
func (s *Service) DownloadUrl(ctx context.Context, user types.User, kind types.MessageKind, messageId, attachmentId int64) (string, error) {
	var attachments []types.Attachment

	switch kind {
	case types.KindSystem:
		msg, err := s.db.GetSystemMessage(messageId)
		if err != nil {
			return "", mapLookupErr(err)
		}
		attachments = msg.Attachments

	case types.KindGlobal:
		msg, err := s.db.GetGlobalMessage(messageId)
		if err != nil {
			return "", mapLookupErr(err)
		}
		attachments = msg.Attachments

	case types.KindPrivate:
		msg, err := s.db.GetPrivateMessage(messageId)
		if err != nil {
			return "", mapLookupErr(err)
		}
		if msg.SenderId != user.Id && msg.RecipientId != user.Id {
			return "", ErrForbidden
		}
		attachments = msg.Attachments

	case types.KindProject:
		msg, err := s.db.GetProjectMessage(messageId)
		if err != nil {
			return "", mapLookupErr(err)
		}
		if !s.db.IsTranslator(msg.ProjectId, user.Id) {
			return "", ErrForbidden
		}
		attachments = msg.Attachments

	default:
		return "", fmt.Errorf("unknown message kind %q", kind)
	}

	for _, a := range attachments {
		if a.Id == attachmentId {
			url, err := s.store.PresignGet(ctx, a.Key)
			if err != nil {
				return "", fmt.Errorf("presign download: %w", err)
			}
			return url, nil
		}
	}
	return "", ErrNotFound
}

func mapLookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
