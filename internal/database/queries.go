package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mfyhq/collabchat/internal/types"
)

func marshalAttachments(attachments []types.Attachment) ([]byte, error) {
	if attachments == nil {
		attachments = []types.Attachment{}
	}
	return json.Marshal(attachments)
}

func unmarshalAttachments(raw []byte) ([]types.Attachment, error) {
	attachments := []types.Attachment{}
	if len(raw) == 0 {
		return attachments, nil
	}
	if err := json.Unmarshal(raw, &attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	return attachments, nil
}

func (db *PgChatRepository) CreateUser(params CreateUserParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (nickname, email, full_name, password_hash, role, last_online, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6, $6) RETURNING id, nickname, email, full_name, avatar, role, last_online, created_at, updated_at",
		params.Nickname,
		params.Email,
		params.FullName,
		params.PasswordHash,
		types.RoleUser,
		time.Now().UTC(),
	)

	return scanUser(res)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Nickname,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.Role,
		&u.LastOnline,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (db *PgChatRepository) GetUserById(id int64) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, full_name, avatar, role, last_online, created_at, updated_at "+
			"FROM users WHERE id = $1 LIMIT 1",
		id,
	)
	return scanUser(row)
}

func (db *PgChatRepository) GetUserByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, full_name, avatar, role, password_hash, last_online, created_at, updated_at "+
			"FROM users WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Nickname,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.Role,
		&u.PasswordHash,
		&u.LastOnline,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (db *PgChatRepository) GetUsersByIds(ids []int64) ([]types.User, error) {
	rows, err := db.conn.Query(
		"SELECT id, nickname, email, full_name, avatar, role, last_online, created_at, updated_at "+
			"FROM users WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.Id,
			&u.Nickname,
			&u.Email,
			&u.FullName,
			&u.Avatar,
			&u.Role,
			&u.LastOnline,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u.User())
	}

	return users, rows.Err()
}

func (db *PgChatRepository) UpdateLastOnline(userId int64, lastOnline time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE users SET last_online = $2, updated_at = $2 WHERE id = $1",
		userId,
		lastOnline.UTC(),
	)
	return err
}

func (db *PgChatRepository) CreateProject(params CreateProjectParams) (types.Project, error) {
	row := db.conn.QueryRow(
		"INSERT INTO projects (external_id, name, description, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, external_id, name, description, owner_id, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.Description,
		params.OwnerId,
		time.Now().UTC(),
	)
	return scanProject(row)
}

func scanProject(row *sql.Row) (types.Project, error) {
	var p types.Project
	err := row.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.Description,
		&p.OwnerId,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (db *PgChatRepository) GetProjectById(id int64) (types.Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, description, owner_id, created_at, updated_at "+
			"FROM projects WHERE id = $1 LIMIT 1",
		id,
	)
	return scanProject(row)
}

func (db *PgChatRepository) GetProjectsByIds(ids []int64) ([]types.Project, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, name, description, owner_id, created_at, updated_at "+
			"FROM projects WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(
			&p.Id,
			&p.ExternalId,
			&p.Name,
			&p.Description,
			&p.OwnerId,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (db *PgChatRepository) AddTranslator(projectId, userId int64) error {
	_, err := db.conn.Exec(
		"INSERT INTO translators (project_id, user_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (project_id, user_id) DO NOTHING",
		projectId,
		userId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgChatRepository) IsTranslator(projectId, userId int64) bool {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM translators WHERE project_id = $1 AND user_id = $2)",
		projectId,
		userId,
	).Scan(&exists)

	return err == nil && exists
}

func (db *PgChatRepository) ProjectIdsForUser(userId int64) ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT project_id FROM translators WHERE user_id = $1",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *PgChatRepository) ProjectsForUser(userId int64) ([]types.Project, error) {
	rows, err := db.conn.Query(
		"SELECT p.id, p.external_id, p.name, p.description, p.owner_id, p.created_at, p.updated_at "+
			"FROM projects p JOIN translators t ON t.project_id = p.id WHERE t.user_id = $1",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(
			&p.Id,
			&p.ExternalId,
			&p.Name,
			&p.Description,
			&p.OwnerId,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (db *PgChatRepository) CreateSystemMessage(msg *types.SystemMessage) (*types.SystemMessage, error) {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"INSERT INTO system_messages (content, attachments, is_lasting, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, false, $4, $4) RETURNING id, created_at, updated_at",
		msg.Content,
		attachments,
		msg.IsLasting,
		time.Now().UTC(),
	)

	if err := row.Scan(&msg.Id, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PgChatRepository) CreateGlobalMessage(msg *types.GlobalMessage) (*types.GlobalMessage, error) {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"INSERT INTO global_messages (content, attachments, sender_id, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, false, $4, $4) RETURNING id, created_at, updated_at",
		msg.Content,
		attachments,
		msg.SenderId,
		time.Now().UTC(),
	)

	if err := row.Scan(&msg.Id, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PgChatRepository) CreatePrivateMessage(msg *types.PrivateMessage) (*types.PrivateMessage, error) {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"INSERT INTO private_messages (content, attachments, sender_id, recipient_id, pair_id, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, false, $6, $6) RETURNING id, created_at, updated_at",
		msg.Content,
		attachments,
		msg.SenderId,
		msg.RecipientId,
		msg.PairId,
		time.Now().UTC(),
	)

	if err := row.Scan(&msg.Id, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PgChatRepository) CreateProjectMessage(msg *types.ProjectMessage) (*types.ProjectMessage, error) {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"INSERT INTO project_messages (content, attachments, sender_id, project_id, is_deleted, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, false, $5, $5) RETURNING id, created_at, updated_at",
		msg.Content,
		attachments,
		msg.SenderId,
		msg.ProjectId,
		time.Now().UTC(),
	)

	if err := row.Scan(&msg.Id, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PgChatRepository) GetSystemMessage(id int64) (*types.SystemMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, content, attachments, is_lasting, is_deleted, created_at, updated_at "+
			"FROM system_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg types.SystemMessage
	var raw []byte
	if err := row.Scan(&msg.Id, &msg.Content, &raw, &msg.IsLasting, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}

	attachments, err := unmarshalAttachments(raw)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments
	return &msg, nil
}

func (db *PgChatRepository) GetGlobalMessage(id int64) (*types.GlobalMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, content, attachments, sender_id, is_deleted, created_at, updated_at "+
			"FROM global_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg types.GlobalMessage
	var raw []byte
	if err := row.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}

	attachments, err := unmarshalAttachments(raw)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments
	return &msg, nil
}

func (db *PgChatRepository) GetPrivateMessage(id int64) (*types.PrivateMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, content, attachments, sender_id, recipient_id, pair_id, is_deleted, created_at, updated_at "+
			"FROM private_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg types.PrivateMessage
	var raw []byte
	if err := row.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.RecipientId, &msg.PairId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}

	attachments, err := unmarshalAttachments(raw)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments
	return &msg, nil
}

func (db *PgChatRepository) GetProjectMessage(id int64) (*types.ProjectMessage, error) {
	row := db.conn.QueryRow(
		"SELECT id, content, attachments, sender_id, project_id, is_deleted, created_at, updated_at "+
			"FROM project_messages WHERE id = $1 LIMIT 1",
		id,
	)

	var msg types.ProjectMessage
	var raw []byte
	if err := row.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.ProjectId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
		return nil, err
	}

	attachments, err := unmarshalAttachments(raw)
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments
	return &msg, nil
}

var messageTables = map[types.MessageKind]string{
	types.KindSystem:  "system_messages",
	types.KindGlobal:  "global_messages",
	types.KindPrivate: "private_messages",
	types.KindProject: "project_messages",
}

func (db *PgChatRepository) UpdateAttachments(kind types.MessageKind, messageId int64, attachments []types.Attachment) error {
	table, ok := messageTables[kind]
	if !ok {
		return fmt.Errorf("unknown message kind %q", kind)
	}

	raw, err := marshalAttachments(attachments)
	if err != nil {
		return err
	}

	res, err := db.conn.Exec(
		"UPDATE "+table+" SET attachments = $2, updated_at = $3 WHERE id = $1",
		messageId,
		raw,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *PgChatRepository) ListSystemMessages(offset, limit int) ([]*types.SystemMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, is_lasting, is_deleted, created_at, updated_at "+
			"FROM system_messages ORDER BY created_at ASC OFFSET $1 LIMIT $2",
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSystemMessages(rows)
}

func scanSystemMessages(rows *sql.Rows) ([]*types.SystemMessage, error) {
	var msgs []*types.SystemMessage
	for rows.Next() {
		var msg types.SystemMessage
		var raw []byte
		if err := rows.Scan(&msg.Id, &msg.Content, &raw, &msg.IsLasting, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		attachments, err := unmarshalAttachments(raw)
		if err != nil {
			return nil, err
		}
		msg.Attachments = attachments
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (db *PgChatRepository) CountSystemMessages() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM system_messages").Scan(&count)
	return count, err
}

func (db *PgChatRepository) ListGlobalMessages(offset, limit int) ([]*types.GlobalMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, is_deleted, created_at, updated_at "+
			"FROM global_messages ORDER BY created_at ASC OFFSET $1 LIMIT $2",
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGlobalMessages(rows)
}

func scanGlobalMessages(rows *sql.Rows) ([]*types.GlobalMessage, error) {
	var msgs []*types.GlobalMessage
	for rows.Next() {
		var msg types.GlobalMessage
		var raw []byte
		if err := rows.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		attachments, err := unmarshalAttachments(raw)
		if err != nil {
			return nil, err
		}
		msg.Attachments = attachments
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (db *PgChatRepository) CountGlobalMessages() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM global_messages").Scan(&count)
	return count, err
}

func (db *PgChatRepository) ListPrivateMessages(pairId int64, offset, limit int) ([]*types.PrivateMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, recipient_id, pair_id, is_deleted, created_at, updated_at "+
			"FROM private_messages WHERE pair_id = $1 ORDER BY created_at ASC OFFSET $2 LIMIT $3",
		pairId,
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPrivateMessages(rows)
}

func scanPrivateMessages(rows *sql.Rows) ([]*types.PrivateMessage, error) {
	var msgs []*types.PrivateMessage
	for rows.Next() {
		var msg types.PrivateMessage
		var raw []byte
		if err := rows.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.RecipientId, &msg.PairId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		attachments, err := unmarshalAttachments(raw)
		if err != nil {
			return nil, err
		}
		msg.Attachments = attachments
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (db *PgChatRepository) CountPrivateMessages(pairId int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM private_messages WHERE pair_id = $1", pairId).Scan(&count)
	return count, err
}

func (db *PgChatRepository) ListProjectMessages(projectId int64, offset, limit int) ([]*types.ProjectMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, project_id, is_deleted, created_at, updated_at "+
			"FROM project_messages WHERE project_id = $1 ORDER BY created_at ASC OFFSET $2 LIMIT $3",
		projectId,
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProjectMessages(rows)
}

func scanProjectMessages(rows *sql.Rows) ([]*types.ProjectMessage, error) {
	var msgs []*types.ProjectMessage
	for rows.Next() {
		var msg types.ProjectMessage
		var raw []byte
		if err := rows.Scan(&msg.Id, &msg.Content, &raw, &msg.SenderId, &msg.ProjectId, &msg.IsDeleted, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}

		attachments, err := unmarshalAttachments(raw)
		if err != nil {
			return nil, err
		}
		msg.Attachments = attachments
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (db *PgChatRepository) CountProjectMessages(projectId int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM project_messages WHERE project_id = $1", projectId).Scan(&count)
	return count, err
}

func (db *PgChatRepository) ListNotifications(recipientId int64, offset, limit int) ([]*types.Notification, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, recipient_id, is_read, created_at "+
			"FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3",
		recipientId,
		offset,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.Id, &n.Content, &n.RecipientId, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

func (db *PgChatRepository) CountNotifications(recipientId int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM notifications WHERE recipient_id = $1", recipientId).Scan(&count)
	return count, err
}

// MarkNotificationsRead flips the read flag on the given entries. Ids not
// addressed to the recipient are silently skipped.
func (db *PgChatRepository) MarkNotificationsRead(recipientId int64, ids []int64) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND id = ANY($2)",
		recipientId,
		pq.Array(ids),
	)
	return err
}

func (db *PgChatRepository) DeleteNotifications(recipientId int64) error {
	_, err := db.conn.Exec("DELETE FROM notifications WHERE recipient_id = $1", recipientId)
	return err
}

// AddConversation pins a sidebar entry, once. The existence check treats NULL
// as equal so a duplicate direct or project entry is a no-op.
func (db *PgChatRepository) AddConversation(userId int64, recipientId, projectId *int64) error {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM conversations WHERE user_id = $1 "+
			"AND recipient_id IS NOT DISTINCT FROM $2 AND project_id IS NOT DISTINCT FROM $3)",
		userId,
		recipientId,
		projectId,
	).Scan(&exists)
	if err != nil || exists {
		return err
	}

	_, err = db.conn.Exec(
		"INSERT INTO conversations (user_id, recipient_id, project_id, created_at) VALUES ($1, $2, $3, $4)",
		userId,
		recipientId,
		projectId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgChatRepository) ConversationsForUser(userId int64) ([]types.Conversation, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, recipient_id, project_id, created_at "+
			"FROM conversations WHERE user_id = $1 ORDER BY created_at ASC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.Conversation
	for rows.Next() {
		var c types.Conversation
		var recipientId, projectId sql.NullInt64
		if err := rows.Scan(&c.Id, &c.UserId, &recipientId, &projectId, &c.CreatedAt); err != nil {
			return nil, err
		}
		if recipientId.Valid {
			c.RecipientId = &recipientId.Int64
		}
		if projectId.Valid {
			c.ProjectId = &projectId.Int64
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (db *PgChatRepository) SystemMessagesSince(since time.Time) ([]*types.SystemMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, is_lasting, is_deleted, created_at, updated_at "+
			"FROM system_messages WHERE created_at > $1 OR is_lasting ORDER BY created_at ASC",
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSystemMessages(rows)
}

func (db *PgChatRepository) GlobalMessagesSince(since time.Time) ([]*types.GlobalMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, is_deleted, created_at, updated_at "+
			"FROM global_messages WHERE created_at > $1 ORDER BY created_at ASC",
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGlobalMessages(rows)
}

func (db *PgChatRepository) PrivateMessagesFor(recipientId int64, since time.Time) ([]*types.PrivateMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, recipient_id, pair_id, is_deleted, created_at, updated_at "+
			"FROM private_messages WHERE recipient_id = $1 AND created_at > $2 ORDER BY created_at ASC",
		recipientId,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPrivateMessages(rows)
}

func (db *PgChatRepository) ProjectMessagesSince(projectIds []int64, since time.Time) ([]*types.ProjectMessage, error) {
	if len(projectIds) == 0 {
		return nil, nil
	}

	rows, err := db.conn.Query(
		"SELECT id, content, attachments, sender_id, project_id, is_deleted, created_at, updated_at "+
			"FROM project_messages WHERE project_id = ANY($1) AND created_at > $2 ORDER BY created_at ASC",
		pq.Array(projectIds),
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProjectMessages(rows)
}
