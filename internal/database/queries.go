package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, avatar, status, last_seen",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Avatar,
		&u.Status,
		&u.LastSeen,
	)

	return u, translateErr(err)
}

func (db *PgRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar, status, last_seen, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	return scanAccount(row)
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar, status, last_seen, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	return scanAccount(row)
}

func scanAccount(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.Avatar,
		&u.Status,
		&u.LastSeen,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, translateErr(err)
}

func (db *PgRepository) ListAccounts(excludeId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, email, avatar, status, last_seen FROM accounts "+
			"WHERE id != $1 ORDER BY username",
		excludeId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.Avatar, &u.Status, &u.LastSeen); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, email, avatar, status, last_seen FROM accounts "+
			"WHERE username ILIKE '%' || $1 || '%' AND id != $2 ORDER BY username LIMIT $3",
		query,
		excludeId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.Avatar, &u.Status, &u.LastSeen); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, email = $3, avatar = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, avatar, status, last_seen",
		params.UserId,
		params.Username,
		params.Email,
		params.Avatar,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.Avatar, &u.Status, &u.LastSeen)

	return u, translateErr(err)
}

func (db *PgRepository) UpdateAccountStatus(accountId int, status string, lastSeen time.Time) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET status = $2, last_seen = $3, updated_at = $3 "+
			"WHERE id = $1 RETURNING id, username, email, avatar, status, last_seen",
		accountId,
		status,
		lastSeen,
	)

	var u User
	err := res.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.Avatar, &u.Status, &u.LastSeen)

	return u, translateErr(err)
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (external_id, name, type, description, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) "+
			"RETURNING id, external_id, name, type, avatar, description, is_active, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.Type,
		params.Description,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Type,
		&room.Avatar,
		&room.Description,
		&room.IsActive,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO room_participants (room_id, account_id, is_admin, created_at) VALUES ($1, $2, TRUE, $3)",
		room.Id,
		params.CreatorId,
		time.Now().UTC(),
	)
	if err != nil {
		return Room{}, err
	}

	for _, id := range params.ParticipantIds {
		if id == params.CreatorId {
			continue
		}
		_, err = tx.Exec(
			"INSERT INTO room_participants (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (room_id, account_id) DO NOTHING",
			room.Id,
			id,
			time.Now().UTC(),
		)
		if err != nil {
			return Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

const selectRoomColumns = "id, external_id, name, type, avatar, description, is_active, " +
	"COALESCE(last_message_id, 0), created_at, updated_at"

func scanRoom(row *sql.Row) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Type,
		&room.Avatar,
		&room.Description,
		&room.IsActive,
		&room.LastMessageId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, translateErr(err)
}

func (db *PgRepository) GetRoomById(roomId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+selectRoomColumns+" FROM rooms WHERE id = $1 LIMIT 1",
		roomId,
	)

	return scanRoom(row)
}

func (db *PgRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+selectRoomColumns+" FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanRoom(row)
}

func (db *PgRepository) GetRoomWithParticipants(roomId int) (Room, error) {
	query := `
		SELECT
				r.id,
				r.external_id,
				r.name,
				r.type,
				r.avatar,
				r.description,
				r.is_active,
				COALESCE(r.last_message_id, 0),
				r.created_at,
				r.updated_at,
				p.account_id,
				p.is_admin,
				p.created_at AS participant_created_at,
				a.username,
				a.avatar AS participant_avatar,
				a.status
		FROM rooms r
		LEFT JOIN room_participants p ON r.id = p.room_id
		LEFT JOIN accounts a ON p.account_id = a.id
		WHERE r.id = $1;
`

	rows, err := db.conn.Query(query, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("fetch room with participants: %w", err)
	}
	defer rows.Close()

	var room *Room
	for rows.Next() {
		var (
			r                    Room
			accountId            sql.NullInt64
			isAdmin              sql.NullBool
			participantCreatedAt sql.NullTime
			username             sql.NullString
			participantAvatar    sql.NullString
			status               sql.NullString
		)

		err := rows.Scan(
			&r.Id,
			&r.ExternalId,
			&r.Name,
			&r.Type,
			&r.Avatar,
			&r.Description,
			&r.IsActive,
			&r.LastMessageId,
			&r.CreatedAt,
			&r.UpdatedAt,
			&accountId,
			&isAdmin,
			&participantCreatedAt,
			&username,
			&participantAvatar,
			&status,
		)
		if err != nil {
			return Room{}, fmt.Errorf("scan row: %w", err)
		}

		if room == nil {
			r.Participants = make([]Participant, 0)
			room = &r
		}

		if accountId.Valid && username.Valid {
			room.Participants = append(room.Participants, Participant{
				AccountId: int(accountId.Int64),
				Username:  username.String,
				Avatar:    participantAvatar.String,
				Status:    status.String,
				IsAdmin:   isAdmin.Bool,
				CreatedAt: participantCreatedAt.Time,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return Room{}, fmt.Errorf("rows error: %w", err)
	}

	if room == nil {
		return Room{}, ErrNotFound
	}

	return *room, nil
}

func (db *PgRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.external_id, r.name, r.type, r.avatar, r.description, r.is_active, "+
			"COALESCE(r.last_message_id, 0), r.created_at, r.updated_at "+
			"FROM room_participants p JOIN rooms r ON r.id = p.room_id "+
			"WHERE p.account_id = $1 ORDER BY r.updated_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms = make([]Room, 0)
	for rows.Next() {
		var r Room
		err = rows.Scan(
			&r.Id,
			&r.ExternalId,
			&r.Name,
			&r.Type,
			&r.Avatar,
			&r.Description,
			&r.IsActive,
			&r.LastMessageId,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			break
		}

		rooms = append(rooms, r)
	}

	return rooms, err
}

func (db *PgRepository) UpdateRoom(params UpdateRoomParams) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET name = $2, description = $3, avatar = $4, updated_at = $5 WHERE id = $1",
		params.RoomId,
		params.Name,
		params.Description,
		params.Avatar,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) AddParticipants(roomId int, accountIds []int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, id := range accountIds {
		_, err = tx.Exec(
			"INSERT INTO room_participants (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (room_id, account_id) DO NOTHING",
			roomId,
			id,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec("UPDATE rooms SET updated_at = $2 WHERE id = $1", roomId, time.Now().UTC())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgRepository) RemoveParticipant(roomId, accountId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM room_participants WHERE room_id = $1 AND account_id = $2",
		roomId,
		accountId,
	)

	return err
}

func (db *PgRepository) IsParticipant(roomId, accountId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM room_participants WHERE room_id = $1 AND account_id = $2)",
		roomId,
		accountId,
	)

	var exists bool
	err := row.Scan(&exists)

	return exists, err
}

func (db *PgRepository) IsAdmin(roomId, accountId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM room_participants WHERE room_id = $1 AND account_id = $2 AND is_admin)",
		roomId,
		accountId,
	)

	var exists bool
	err := row.Scan(&exists)

	return exists, err
}

func (db *PgRepository) CountAdmins(roomId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT count(*) FROM room_participants WHERE room_id = $1 AND is_admin",
		roomId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, sender_id, content, type, file_url, file_name, file_size, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) "+
			"RETURNING id, room_id, sender_id, content, type, file_url, file_name, file_size, created_at",
		params.RoomId,
		params.SenderId,
		params.Content,
		params.Type,
		params.FileUrl,
		params.FileName,
		params.FileSize,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.Type,
		&msg.FileUrl,
		&msg.FileName,
		&msg.FileSize,
		&msg.CreatedAt,
	)

	return msg, translateErr(err)
}

const selectMessageQuery = `
	SELECT
			m.id,
			m.room_id,
			m.sender_id,
			m.content,
			m.type,
			m.file_url,
			m.file_name,
			m.file_size,
			m.created_at,
			a.username,
			a.avatar,
			ARRAY(SELECT account_id FROM message_reads WHERE message_id = m.id)
	FROM messages m
	JOIN accounts a ON m.sender_id = a.id
`

func scanMessage(rows interface{ Scan(...any) error }) (Message, error) {
	var (
		msg    Message
		readBy []int64
	)

	err := rows.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.Type,
		&msg.FileUrl,
		&msg.FileName,
		&msg.FileSize,
		&msg.CreatedAt,
		&msg.Sender.Username,
		&msg.Sender.Avatar,
		pq.Array(&readBy),
	)
	if err != nil {
		return Message{}, translateErr(err)
	}

	msg.Sender.Id = msg.SenderId
	msg.ReadBy = make([]int, 0, len(readBy))
	for _, id := range readBy {
		msg.ReadBy = append(msg.ReadBy, int(id))
	}

	return msg, nil
}

func (db *PgRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(selectMessageQuery+" WHERE m.id = $1 LIMIT 1", messageId)

	return scanMessage(row)
}

func (db *PgRepository) GetRecentMessages(roomId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		selectMessageQuery+" WHERE m.room_id = $1 ORDER BY m.created_at DESC, m.id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgRepository) UpdateRoomLastMessage(roomId, messageId int) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET last_message_id = $2, updated_at = $3 WHERE id = $1",
		roomId,
		messageId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) MarkMessagesRead(roomId, accountId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO message_reads (message_id, account_id, created_at) "+
			"SELECT m.id, $2, $3 FROM messages m WHERE m.room_id = $1 AND m.sender_id != $2 "+
			"ON CONFLICT (message_id, account_id) DO NOTHING",
		roomId,
		accountId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) CreateInvitation(params CreateInvitationParams) (Invitation, error) {
	res := db.conn.QueryRow(
		"INSERT INTO invitations (room_id, invited_by, email, token, expires_at, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, room_id, invited_by, email, token, status, expires_at, created_at",
		params.RoomId,
		params.InvitedBy,
		params.Email,
		params.Token,
		params.ExpiresAt,
		time.Now().UTC(),
	)

	var inv Invitation
	err := res.Scan(
		&inv.Id,
		&inv.RoomId,
		&inv.InvitedBy,
		&inv.Email,
		&inv.Token,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
	)

	return inv, translateErr(err)
}

func (db *PgRepository) GetPendingInvitation(token string, now time.Time) (Invitation, error) {
	row := db.conn.QueryRow(
		"SELECT i.id, i.room_id, r.name, r.type, i.invited_by, i.email, i.token, i.status, i.expires_at, i.created_at "+
			"FROM invitations i JOIN rooms r ON i.room_id = r.id "+
			"WHERE i.token = $1 AND i.status = 'pending' AND i.expires_at > $2 LIMIT 1",
		token,
		now,
	)

	var inv Invitation
	err := row.Scan(
		&inv.Id,
		&inv.RoomId,
		&inv.RoomName,
		&inv.RoomType,
		&inv.InvitedBy,
		&inv.Email,
		&inv.Token,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
	)

	return inv, translateErr(err)
}

func (db *PgRepository) AcceptInvitation(params AcceptInvitationParams) (User, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, avatar, status, last_seen",
		params.Username,
		params.Email,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err = res.Scan(&u.Id, &u.Username, &u.EmailAddress, &u.Avatar, &u.Status, &u.LastSeen)
	if err != nil {
		return User{}, translateErr(err)
	}

	_, err = tx.Exec(
		"INSERT INTO room_participants (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, account_id) DO NOTHING",
		params.RoomId,
		u.Id,
		time.Now().UTC(),
	)
	if err != nil {
		return User{}, err
	}

	result, err := tx.Exec(
		"UPDATE invitations SET status = 'accepted' WHERE id = $1 AND status = 'pending'",
		params.InvitationId,
	)
	if err != nil {
		return User{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return User{}, err
	}
	if affected == 0 {
		// lost the race to a concurrent accept
		err = ErrNotFound
		return User{}, err
	}

	if err = tx.Commit(); err != nil {
		return User{}, err
	}

	return u, nil
}
