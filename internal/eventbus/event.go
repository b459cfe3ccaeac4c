package eventbus

import "time"

type EventType string

const (
	TaskCreated       EventType = "task.created"
	TaskUpdated       EventType = "task.updated"
	TaskSpecsUpdated  EventType = "task.specs_updated"
	TaskDeleted       EventType = "task.deleted"
	TaskStatusChanged EventType = "task.status_changed"
	CommentAdded      EventType = "comment.added"
	ReplyAdded        EventType = "reply.added"
	CommentResolved   EventType = "comment.resolved"
	AttachmentAdded   EventType = "attachment.added"
	AttachmentDeleted EventType = "attachment.deleted"
	SettingsUpdated   EventType = "settings.updated"
)

// Metadata keys carried by task events.
const (
	MetaParentID        = "parent_id"
	MetaOldStatus       = "old_status"
	MetaNewStatus       = "new_status"
	MetaCommentID       = "comment_id"
	MetaCommentText     = "comment_text"
	MetaAttachmentNames = "attachment_names"
	MetaAttachmentCount = "attachment_count"
	// MetaInherited marks a parent status change derived from its subtasks.
	MetaInherited = "inherited"
	// MetaActorID and MetaActorPhone identify the staff account behind a change.
	MetaActorID    = "actor_id"
	MetaActorPhone = "actor_phone"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resourceId"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}
