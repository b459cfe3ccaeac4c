package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const DefaultMaxAttachmentSize = 10 << 20

var DefaultAttachmentPatterns = []string{"*.{jpg,jpeg,png,pdf,docx}"}

const attachmentsPrefix = "attachments"

// AllowedAttachmentName reports whether name matches one of patterns,
// case-insensitively.
func AllowedAttachmentName(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := doublestar.Match(strings.ToLower(p), lower); err == nil && ok {
			return true
		}
	}
	return false
}

func (e *Engine) AddAttachment(ctx context.Context, taskID, name, contentType string, r io.Reader) (*Attachment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, cerr.NewError(cerr.InvalidArgument, "attachment name is required", nil)
	}
	if !AllowedAttachmentName(name, e.attachmentPatterns) {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("file type of %q is not allowed", name), nil)
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxAttachmentSize+1))
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "failed to read attachment", err)
	}
	if int64(len(data)) > e.maxAttachmentSize {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("attachment exceeds %d MiB", e.maxAttachmentSize>>20), nil)
	}

	now := time.Now()
	a := &Attachment{
		ID:          ulid.Make().String(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   now,
	}
	a.Path = fmt.Sprintf("%s/%s/%s-%s", attachmentsPrefix, t.ID, a.ID, name)
	if err := e.files.Write(ctx, a.Path, data); err != nil {
		return nil, cerr.WrapStorageWriteError("attachment", err)
	}

	t.Attachments = append(t.Attachments, a)
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityAttachmentAdded, "attachment added: "+name, map[string]string{"attachment_id": a.ID}))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		e.removeAttachmentFile(ctx, a)
		return nil, err
	}
	e.publish(ctx, eventbus.AttachmentAdded, t.ID, map[string]string{
		eventbus.MetaParentID:        t.ParentID,
		eventbus.MetaAttachmentNames: name,
		eventbus.MetaAttachmentCount: "1",
	})
	return a, nil
}

// ReadAttachment returns an attachment's metadata and stored bytes.
func (e *Engine) ReadAttachment(ctx context.Context, taskID, attachmentID string) (*Attachment, []byte, error) {
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	a := findAttachment(t, attachmentID)
	if a == nil {
		return nil, nil, cerr.NewError(cerr.NotFound, "attachment not found", nil)
	}
	data, err := e.files.Read(ctx, a.Path)
	if err != nil {
		return nil, nil, cerr.WrapStorageReadError("attachment", err)
	}
	return a, data, nil
}

func (e *Engine) DeleteAttachment(ctx context.Context, taskID, attachmentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	a := findAttachment(t, attachmentID)
	if a == nil {
		return cerr.NewError(cerr.NotFound, "attachment not found", nil)
	}
	kept := t.Attachments[:0]
	for _, x := range t.Attachments {
		if x.ID != attachmentID {
			kept = append(kept, x)
		}
	}
	t.Attachments = kept

	now := time.Now()
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityAttachmentDeleted, "attachment deleted: "+a.Name, map[string]string{"attachment_id": a.ID}))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return err
	}
	e.removeAttachmentFile(ctx, a)
	e.publish(ctx, eventbus.AttachmentDeleted, t.ID, map[string]string{
		eventbus.MetaParentID:        t.ParentID,
		eventbus.MetaAttachmentNames: a.Name,
	})
	return nil
}

func (e *Engine) removeAttachmentFile(ctx context.Context, a *Attachment) {
	if a.Path == "" {
		return
	}
	if err := e.files.Delete(ctx, a.Path); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "failed to delete attachment file", "path", a.Path, "error", err)
	}
}

func findAttachment(t *Task, id string) *Attachment {
	for _, a := range t.Attachments {
		if a.ID == id {
			return a
		}
	}
	return nil
}
