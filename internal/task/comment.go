package task

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

// AddComment appends a comment and moves the task into the has-comments status.
func (e *Engine) AddComment(ctx context.Context, taskID, text string) (*Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "comment text is required", nil)
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c := &Comment{ID: ulid.Make().String(), Text: text, CreatedAt: now}
	t.Comments = append(t.Comments, c)
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityCommentAdded, "comment added", map[string]string{"comment_id": c.ID}))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	e.publish(ctx, eventbus.CommentAdded, t.ID, map[string]string{
		eventbus.MetaParentID:    t.ParentID,
		eventbus.MetaCommentID:   c.ID,
		eventbus.MetaCommentText: c.Text,
	})

	if err := e.markHasComments(ctx, t.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// AddReply answers a top-level comment. Replies cannot be nested.
func (e *Engine) AddReply(ctx context.Context, taskID, commentID, text string) (*Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "reply text is required", nil)
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	var parent *Comment
	for _, c := range t.Comments {
		if c.ID == commentID {
			parent = c
			break
		}
	}
	if parent == nil {
		if t.FindComment(commentID) != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "cannot reply to a reply", nil)
		}
		return nil, cerr.NewError(cerr.NotFound, "comment not found", nil)
	}

	now := time.Now()
	r := &Comment{ID: ulid.Make().String(), Text: text, ParentCommentID: parent.ID, CreatedAt: now}
	parent.Replies = append(parent.Replies, r)
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityReplyAdded, "reply added", map[string]string{
		"comment_id": parent.ID,
		"reply_id":   r.ID,
	}))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	e.publish(ctx, eventbus.ReplyAdded, t.ID, map[string]string{
		eventbus.MetaParentID:    t.ParentID,
		eventbus.MetaCommentID:   r.ID,
		eventbus.MetaCommentText: r.Text,
	})

	if err := e.markHasComments(ctx, t.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ResolveComment marks a comment resolved. Resolving twice is harmless and
// publishes nothing the second time.
func (e *Engine) ResolveComment(ctx context.Context, taskID, commentID string) (*Comment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	c := t.FindComment(commentID)
	if c == nil {
		return nil, cerr.NewError(cerr.NotFound, "comment not found", nil)
	}
	if c.IsResolved {
		return c, nil
	}

	now := time.Now()
	c.IsResolved = true
	t.ActivityLog = append(t.ActivityLog, newActivity(now, ActivityCommentResolved, "comment resolved", map[string]string{"comment_id": c.ID}))
	t.UpdatedAt = now
	if err := e.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	e.publish(ctx, eventbus.CommentResolved, t.ID, map[string]string{
		eventbus.MetaParentID:    t.ParentID,
		eventbus.MetaCommentID:   c.ID,
		eventbus.MetaCommentText: c.Text,
	})
	return c, nil
}

func (e *Engine) markHasComments(ctx context.Context, taskID string) error {
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return err
	}
	if _, ok := catalog.Find(catalog.HasCommentsID()); !ok {
		return nil
	}
	_, err = e.updateStatus(ctx, taskID, catalog.HasCommentsID())
	return err
}
