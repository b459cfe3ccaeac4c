package clog

import (
	"context"
	"maps"
	"sync"
)

// requestAttrs collects attributes for the single access-log record written
// at the end of a request.
type requestAttrs struct {
	mu         sync.RWMutex
	attributes map[string]any
}

type requestAttrsKey struct{}

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestAttrsKey{}, &requestAttrs{attributes: make(map[string]any)})
}

func fromContext(ctx context.Context) *requestAttrs {
	l, _ := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	return l
}

// AddAttribute is a no-op outside a request context.
func AddAttribute(ctx context.Context, key string, value any) {
	AddAttributes(ctx, map[string]any{key: value})
}

// AddAttributes merges attributes into the request record. Nested maps are
// merged key by key.
func AddAttributes(ctx context.Context, attributes map[string]any) {
	l := fromContext(ctx)
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	mergeMaps(l.attributes, attributes)
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		vMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if dstMap, ok := dst[k].(map[string]any); ok {
			mergeMaps(dstMap, vMap)
		} else {
			dst[k] = vMap
		}
	}
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

// GetAttributes returns a copy of the attributes collected so far.
func GetAttributes(ctx context.Context) map[string]any {
	l := fromContext(ctx)
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.attributes)
}
